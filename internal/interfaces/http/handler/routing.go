package handler

import (
	"github.com/gin-gonic/gin"

	"legal-intake-ai/internal/application/routing"
	"legal-intake-ai/internal/interfaces/http/dto"
	"legal-intake-ai/pkg/logger"
	"legal-intake-ai/pkg/metrics"
)

// RoutingHandler 模型路由处理器
type RoutingHandler struct {
	router *routing.Router
}

// NewRoutingHandler 创建模型路由处理器
func NewRoutingHandler(router *routing.Router) *RoutingHandler {
	return &RoutingHandler{router: router}
}

// Route 为一次摄入请求选择模型并返回成本估计
func (h *RoutingHandler) Route(c *gin.Context) {
	var req dto.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid route request: "+err.Error())
		return
	}

	var hints *routing.Hints
	if req.Hints != nil {
		hints = &routing.Hints{
			RequiresReasoning: req.Hints.RequiresReasoning,
			MultiStepAnalysis: req.Hints.MultiStepAnalysis,
			HighStakes:        req.Hints.HighStakes,
		}
	}

	decision := h.router.Route(req.TaskType, req.Content, req.MaxOutputTokens, hints)

	metrics.RoutingDecisionsTotal.WithLabelValues(decision.SelectedModel, req.TaskType).Inc()
	metrics.RoutingComplexityScore.Observe(decision.ComplexityScore)
	metrics.RoutingEstimatedCost.WithLabelValues(decision.SelectedModel).Add(decision.EstimatedCost)

	logger.Info(c.Request.Context(), "routing decision",
		"task_type", req.TaskType,
		"selected_model", decision.SelectedModel,
		"complexity_score", decision.ComplexityScore,
		"estimated_cost", decision.EstimatedCost,
	)

	dto.Success(c, dto.RouteResponse{
		SelectedModel:   decision.SelectedModel,
		Reasoning:       decision.Reasoning,
		ComplexityScore: decision.ComplexityScore,
		EstimatedCost:   decision.EstimatedCost,
		EstimatedTokens: decision.EstimatedTokens,
	})
}
