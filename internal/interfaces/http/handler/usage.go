package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"legal-intake-ai/internal/application/budget"
	"legal-intake-ai/internal/interfaces/http/dto"
	apperrors "legal-intake-ai/pkg/errors"
	"legal-intake-ai/pkg/logger"
)

// UsageHandler 用量与预算处理器
type UsageHandler struct {
	ledger *budget.Ledger
}

// NewUsageHandler 创建用量与预算处理器
func NewUsageHandler(ledger *budget.Ledger) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// RecordUsage 上报一条实际用量流水。
// request_id 重复时幂等处理，返回 200 与本次计算的成本。
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.Failure(c, apperrors.New(apperrors.CodeInvalidUsagePayload, "invalid usage payload").
			WithDetail(err.Error()))
		return
	}

	record, err := h.ledger.Record(c.Request.Context(), budget.RecordInput{
		FirmID:       req.FirmID,
		UserID:       req.UserID,
		ServiceName:  req.ServiceName,
		ModelID:      req.ModelID,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
		RequestID:    req.RequestID,
		Endpoint:     req.Endpoint,
	})
	if err != nil {
		logger.Error(c.Request.Context(), "failed to record usage", err, "firm_id", req.FirmID)
		dto.Failure(c, err)
		return
	}

	status := h.ledger.Status(c.Request.Context(), req.FirmID)

	dto.Success(c, dto.RecordUsageResponse{
		ID:           record.ID,
		TotalTokens:  record.TotalTokens,
		TotalCost:    record.TotalCost,
		BudgetStatus: string(status.Status),
	})
}

// BudgetStatus 查询事务所当日预算状态
func (h *UsageHandler) BudgetStatus(c *gin.Context) {
	firmID := c.Param("firm_id")
	if firmID == "" {
		dto.BadRequest(c, "firm_id is required")
		return
	}

	status := h.ledger.Status(c.Request.Context(), firmID)
	dto.Success(c, status)
}

// RealTimeCosts 查询事务所当日实时成本
func (h *UsageHandler) RealTimeCosts(c *gin.Context) {
	firmID := c.Param("firm_id")
	if firmID == "" {
		dto.BadRequest(c, "firm_id is required")
		return
	}

	costs, err := h.ledger.RealTimeCosts(c.Request.Context(), firmID)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to compute real-time costs", err, "firm_id", firmID)
		dto.Failure(c, err)
		return
	}
	dto.Success(c, costs)
}

// UsageReport 查询 [start, end) 的用量报表。
// 支持 start/end 查询参数（RFC3339 或 2006-01-02），缺省为最近 30 天。
func (h *UsageHandler) UsageReport(c *gin.Context) {
	firmID := c.Param("firm_id")
	if firmID == "" {
		dto.BadRequest(c, "firm_id is required")
		return
	}

	end := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	start := end.AddDate(0, 0, -30)

	if raw := c.Query("start"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			dto.BadRequest(c, "invalid start: "+err.Error())
			return
		}
		start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			dto.BadRequest(c, "invalid end: "+err.Error())
			return
		}
		end = t
	}

	report, err := h.ledger.UsageReport(c.Request.Context(), firmID, start, end)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to build usage report", err, "firm_id", firmID)
		dto.Failure(c, err)
		return
	}
	dto.Success(c, report)
}

// CostReport 生成周期性成本报表。type 查询参数：daily / weekly / monthly（缺省 monthly）。
func (h *UsageHandler) CostReport(c *gin.Context) {
	firmID := c.Param("firm_id")
	if firmID == "" {
		dto.BadRequest(c, "firm_id is required")
		return
	}

	reportType := c.DefaultQuery("type", budget.ReportMonthly)

	report, err := h.ledger.GenerateReport(c.Request.Context(), firmID, reportType)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate cost report", err, "firm_id", firmID)
		dto.Failure(c, err)
		return
	}
	dto.Success(c, report)
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
