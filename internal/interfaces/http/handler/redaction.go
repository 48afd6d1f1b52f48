package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"legal-intake-ai/internal/application/redaction"
	"legal-intake-ai/internal/interfaces/http/dto"
	"legal-intake-ai/pkg/logger"
	"legal-intake-ai/pkg/metrics"
)

// RedactionHandler PHI 脱敏处理器
type RedactionHandler struct {
	redactor *redaction.Redactor
}

// NewRedactionHandler 创建 PHI 脱敏处理器
func NewRedactionHandler(redactor *redaction.Redactor) *RedactionHandler {
	return &RedactionHandler{redactor: redactor}
}

// Redact 脱敏文本。审计日志只含类别与位置，绝不记录命中原文。
func (h *RedactionHandler) Redact(c *gin.Context) {
	var req dto.RedactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid redact request: "+err.Error())
		return
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = c.GetString("request_id")
	}

	result := h.redactor.Redact(req.Text)
	audit := h.redactor.Audit(result, correlationID)

	metrics.RedactionRequestsTotal.WithLabelValues(strconv.FormatBool(result.PHIDetected)).Inc()
	for _, m := range result.Matches {
		metrics.RedactionMatchesTotal.WithLabelValues(string(m.Type)).Inc()
	}

	logger.Info(c.Request.Context(), "phi redaction completed",
		"correlation_id", correlationID,
		"phi_detected", audit.PHIDetected,
		"redaction_count", audit.RedactionCount,
		"phi_types", audit.PHITypes,
	)

	resp := dto.RedactResponse{
		RedactedText:   result.RedactedText,
		PHIDetected:    result.PHIDetected,
		RedactionCount: len(result.Matches),
		PHITypes:       audit.PHITypes,
		Matches:        make([]dto.RedactedMatch, 0, len(result.Matches)),
	}
	for _, m := range result.Matches {
		resp.Matches = append(resp.Matches, dto.RedactedMatch{
			Type:  string(m.Type),
			Start: m.Start,
			End:   m.End,
		})
	}

	dto.Success(c, resp)
}

// CheckCompliance 检查文本是否不含 PHI
func (h *RedactionHandler) CheckCompliance(c *gin.Context) {
	var req dto.ComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid compliance request: "+err.Error())
		return
	}

	report := h.redactor.CheckCompliance(req.Text)
	dto.Success(c, report)
}
