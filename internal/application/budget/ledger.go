// Package budget 提供预算治理：用量流水记录、预算状态与成本报表。
// 流水只追加；预算状态每次从新鲜聚合查询派生，从不维护增量计数器，
// 因此并发写入方无需进程内锁（见仓储接口约定）。
package budget

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"legal-intake-ai/internal/domain/entity"
	"legal-intake-ai/internal/domain/repository"
	apperrors "legal-intake-ai/pkg/errors"
	"legal-intake-ai/pkg/logger"
	"legal-intake-ai/pkg/metrics"
)

// Status 预算状态
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	// StatusUnknown 聚合查询失败时的降级状态，不阻塞调用方
	StatusUnknown Status = "unknown"
)

// Config 预算治理配置值
type Config struct {
	// DailyTokenBudget 全局日 Token 预算，乘以近似单价得到美元日预算
	DailyTokenBudget      int64
	ApproxCostPer1KTokens float64
	WarningThreshold      float64
	CriticalThreshold     float64
	TargetCostPerDocument float64
	// CostEfficientModel / HighCapabilityModel 用于报表中的模型占比建议
	CostEfficientModel  string
	HighCapabilityModel string
}

// BudgetStatus 某事务所当日的预算状态。派生值，按需重算，从不缓存。
type BudgetStatus struct {
	FirmID       string  `json:"firm_id"`
	PeriodSpend  float64 `json:"period_spend"`
	PeriodBudget float64 `json:"period_budget"`
	Status       Status  `json:"status"`
}

// RecordInput 一次外部调用的实际用量（成本由定价表计算，不由调用方提供）
type RecordInput struct {
	FirmID       string `json:"firm_id"`
	UserID       string `json:"user_id"`
	ServiceName  string `json:"service_name"`
	ModelID      string `json:"model_id"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	RequestID    string `json:"request_id"`
	Endpoint     string `json:"endpoint"`
}

// Pricer 成本计算依赖（由路由定价表实现）
type Pricer interface {
	Cost(modelID string, inputTokens, outputTokens int) (inputCost, outputCost float64)
}

// Ledger 预算台账服务
type Ledger struct {
	repo    repository.UsageRecordRepository
	pricing Pricer
	cfg     Config
	now     func() time.Time
}

// NewLedger 创建预算台账
func NewLedger(repo repository.UsageRecordRepository, pricing Pricer, cfg Config) *Ledger {
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = 0.80
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 0.95
	}
	return &Ledger{
		repo:    repo,
		pricing: pricing,
		cfg:     cfg,
		now:     time.Now,
	}
}

// DailyBudget 美元日预算：日 Token 预算 × 近似单价
func (l *Ledger) DailyBudget() float64 {
	return float64(l.cfg.DailyTokenBudget) / 1000 * l.cfg.ApproxCostPer1KTokens
}

// Record 记录一条实际用量流水并评估预算。
// 成本按定价表计算，未注册模型走兜底定价；request_id 重复时幂等忽略
// （返回本次计算出的流水，不报错），避免上游重试造成重复计费。
// 预算评估失败不影响返回（聚合失败降级为 unknown）。
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*entity.UsageRecord, error) {
	firmID := strings.TrimSpace(in.FirmID)
	if firmID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidUsagePayload, "usage record missing firm_id")
	}
	if strings.TrimSpace(in.RequestID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidUsagePayload, "usage record missing request_id")
	}

	// 防御性校验：负数 token 归零，不中断调用方
	if in.InputTokens < 0 {
		logger.Warn(ctx, "negative input token count clamped", "firm_id", firmID, "request_id", in.RequestID)
		in.InputTokens = 0
	}
	if in.OutputTokens < 0 {
		logger.Warn(ctx, "negative output token count clamped", "firm_id", firmID, "request_id", in.RequestID)
		in.OutputTokens = 0
	}

	inputCost, outputCost := l.pricing.Cost(in.ModelID, in.InputTokens, in.OutputTokens)

	record := &entity.UsageRecord{
		ID:           uuid.NewString(),
		FirmID:       firmID,
		UserID:       strings.TrimSpace(in.UserID),
		ServiceName:  strings.TrimSpace(in.ServiceName),
		ModelID:      strings.TrimSpace(in.ModelID),
		InputTokens:  in.InputTokens,
		OutputTokens: in.OutputTokens,
		TotalTokens:  in.InputTokens + in.OutputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
		RequestID:    strings.TrimSpace(in.RequestID),
		Endpoint:     strings.TrimSpace(in.Endpoint),
	}

	if err := l.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateRequestID) {
			logger.Warn(ctx, "duplicate usage record ignored",
				"firm_id", firmID, "request_id", record.RequestID)
			// 返回已落库的那条流水，调用方拿到的 ID 必须真实存在
			stored, lookupErr := l.repo.FindByRequestID(ctx, record.RequestID)
			if lookupErr != nil {
				logger.Warn(ctx, "failed to load stored duplicate record",
					"request_id", record.RequestID, "error", lookupErr.Error())
				record.ID = ""
				return record, nil
			}
			return stored, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUsageRecordFailed, "failed to record usage")
	}

	metrics.UsageTokensTotal.WithLabelValues(firmID, record.ModelID, "input").Add(float64(record.InputTokens))
	metrics.UsageTokensTotal.WithLabelValues(firmID, record.ModelID, "output").Add(float64(record.OutputTokens))
	metrics.UsageCostTotal.WithLabelValues(firmID, record.ModelID).Add(record.TotalCost)

	logger.Info(ctx, "usage recorded",
		"firm_id", firmID,
		"model", record.ModelID,
		"total_tokens", record.TotalTokens,
		"total_cost", record.TotalCost,
	)

	// 写入后评估预算，越限只告警不拦截
	status := l.Status(ctx, firmID)
	switch status.Status {
	case StatusCritical:
		logger.Error(ctx, "firm daily budget critical", nil,
			"firm_id", firmID, "spend", status.PeriodSpend, "budget", status.PeriodBudget)
	case StatusWarning:
		logger.Warn(ctx, "firm daily budget warning",
			"firm_id", firmID, "spend", status.PeriodSpend, "budget", status.PeriodBudget)
	}

	return record, nil
}

// Status 当日预算状态。每次从新鲜聚合查询派生；
// 聚合失败时降级为 unknown，不向调用方报错。
func (l *Ledger) Status(ctx context.Context, firmID string) BudgetStatus {
	budget := l.DailyBudget()
	status := BudgetStatus{
		FirmID:       firmID,
		PeriodBudget: budget,
		Status:       StatusHealthy,
	}

	start, end := l.todayWindow()
	spend, err := l.repo.SumCost(ctx, firmID, start, end)
	if err != nil {
		logger.Error(ctx, "budget aggregation failed, status degraded to unknown", err, "firm_id", firmID)
		status.Status = StatusUnknown
		metrics.BudgetStatusChecks.WithLabelValues(firmID, string(StatusUnknown)).Inc()
		return status
	}

	status.PeriodSpend = spend
	if budget > 0 {
		switch ratio := spend / budget; {
		case ratio >= l.cfg.CriticalThreshold:
			status.Status = StatusCritical
		case ratio >= l.cfg.WarningThreshold:
			status.Status = StatusWarning
		}
	}

	metrics.BudgetStatusChecks.WithLabelValues(firmID, string(status.Status)).Inc()
	return status
}

// RealTimeCosts 当日与当前小时的实时成本视图
type RealTimeCosts struct {
	FirmID string `json:"firm_id"`
	Today  struct {
		Cost              float64 `json:"cost"`
		Tokens            int64   `json:"tokens"`
		Requests          int64   `json:"requests"`
		AvgCostPerRequest float64 `json:"avg_cost_per_request"`
	} `json:"today"`
	CurrentHour struct {
		Cost     float64 `json:"cost"`
		Requests int64   `json:"requests"`
	} `json:"current_hour"`
	Budget struct {
		DailyLimit     float64 `json:"daily_limit"`
		UsedAmount     float64 `json:"used_amount"`
		Remaining      float64 `json:"remaining"`
		UsedPercentage float64 `json:"used_percentage"`
		Status         Status  `json:"status"`
	} `json:"budget"`
	Efficiency struct {
		TargetCostPerDocument float64 `json:"target_cost_per_document"`
		ActualCostPerDocument float64 `json:"actual_cost_per_document"`
		OnTarget              bool    `json:"on_target"`
	} `json:"efficiency"`
}

// RealTimeCosts 返回当日实时成本视图
func (l *Ledger) RealTimeCosts(ctx context.Context, firmID string) (*RealTimeCosts, error) {
	dayStart, dayEnd := l.todayWindow()
	today, err := l.repo.Totals(ctx, firmID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAggregationFailed, "failed to aggregate daily usage")
	}

	now := l.now().UTC()
	hourStart := now.Truncate(time.Hour)
	hour, err := l.repo.Totals(ctx, firmID, hourStart, hourStart.Add(time.Hour))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAggregationFailed, "failed to aggregate hourly usage")
	}

	budget := l.DailyBudget()
	out := &RealTimeCosts{FirmID: firmID}
	out.Today.Cost = today.Cost
	out.Today.Tokens = today.Tokens
	out.Today.Requests = today.Requests
	out.Today.AvgCostPerRequest = safeDiv(today.Cost, float64(today.Requests))

	out.CurrentHour.Cost = hour.Cost
	out.CurrentHour.Requests = hour.Requests

	out.Budget.DailyLimit = budget
	out.Budget.UsedAmount = today.Cost
	out.Budget.Remaining = max(0, budget-today.Cost)
	if budget > 0 {
		out.Budget.UsedPercentage = today.Cost / budget * 100
	}
	out.Budget.Status = statusForRatio(today.Cost, budget, l.cfg.WarningThreshold, l.cfg.CriticalThreshold)

	actualPerDoc := safeDiv(today.Cost, float64(today.Requests))
	out.Efficiency.TargetCostPerDocument = l.cfg.TargetCostPerDocument
	out.Efficiency.ActualCostPerDocument = actualPerDoc
	out.Efficiency.OnTarget = actualPerDoc <= l.cfg.TargetCostPerDocument

	return out, nil
}

// todayWindow 返回当日 UTC 的 [0点, 次日0点) 窗口
func (l *Ledger) todayWindow() (time.Time, time.Time) {
	now := l.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func statusForRatio(spend, budget, warnAt, criticalAt float64) Status {
	if budget <= 0 {
		return StatusHealthy
	}
	switch ratio := spend / budget; {
	case ratio >= criticalAt:
		return StatusCritical
	case ratio >= warnAt:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
