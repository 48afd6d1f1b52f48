package budget

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"legal-intake-ai/internal/domain/repository"
	apperrors "legal-intake-ai/pkg/errors"
)

// 报表周期类型
const (
	ReportDaily   = "daily"
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
)

// Summary 报表期内的汇总指标
type Summary struct {
	TotalTokens       int64   `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	TotalRequests     int64   `json:"total_requests"`
	AvgDailyCost      float64 `json:"avg_daily_cost"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
	PeriodDays        int     `json:"period_days"`
}

// Breakdown 单一维度取值（服务名或模型）下的汇总
type Breakdown struct {
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
	Requests int64   `json:"requests"`
}

// DailyUsage 按天聚合的用量
type DailyUsage struct {
	Date     string  `json:"date"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
	Requests int64   `json:"requests"`
}

// BudgetAnalysis 预算与效率分析
type BudgetAnalysis struct {
	DailyBudget           float64 `json:"daily_budget"`
	CurrentUsagePct       float64 `json:"current_usage_pct"`
	TargetCostPerDocument float64 `json:"target_cost_per_document"`
	ActualCostPerDocument float64 `json:"actual_cost_per_document"`
	// EfficiencyRatio 目标/实际单件成本比，>=1 表示达标
	EfficiencyRatio float64 `json:"efficiency_ratio"`
}

// UsageReport 时间范围内的用量明细报表
type UsageReport struct {
	FirmID           string               `json:"firm_id"`
	Start            time.Time            `json:"start"`
	End              time.Time            `json:"end"`
	Summary          Summary              `json:"summary"`
	ServiceBreakdown map[string]Breakdown `json:"service_breakdown"`
	ModelBreakdown   map[string]Breakdown `json:"model_breakdown"`
	DailyUsage       []DailyUsage         `json:"daily_usage"`
	BudgetAnalysis   BudgetAnalysis       `json:"budget_analysis"`
}

// CostReport 按周期生成的成本报表（含优化建议）
type CostReport struct {
	ReportType      string    `json:"report_type"`
	FirmID          string    `json:"firm_id"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	PeriodDays      int       `json:"period_days"`
	GeneratedAt     time.Time `json:"generated_at"`
	Usage           *UsageReport
	Recommendations []string `json:"recommendations"`
}

// UsageReport 生成 [start, end) 的用量报表。
// 各聚合查询并发执行，任一失败则整体失败（报表要求完整数据）。
func (l *Ledger) UsageReport(ctx context.Context, firmID string, start, end time.Time) (*UsageReport, error) {
	if !end.After(start) {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "invalid report window: end must be after start")
	}

	var (
		totals    repository.UsageTotals
		byService []repository.UsageBreakdownRow
		byModel   []repository.UsageBreakdownRow
		daily     []repository.DailyUsageRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = l.repo.Totals(gctx, firmID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		byService, err = l.repo.BreakdownByService(gctx, firmID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		byModel, err = l.repo.BreakdownByModel(gctx, firmID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = l.repo.DailyTrend(gctx, firmID, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAggregationFailed, "failed to aggregate usage report")
	}

	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}

	report := &UsageReport{
		FirmID:           firmID,
		Start:            start,
		End:              end,
		ServiceBreakdown: breakdownMap(byService),
		ModelBreakdown:   breakdownMap(byModel),
		DailyUsage:       make([]DailyUsage, 0, len(daily)),
	}

	report.Summary = Summary{
		TotalTokens:       totals.Tokens,
		TotalCost:         totals.Cost,
		TotalRequests:     totals.Requests,
		AvgDailyCost:      totals.Cost / float64(days),
		AvgCostPerRequest: safeDiv(totals.Cost, float64(totals.Requests)),
		PeriodDays:        days,
	}

	for _, row := range daily {
		report.DailyUsage = append(report.DailyUsage, DailyUsage{
			Date:     row.Day.Format("2006-01-02"),
			Tokens:   row.Tokens,
			Cost:     row.Cost,
			Requests: row.Requests,
		})
	}

	budget := l.DailyBudget()
	actualPerDoc := safeDiv(totals.Cost, float64(totals.Requests))
	report.BudgetAnalysis = BudgetAnalysis{
		DailyBudget:           budget,
		TargetCostPerDocument: l.cfg.TargetCostPerDocument,
		ActualCostPerDocument: actualPerDoc,
		EfficiencyRatio:       l.cfg.TargetCostPerDocument / math.Max(actualPerDoc, 0.001),
	}
	if budget > 0 {
		report.BudgetAnalysis.CurrentUsagePct = report.Summary.AvgDailyCost / budget * 100
	}

	return report, nil
}

// GenerateReport 生成指定周期的成本报表。
// reportType: daily(1天) / weekly(7天) / monthly(30天)，其余值按 monthly 处理。
func (l *Ledger) GenerateReport(ctx context.Context, firmID, reportType string) (*CostReport, error) {
	now := l.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	var days int
	switch strings.ToLower(reportType) {
	case ReportDaily:
		days = 1
	case ReportWeekly:
		days = 7
	case ReportMonthly:
		days = 30
	default:
		reportType = ReportMonthly
		days = 30
	}
	start := end.AddDate(0, 0, -days)

	usage, err := l.UsageReport(ctx, firmID, start, end)
	if err != nil {
		return nil, err
	}

	recommendations, err := l.recommendations(ctx, firmID, usage, start, end)
	if err != nil {
		return nil, err
	}

	return &CostReport{
		ReportType:      reportType,
		FirmID:          firmID,
		PeriodStart:     start,
		PeriodEnd:       end,
		PeriodDays:      days,
		GeneratedAt:     now,
		Usage:           usage,
		Recommendations: recommendations,
	}, nil
}

// recommendations 根据报表数据产出成本优化建议
func (l *Ledger) recommendations(ctx context.Context, firmID string, usage *UsageReport, start, end time.Time) ([]string, error) {
	recs := make([]string, 0, 2)

	if usage.BudgetAnalysis.ActualCostPerDocument > l.cfg.TargetCostPerDocument {
		recs = append(recs, fmt.Sprintf(
			"Cost per document ($%.4f) exceeds target ($%.4f); review routing thresholds to shift more traffic to %s",
			usage.BudgetAnalysis.ActualCostPerDocument, l.cfg.TargetCostPerDocument, l.cfg.CostEfficientModel))
	}

	if l.cfg.HighCapabilityModel != "" && l.cfg.CostEfficientModel != "" {
		highSpend, err := l.repo.SumCostByModels(ctx, firmID, []string{l.cfg.HighCapabilityModel}, start, end)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeAggregationFailed, "failed to aggregate model spend")
		}
		efficientSpend, err := l.repo.SumCostByModels(ctx, firmID, []string{l.cfg.CostEfficientModel}, start, end)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeAggregationFailed, "failed to aggregate model spend")
		}
		if highSpend > 2*efficientSpend && highSpend > 0 {
			recs = append(recs, fmt.Sprintf(
				"Spend on %s ($%.2f) is more than double spend on %s ($%.2f); verify complexity scoring is not over-routing",
				l.cfg.HighCapabilityModel, highSpend, l.cfg.CostEfficientModel, efficientSpend))
		}
	}

	return recs, nil
}

func breakdownMap(rows []repository.UsageBreakdownRow) map[string]Breakdown {
	m := make(map[string]Breakdown, len(rows))
	for _, row := range rows {
		m[row.Key] = Breakdown{
			Tokens:   row.Tokens,
			Cost:     row.Cost,
			Requests: row.Requests,
		}
	}
	return m
}
