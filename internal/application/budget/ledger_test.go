package budget

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"legal-intake-ai/internal/domain/entity"
	"legal-intake-ai/internal/domain/repository"
	apperrors "legal-intake-ai/pkg/errors"
)

// fakeRepo 内存版用量仓储，聚合语义与 SQL 实现一致
type fakeRepo struct {
	records []*entity.UsageRecord
	// failAggregates 注入聚合查询失败
	failAggregates bool
}

var errAggregate = errors.New("aggregate query failed")

func (f *fakeRepo) Create(_ context.Context, record *entity.UsageRecord) error {
	for _, r := range f.records {
		if r.RequestID == record.RequestID {
			return repository.ErrDuplicateRequestID
		}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRepo) FindByRequestID(_ context.Context, requestID string) (*entity.UsageRecord, error) {
	for _, r := range f.records {
		if r.RequestID == requestID {
			return r, nil
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeRepo) inWindow(firmID string, start, end time.Time) []*entity.UsageRecord {
	var out []*entity.UsageRecord
	for _, r := range f.records {
		if r.FirmID == firmID && !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRepo) SumCost(_ context.Context, firmID string, start, end time.Time) (float64, error) {
	if f.failAggregates {
		return 0, errAggregate
	}
	var total float64
	for _, r := range f.inWindow(firmID, start, end) {
		total += r.TotalCost
	}
	return total, nil
}

func (f *fakeRepo) SumCostByModels(_ context.Context, firmID string, modelIDs []string, start, end time.Time) (float64, error) {
	if f.failAggregates {
		return 0, errAggregate
	}
	ids := make(map[string]bool, len(modelIDs))
	for _, id := range modelIDs {
		ids[id] = true
	}
	var total float64
	for _, r := range f.inWindow(firmID, start, end) {
		if ids[r.ModelID] {
			total += r.TotalCost
		}
	}
	return total, nil
}

func (f *fakeRepo) Totals(_ context.Context, firmID string, start, end time.Time) (repository.UsageTotals, error) {
	if f.failAggregates {
		return repository.UsageTotals{}, errAggregate
	}
	var t repository.UsageTotals
	for _, r := range f.inWindow(firmID, start, end) {
		t.Tokens += int64(r.TotalTokens)
		t.Cost += r.TotalCost
		t.Requests++
	}
	return t, nil
}

func (f *fakeRepo) BreakdownByService(_ context.Context, firmID string, start, end time.Time) ([]repository.UsageBreakdownRow, error) {
	return f.breakdown(firmID, start, end, func(r *entity.UsageRecord) string { return r.ServiceName })
}

func (f *fakeRepo) BreakdownByModel(_ context.Context, firmID string, start, end time.Time) ([]repository.UsageBreakdownRow, error) {
	return f.breakdown(firmID, start, end, func(r *entity.UsageRecord) string { return r.ModelID })
}

func (f *fakeRepo) breakdown(firmID string, start, end time.Time, key func(*entity.UsageRecord) string) ([]repository.UsageBreakdownRow, error) {
	if f.failAggregates {
		return nil, errAggregate
	}
	grouped := make(map[string]*repository.UsageBreakdownRow)
	var order []string
	for _, r := range f.inWindow(firmID, start, end) {
		k := key(r)
		row, ok := grouped[k]
		if !ok {
			row = &repository.UsageBreakdownRow{Key: k}
			grouped[k] = row
			order = append(order, k)
		}
		row.Tokens += int64(r.TotalTokens)
		row.Cost += r.TotalCost
		row.Requests++
	}
	out := make([]repository.UsageBreakdownRow, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out, nil
}

func (f *fakeRepo) DailyTrend(_ context.Context, firmID string, start, end time.Time) ([]repository.DailyUsageRow, error) {
	if f.failAggregates {
		return nil, errAggregate
	}
	grouped := make(map[time.Time]*repository.DailyUsageRow)
	var order []time.Time
	for _, r := range f.inWindow(firmID, start, end) {
		day := r.CreatedAt.UTC().Truncate(24 * time.Hour)
		row, ok := grouped[day]
		if !ok {
			row = &repository.DailyUsageRow{Day: day}
			grouped[day] = row
			order = append(order, day)
		}
		row.Tokens += int64(r.TotalTokens)
		row.Cost += r.TotalCost
		row.Requests++
	}
	out := make([]repository.DailyUsageRow, 0, len(order))
	for _, day := range order {
		out = append(out, *grouped[day])
	}
	return out, nil
}

// fixedPricer 测试用定价
type fixedPricer struct {
	per1kIn, per1kOut float64
}

func (p fixedPricer) Cost(_ string, inputTokens, outputTokens int) (float64, float64) {
	return float64(inputTokens) / 1000 * p.per1kIn, float64(outputTokens) / 1000 * p.per1kOut
}

func testConfig() Config {
	return Config{
		DailyTokenBudget:      5000, // 5000 token × $2.0/1k = $10 日预算
		ApproxCostPer1KTokens: 2.0,
		WarningThreshold:      0.80,
		CriticalThreshold:     0.95,
		TargetCostPerDocument: 0.006,
		CostEfficientModel:    "gpt-4o-mini",
		HighCapabilityModel:   "claude-3-5-sonnet-20241022",
	}
}

func newTestLedger(repo repository.UsageRecordRepository, pricer Pricer) *Ledger {
	l := NewLedger(repo, pricer, testConfig())
	l.now = func() time.Time {
		return time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	}
	return l
}

func seedSpend(t *testing.T, l *Ledger, repo *fakeRepo, firmID string, cost float64) {
	t.Helper()
	repo.records = append(repo.records, &entity.UsageRecord{
		ID:        "seed-" + firmID,
		FirmID:    firmID,
		RequestID: "seed-" + firmID,
		TotalCost: cost,
		CreatedAt: l.now().Add(-time.Hour),
	})
}

func TestRecordComputesCost(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{per1kIn: 0.003, per1kOut: 0.015})

	rec, err := l.Record(context.Background(), RecordInput{
		FirmID:       "firm-1",
		ModelID:      "claude-3-5-sonnet-20241022",
		InputTokens:  2000,
		OutputTokens: 1000,
		RequestID:    "req-1",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if math.Abs(rec.InputCost-0.006) > 1e-12 || math.Abs(rec.OutputCost-0.015) > 1e-12 {
		t.Errorf("costs = %v/%v, want 0.006/0.015", rec.InputCost, rec.OutputCost)
	}
	if math.Abs(rec.TotalCost-0.021) > 1e-12 {
		t.Errorf("total = %v, want 0.021", rec.TotalCost)
	}
	if rec.TotalTokens != 3000 {
		t.Errorf("tokens = %d, want 3000", rec.TotalTokens)
	}
	if len(repo.records) != 1 {
		t.Fatalf("records = %d, want 1", len(repo.records))
	}
}

func TestRecordClampsNegativeTokens(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{per1kIn: 1, per1kOut: 1})

	rec, err := l.Record(context.Background(), RecordInput{
		FirmID:       "firm-1",
		ModelID:      "m",
		InputTokens:  -5,
		OutputTokens: -7,
		RequestID:    "req-neg",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.TotalTokens != 0 || rec.TotalCost != 0 {
		t.Errorf("negative tokens not clamped: %+v", rec)
	}
}

func TestRecordRejectsMissingIdentifiers(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})

	for _, in := range []RecordInput{
		{ModelID: "m", RequestID: "r"},
		{FirmID: "f", ModelID: "m"},
	} {
		_, err := l.Record(context.Background(), in)
		if err == nil {
			t.Fatalf("expected error for %+v", in)
		}
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("error %v is not an AppError", err)
		}
		if appErr.Code != apperrors.CodeInvalidUsagePayload {
			t.Errorf("code = %s, want %s", appErr.Code, apperrors.CodeInvalidUsagePayload)
		}
	}
}

// request_id 重复幂等忽略：不报错，不产生第二条流水，返回已落库的那条
func TestRecordDuplicateRequestID(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{per1kIn: 1, per1kOut: 1})

	in := RecordInput{FirmID: "firm-1", ModelID: "m", InputTokens: 100, OutputTokens: 100, RequestID: "dup"}
	first, err := l.Record(context.Background(), in)
	if err != nil {
		t.Fatalf("first Record: %v", err)
	}
	rec, err := l.Record(context.Background(), in)
	if err != nil {
		t.Fatalf("duplicate Record should not error: %v", err)
	}
	if rec == nil {
		t.Fatal("duplicate Record should still return a record")
	}
	if rec.ID != first.ID {
		t.Errorf("duplicate returned ID %q, want stored ID %q", rec.ID, first.ID)
	}
	if len(repo.records) != 1 {
		t.Errorf("duplicate created a second row: %d", len(repo.records))
	}
}

func TestStatusThresholds(t *testing.T) {
	tests := []struct {
		name  string
		spend float64
		want  Status
	}{
		{"healthy", 5.00, StatusHealthy},
		{"just below warning", 7.99, StatusHealthy},
		{"at warning", 8.00, StatusWarning},
		{"just below critical", 9.49, StatusWarning},
		{"at critical", 9.50, StatusCritical},
		{"over budget", 12.00, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			l := newTestLedger(repo, fixedPricer{})
			seedSpend(t, l, repo, "firm-1", tt.spend)

			status := l.Status(context.Background(), "firm-1")
			if status.Status != tt.want {
				t.Errorf("spend %.2f of $%.2f: status = %s, want %s",
					tt.spend, status.PeriodBudget, status.Status, tt.want)
			}
			if status.PeriodBudget != 10.0 {
				t.Errorf("budget = %v, want 10.0", status.PeriodBudget)
			}
			if status.PeriodSpend != tt.spend {
				t.Errorf("spend = %v, want %v", status.PeriodSpend, tt.spend)
			}
		})
	}
}

// 聚合失败降级为 unknown，不向调用方报错
func TestStatusUnknownOnAggregationFailure(t *testing.T) {
	repo := &fakeRepo{failAggregates: true}
	l := newTestLedger(repo, fixedPricer{})

	status := l.Status(context.Background(), "firm-1")
	if status.Status != StatusUnknown {
		t.Errorf("status = %s, want unknown", status.Status)
	}
}

// 预算状态每次从仓储重新派生：外部写入立即可见
func TestStatusDerivedFresh(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})

	if s := l.Status(context.Background(), "firm-1"); s.Status != StatusHealthy {
		t.Fatalf("initial status = %s", s.Status)
	}

	seedSpend(t, l, repo, "firm-1", 9.60)
	if s := l.Status(context.Background(), "firm-1"); s.Status != StatusCritical {
		t.Errorf("status after external write = %s, want critical", s.Status)
	}
}

func TestStatusIsolatedPerFirm(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})
	seedSpend(t, l, repo, "firm-a", 9.60)

	if s := l.Status(context.Background(), "firm-a"); s.Status != StatusCritical {
		t.Errorf("firm-a status = %s, want critical", s.Status)
	}
	if s := l.Status(context.Background(), "firm-b"); s.Status != StatusHealthy {
		t.Errorf("firm-b status = %s, want healthy", s.Status)
	}
}

func TestRealTimeCosts(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})

	now := l.now()
	repo.records = append(repo.records,
		&entity.UsageRecord{ID: "1", FirmID: "firm-1", RequestID: "1", TotalCost: 4.0, TotalTokens: 2000, CreatedAt: now.Add(-10 * time.Hour)},
		&entity.UsageRecord{ID: "2", FirmID: "firm-1", RequestID: "2", TotalCost: 2.0, TotalTokens: 1000, CreatedAt: now.Add(-5 * time.Minute)},
	)

	costs, err := l.RealTimeCosts(context.Background(), "firm-1")
	if err != nil {
		t.Fatalf("RealTimeCosts: %v", err)
	}
	if costs.Today.Cost != 6.0 || costs.Today.Requests != 2 {
		t.Errorf("today = %+v", costs.Today)
	}
	if costs.CurrentHour.Cost != 2.0 || costs.CurrentHour.Requests != 1 {
		t.Errorf("current hour = %+v", costs.CurrentHour)
	}
	if costs.Budget.Remaining != 4.0 {
		t.Errorf("remaining = %v, want 4.0", costs.Budget.Remaining)
	}
	if math.Abs(costs.Budget.UsedPercentage-60.0) > 1e-9 {
		t.Errorf("used pct = %v, want 60", costs.Budget.UsedPercentage)
	}
	if costs.Efficiency.OnTarget {
		t.Error("avg cost per request 3.0 should be over 0.006 target")
	}
}

func TestUsageReport(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})

	now := l.now()
	repo.records = append(repo.records,
		&entity.UsageRecord{ID: "1", FirmID: "firm-1", RequestID: "1", ServiceName: "intake", ModelID: "gpt-4o-mini", TotalCost: 1.0, TotalTokens: 1000, CreatedAt: now.Add(-48 * time.Hour)},
		&entity.UsageRecord{ID: "2", FirmID: "firm-1", RequestID: "2", ServiceName: "intake", ModelID: "claude-3-5-sonnet-20241022", TotalCost: 3.0, TotalTokens: 500, CreatedAt: now.Add(-24 * time.Hour)},
		&entity.UsageRecord{ID: "3", FirmID: "firm-1", RequestID: "3", ServiceName: "analysis", ModelID: "claude-3-5-sonnet-20241022", TotalCost: 2.0, TotalTokens: 400, CreatedAt: now.Add(-time.Hour)},
	)

	start := now.Add(-72 * time.Hour)
	report, err := l.UsageReport(context.Background(), "firm-1", start, now)
	if err != nil {
		t.Fatalf("UsageReport: %v", err)
	}

	if report.Summary.TotalCost != 6.0 || report.Summary.TotalRequests != 3 || report.Summary.TotalTokens != 1900 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.AvgCostPerRequest != 2.0 {
		t.Errorf("avg per request = %v, want 2.0", report.Summary.AvgCostPerRequest)
	}
	if got := report.ServiceBreakdown["intake"]; got.Cost != 4.0 || got.Requests != 2 {
		t.Errorf("intake breakdown = %+v", got)
	}
	if got := report.ModelBreakdown["claude-3-5-sonnet-20241022"]; got.Cost != 5.0 {
		t.Errorf("model breakdown = %+v", got)
	}
	if len(report.DailyUsage) != 3 {
		t.Errorf("daily buckets = %d, want 3", len(report.DailyUsage))
	}
	if report.BudgetAnalysis.EfficiencyRatio != 0.006/2.0 {
		t.Errorf("efficiency ratio = %v", report.BudgetAnalysis.EfficiencyRatio)
	}
}

func TestUsageReportRejectsInvalidWindow(t *testing.T) {
	l := newTestLedger(&fakeRepo{}, fixedPricer{})

	now := l.now()
	if _, err := l.UsageReport(context.Background(), "firm-1", now, now); err == nil {
		t.Error("expected error for empty window")
	}
}

func TestGenerateReportRecommendations(t *testing.T) {
	repo := &fakeRepo{}
	l := newTestLedger(repo, fixedPricer{})

	now := l.now()
	// 高能力模型支出远超低成本模型，且单件成本超目标
	repo.records = append(repo.records,
		&entity.UsageRecord{ID: "1", FirmID: "firm-1", RequestID: "1", ModelID: "claude-3-5-sonnet-20241022", ServiceName: "analysis", TotalCost: 8.0, CreatedAt: now.Add(-time.Hour)},
		&entity.UsageRecord{ID: "2", FirmID: "firm-1", RequestID: "2", ModelID: "gpt-4o-mini", ServiceName: "intake", TotalCost: 1.0, CreatedAt: now.Add(-2 * time.Hour)},
	)

	report, err := l.GenerateReport(context.Background(), "firm-1", ReportWeekly)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report.ReportType != ReportWeekly || report.PeriodDays != 7 {
		t.Errorf("period = %s/%d", report.ReportType, report.PeriodDays)
	}
	if len(report.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", report.Recommendations)
	}

	// 均衡支出时无模型占比建议
	repo2 := &fakeRepo{records: []*entity.UsageRecord{
		{ID: "1", FirmID: "firm-2", RequestID: "1", ModelID: "claude-3-5-sonnet-20241022", TotalCost: 0.002, CreatedAt: now.Add(-time.Hour)},
		{ID: "2", FirmID: "firm-2", RequestID: "2", ModelID: "gpt-4o-mini", TotalCost: 0.002, CreatedAt: now.Add(-2 * time.Hour)},
	}}
	l2 := newTestLedger(repo2, fixedPricer{})
	report2, err := l2.GenerateReport(context.Background(), "firm-2", ReportDaily)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if len(report2.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", report2.Recommendations)
	}

	// 未知周期按 monthly 处理
	report3, err := l2.GenerateReport(context.Background(), "firm-2", "quarterly")
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if report3.ReportType != ReportMonthly || report3.PeriodDays != 30 {
		t.Errorf("fallback period = %s/%d", report3.ReportType, report3.PeriodDays)
	}
}
