package routing

import (
	"math"
	"strings"
	"testing"
)

const (
	testCostEfficient  = "gpt-4o-mini"
	testHighCapability = "claude-3-5-sonnet-20241022"
)

func newTestRouter() *Router {
	table := NewTable([]ModelProfile{
		{
			ModelID:          testCostEfficient,
			CostPer1KInput:   0.00015,
			CostPer1KOutput:  0.0006,
			MaxContextTokens: 128000,
		},
		{
			ModelID:          testHighCapability,
			CostPer1KInput:   0.003,
			CostPer1KOutput:  0.015,
			MaxContextTokens: 200000,
			ForcedTaskTypes: []string{
				"legal_reasoning", "case_merit_analysis", "complex_analysis", "liability_assessment",
			},
		},
	}, 0, 0)
	return NewRouter(table, NewEstimator(), Options{
		CostEfficientModel:  testCostEfficient,
		HighCapabilityModel: testHighCapability,
		ComplexityThreshold: 0.8,
		LargeDocumentChars:  100000,
	})
}

// 强制任务类型即使文本极短也必须走高能力模型
func TestRouteForcedTaskType(t *testing.T) {
	r := newTestRouter()

	d := r.Route("case_merit_analysis", "short note", 1000, nil)
	if d.SelectedModel != testHighCapability {
		t.Errorf("selected = %s, want %s", d.SelectedModel, testHighCapability)
	}
	if !strings.Contains(d.Reasoning, "advanced reasoning") {
		t.Errorf("unexpected reasoning: %s", d.Reasoning)
	}
}

func TestRouteStandardTask(t *testing.T) {
	r := newTestRouter()

	d := r.Route("document_classification", "classify this intake form", 500, nil)
	if d.SelectedModel != testCostEfficient {
		t.Errorf("selected = %s, want %s", d.SelectedModel, testCostEfficient)
	}
	if !strings.Contains(d.Reasoning, "optimized for cost") {
		t.Errorf("unexpected reasoning: %s", d.Reasoning)
	}
}

func TestRouteHighComplexityScore(t *testing.T) {
	r := newTestRouter()

	// 未知任务 0.5 + >50k 长度 0.3 + 提示 0.2 = 1.0 > 0.8
	content := strings.Repeat("x", 50001)
	d := r.Route("unknown_task", content, 500, &Hints{RequiresReasoning: true})
	if d.SelectedModel != testHighCapability {
		t.Errorf("selected = %s, want %s (score %v)", d.SelectedModel, testHighCapability, d.ComplexityScore)
	}
}

// 大文档即使复杂度低也走高能力模型（上下文窗口）
func TestRouteLargeDocument(t *testing.T) {
	r := newTestRouter()

	content := strings.Repeat("x", 100001)
	d := r.Route("document_classification", content, 500, nil)
	if d.SelectedModel != testHighCapability {
		t.Errorf("selected = %s, want %s", d.SelectedModel, testHighCapability)
	}
	if !strings.Contains(d.Reasoning, "context window") {
		t.Errorf("unexpected reasoning: %s", d.Reasoning)
	}

	// 阈值处不触发
	boundary := strings.Repeat("x", 100000)
	d = r.Route("document_classification", boundary, 500, nil)
	if d.SelectedModel != testCostEfficient {
		t.Errorf("exactly at threshold should stay cost-efficient, got %s", d.SelectedModel)
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := newTestRouter()

	content := strings.Repeat("liability negligence causation ", 400)
	first := r.Route("legal_reasoning", content, 2000, &Hints{HighStakes: true})
	for i := 0; i < 10; i++ {
		if got := r.Route("legal_reasoning", content, 2000, &Hints{HighStakes: true}); got != first {
			t.Fatalf("decision changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestRouteCostEstimate(t *testing.T) {
	r := newTestRouter()

	content := "classify this"
	d := r.Route("document_classification", content, 1000, nil)

	inputTokens := r.EstimateTokens(content, d.SelectedModel)
	wantCost := float64(inputTokens)/1000*0.00015 + float64(1000)/1000*0.0006
	if math.Abs(d.EstimatedCost-wantCost) > 1e-12 {
		t.Errorf("cost = %v, want %v", d.EstimatedCost, wantCost)
	}
	if d.EstimatedTokens != inputTokens+1000 {
		t.Errorf("tokens = %d, want %d", d.EstimatedTokens, inputTokens+1000)
	}
}

func TestEstimateTokensCharApproximation(t *testing.T) {
	r := newTestRouter()

	// 高能力模型家族始终按 len/3.5 近似
	content := strings.Repeat("a", 700)
	if got := r.EstimateTokens(content, testHighCapability); got != 200 {
		t.Errorf("EstimateTokens = %d, want 200", got)
	}

	if got := r.EstimateTokens("", testHighCapability); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d, want 0", got)
	}
}

func TestPricingFallbackForUnknownModel(t *testing.T) {
	table := NewTable(nil, 0, 0)

	p, ok := table.Lookup("nonexistent-model")
	if ok {
		t.Error("unknown model reported as registered")
	}
	if p.CostPer1KInput != DefaultFallbackCostPer1KInput || p.CostPer1KOutput != DefaultFallbackCostPer1KOutput {
		t.Errorf("fallback profile = %+v", p)
	}

	in, out := table.Cost("nonexistent-model", 10000, 2000)
	if in != 0.01 || out != 0.004 {
		t.Errorf("fallback cost = %v/%v, want 0.01/0.004", in, out)
	}
}

func TestPricingCostFormula(t *testing.T) {
	table := NewTable([]ModelProfile{
		{ModelID: "m", CostPer1KInput: 0.003, CostPer1KOutput: 0.015},
	}, 0, 0)

	in, out := table.Cost("m", 2000, 1000)
	if in != 0.006 || out != 0.015 {
		t.Errorf("cost = %v/%v, want 0.006/0.015", in, out)
	}

	in, out = table.Cost("m", 0, 0)
	if in != 0 || out != 0 {
		t.Errorf("zero tokens: cost = %v/%v", in, out)
	}
}
