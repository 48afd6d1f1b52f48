package config

import (
	"os"
	"testing"
)

// 配置文件缺失时 setDefaults 兜底生效
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "legal-intake-ai" {
		t.Errorf("app.name = %s", cfg.App.Name)
	}
	if cfg.Routing.CostEfficientModel != "gpt-4o-mini" {
		t.Errorf("cost_efficient_model = %s", cfg.Routing.CostEfficientModel)
	}
	if cfg.Routing.HighCapabilityModel != "claude-3-5-sonnet-20241022" {
		t.Errorf("high_capability_model = %s", cfg.Routing.HighCapabilityModel)
	}
	if cfg.Routing.ComplexityThreshold != 0.8 {
		t.Errorf("complexity_threshold = %v", cfg.Routing.ComplexityThreshold)
	}
	if cfg.Routing.LargeDocumentChars != 100000 {
		t.Errorf("large_document_chars = %d", cfg.Routing.LargeDocumentChars)
	}

	efficient, ok := cfg.Routing.Models["gpt-4o-mini"]
	if !ok {
		t.Fatal("gpt-4o-mini pricing missing")
	}
	if efficient.CostPer1KInput != 0.00015 || efficient.CostPer1KOutput != 0.0006 {
		t.Errorf("gpt-4o-mini pricing = %+v", efficient)
	}

	capable, ok := cfg.Routing.Models["claude-3-5-sonnet-20241022"]
	if !ok {
		t.Fatal("claude-3-5-sonnet-20241022 pricing missing")
	}
	if capable.MaxContextTokens != 200000 {
		t.Errorf("max_context_tokens = %d", capable.MaxContextTokens)
	}
	if len(capable.ForcedTaskTypes) != 4 {
		t.Errorf("forced_task_types = %v", capable.ForcedTaskTypes)
	}

	if cfg.Budget.DailyTokenBudget != 1000000 {
		t.Errorf("daily_token_budget = %d", cfg.Budget.DailyTokenBudget)
	}
	if cfg.Budget.WarningThreshold != 0.80 || cfg.Budget.CriticalThreshold != 0.95 {
		t.Errorf("thresholds = %v/%v", cfg.Budget.WarningThreshold, cfg.Budget.CriticalThreshold)
	}
	if cfg.Budget.FallbackCostPer1KInput != 0.001 || cfg.Budget.FallbackCostPer1KOutput != 0.002 {
		t.Errorf("fallback pricing = %v/%v", cfg.Budget.FallbackCostPer1KInput, cfg.Budget.FallbackCostPer1KOutput)
	}

	if !cfg.Redaction.Enabled || !cfg.Redaction.MedicalPatterns {
		t.Errorf("redaction defaults = %+v", cfg.Redaction)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("EXPAND_TEST_SET", "actual")
	os.Unsetenv("EXPAND_TEST_UNSET")

	tests := []struct {
		in   string
		want string
	}{
		{"${EXPAND_TEST_SET:fallback}", "actual"},
		{"${EXPAND_TEST_UNSET:fallback}", "fallback"},
		{"${EXPAND_TEST_UNSET:}", ""},
		{"${EXPAND_TEST_UNSET}", "${EXPAND_TEST_UNSET}"},
		{"plain text", "plain text"},
		{"host: ${EXPAND_TEST_SET:x}:5432", "host: actual:5432"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
