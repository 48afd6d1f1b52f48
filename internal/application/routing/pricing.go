package routing

// ModelProfile 单个模型的静态定价与限制
type ModelProfile struct {
	ModelID          string   `json:"model_id"`
	CostPer1KInput   float64  `json:"cost_per_1k_input"`
	CostPer1KOutput  float64  `json:"cost_per_1k_output"`
	MaxContextTokens int      `json:"max_context_tokens"`
	ForcedTaskTypes  []string `json:"forced_task_types,omitempty"`
}

// 未注册模型的兜底定价：成本计算绝不因未知模型失败
const (
	DefaultFallbackCostPer1KInput  = 0.001
	DefaultFallbackCostPer1KOutput = 0.002
)

// Table 只读定价表。构造后不可变，可被任意并发调用方共享。
type Table struct {
	profiles map[string]ModelProfile
	fallback ModelProfile
}

// NewTable 创建定价表。fallbackIn/fallbackOut 为零时使用包默认兜底价。
func NewTable(profiles []ModelProfile, fallbackIn, fallbackOut float64) *Table {
	if fallbackIn <= 0 {
		fallbackIn = DefaultFallbackCostPer1KInput
	}
	if fallbackOut <= 0 {
		fallbackOut = DefaultFallbackCostPer1KOutput
	}

	m := make(map[string]ModelProfile, len(profiles))
	for _, p := range profiles {
		m[p.ModelID] = p
	}
	return &Table{
		profiles: m,
		fallback: ModelProfile{
			CostPer1KInput:  fallbackIn,
			CostPer1KOutput: fallbackOut,
		},
	}
}

// Lookup 查询模型定价。未注册模型返回兜底定价，ok 为 false。
func (t *Table) Lookup(modelID string) (ModelProfile, bool) {
	if p, ok := t.profiles[modelID]; ok {
		return p, true
	}
	p := t.fallback
	p.ModelID = modelID
	return p, false
}

// Cost 按定价表计算输入/输出成本
func (t *Table) Cost(modelID string, inputTokens, outputTokens int) (inputCost, outputCost float64) {
	p, _ := t.Lookup(modelID)
	inputCost = float64(inputTokens) / 1000 * p.CostPer1KInput
	outputCost = float64(outputTokens) / 1000 * p.CostPer1KOutput
	return inputCost, outputCost
}
