package routing

import (
	"context"
	"fmt"
	"math"

	"github.com/pkoukk/tiktoken-go"

	"legal-intake-ai/pkg/logger"
)

// anthropicCharsPerToken 高能力模型家族无公开分词器，按字符数近似
const anthropicCharsPerToken = 3.5

// Decision 一次路由决策。不可变值，每请求产生一次，产生后不再修改。
type Decision struct {
	SelectedModel   string  `json:"selected_model"`
	Reasoning       string  `json:"reasoning"`
	ComplexityScore float64 `json:"complexity_score"`
	EstimatedCost   float64 `json:"estimated_cost"`
	EstimatedTokens int     `json:"estimated_tokens"`
}

// Options 路由器配置值
type Options struct {
	CostEfficientModel  string
	HighCapabilityModel string
	ComplexityThreshold float64
	LargeDocumentChars  int
}

// Router 模型路由器。构造后只读，Route 为纯确定性函数：
// 相同输入永远产生完全相同的决策（无时钟、无随机源）。
type Router struct {
	pricing   *Table
	estimator *Estimator
	opts      Options
	forced    map[string]struct{}
	// encoder 低成本模型家族的精确分词器；加载失败时为 nil，退化为字符近似
	encoder *tiktoken.Tiktoken
}

// NewRouter 创建路由器。
// 强制高能力任务集合取自高能力模型档案的 ForcedTaskTypes。
func NewRouter(pricing *Table, estimator *Estimator, opts Options) *Router {
	if opts.ComplexityThreshold <= 0 {
		opts.ComplexityThreshold = 0.8
	}
	if opts.LargeDocumentChars <= 0 {
		opts.LargeDocumentChars = 100000
	}

	forced := make(map[string]struct{})
	if profile, ok := pricing.Lookup(opts.HighCapabilityModel); ok {
		for _, taskType := range profile.ForcedTaskTypes {
			forced[taskType] = struct{}{}
		}
	}

	encoder, err := tiktoken.EncodingForModel(opts.CostEfficientModel)
	if err != nil {
		logger.Warn(context.Background(), "tokenizer unavailable, falling back to char approximation",
			"model", opts.CostEfficientModel, "error", err.Error())
		encoder = nil
	}

	return &Router{
		pricing:   pricing,
		estimator: estimator,
		opts:      opts,
		forced:    forced,
		encoder:   encoder,
	}
}

// EstimateTokens 估计内容的 token 数。
// 低成本模型家族走精确分词器，高能力模型家族按 len/3.5 取整近似。
func (r *Router) EstimateTokens(content, modelID string) int {
	if modelID == r.opts.CostEfficientModel && r.encoder != nil {
		return len(r.encoder.Encode(content, nil, nil))
	}
	return int(math.Round(float64(len(content)) / anthropicCharsPerToken))
}

// Route 选择服务该请求的模型并产出成本估计。
// 决策顺序（先命中者生效）：
//  1. 任务类型在强制集合，或复杂度超过阈值 -> 高能力模型
//  2. 内容超过大文档字符阈值 -> 高能力模型（上下文窗口）
//  3. 其余 -> 低成本模型
//
// 对任意字符串输入全函数，绝不报错。
func (r *Router) Route(taskType, content string, maxOutputTokens int, hints *Hints) Decision {
	score := r.estimator.Score(taskType, content, hints)

	var selected, reasoning string
	_, isForced := r.forced[taskType]
	switch {
	case isForced || score > r.opts.ComplexityThreshold:
		selected = r.opts.HighCapabilityModel
		reasoning = fmt.Sprintf("High complexity task (%.2f) requires advanced reasoning", score)
	case len(content) > r.opts.LargeDocumentChars:
		selected = r.opts.HighCapabilityModel
		reasoning = "Large document requires extended context window"
	default:
		selected = r.opts.CostEfficientModel
		reasoning = fmt.Sprintf("Standard complexity task (%.2f) optimized for cost", score)
	}

	inputTokens := r.EstimateTokens(content, selected)
	inputCost, outputCost := r.pricing.Cost(selected, inputTokens, maxOutputTokens)

	return Decision{
		SelectedModel:   selected,
		Reasoning:       reasoning,
		ComplexityScore: score,
		EstimatedCost:   inputCost + outputCost,
		EstimatedTokens: inputTokens + maxOutputTokens,
	}
}
