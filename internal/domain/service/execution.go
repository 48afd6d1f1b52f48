// Package service 定义跨层稳定契约（port）
package service

import "context"

// Message 一条发给模型的消息（与具体提供商线格式无关）
type Message struct {
	Role    string
	Content string
}

// ExecutionResult 一次模型调用经校验后的结果
type ExecutionResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// ExecutionOutcome 模型调用的结果类型：要么携带已校验的结果，
// 要么携带失败原因与原始载荷，调用方按 Valid 分支而非捕获异常。
type ExecutionOutcome struct {
	Valid  bool
	Reason string
	Raw    []byte
	Result *ExecutionResult
}

// ExecutionAdapter 外部模型执行适配器。
// 本核心不感知提供商线格式；超时与重试是适配器实现方的职责。
type ExecutionAdapter interface {
	Execute(ctx context.Context, modelID string, messages []Message, maxTokens int, temperature float64) (ExecutionOutcome, error)
}

// ValidateOutcome 对适配器返回的载荷做防御性校验。
// 缺失或为负的 token 计数归零并标记原因，绝不 panic。
func ValidateOutcome(out ExecutionOutcome) ExecutionOutcome {
	if !out.Valid || out.Result == nil {
		if out.Reason == "" {
			out.Reason = "missing result payload"
		}
		out.Valid = false
		return out
	}
	r := *out.Result
	if r.InputTokens < 0 {
		r.InputTokens = 0
		out.Reason = "negative input token count clamped"
	}
	if r.OutputTokens < 0 {
		r.OutputTokens = 0
		out.Reason = "negative output token count clamped"
	}
	out.Result = &r
	return out
}
