package dto

// RouteRequest 模型路由请求
type RouteRequest struct {
	TaskType        string `json:"task_type" binding:"required"`
	Content         string `json:"content"`
	MaxOutputTokens int    `json:"max_output_tokens"`
	Hints           *struct {
		RequiresReasoning bool `json:"requires_reasoning"`
		MultiStepAnalysis bool `json:"multi_step_analysis"`
		HighStakes        bool `json:"high_stakes"`
	} `json:"hints"`
}

// RouteResponse 模型路由响应
type RouteResponse struct {
	SelectedModel   string  `json:"selected_model"`
	Reasoning       string  `json:"reasoning"`
	ComplexityScore float64 `json:"complexity_score"`
	EstimatedCost   float64 `json:"estimated_cost"`
	EstimatedTokens int     `json:"estimated_tokens"`
}

// RedactRequest PHI 脱敏请求
type RedactRequest struct {
	Text string `json:"text" binding:"required"`
	// CorrelationID 调用方关联 ID，写入审计日志
	CorrelationID string `json:"correlation_id"`
}

// RedactedMatch 单条命中的类别与位置（不含原文）
type RedactedMatch struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// RedactResponse PHI 脱敏响应。只返回脱敏后文本与命中元数据，绝不回传原文。
type RedactResponse struct {
	RedactedText   string          `json:"redacted_text"`
	PHIDetected    bool            `json:"phi_detected"`
	RedactionCount int             `json:"redaction_count"`
	PHITypes       []string        `json:"phi_types"`
	Matches        []RedactedMatch `json:"matches"`
}

// ComplianceRequest 合规检查请求
type ComplianceRequest struct {
	Text string `json:"text" binding:"required"`
}

// RecordUsageRequest 用量流水上报请求
type RecordUsageRequest struct {
	FirmID       string `json:"firm_id" binding:"required"`
	UserID       string `json:"user_id"`
	ServiceName  string `json:"service_name"`
	ModelID      string `json:"model_id" binding:"required"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	RequestID    string `json:"request_id" binding:"required"`
	Endpoint     string `json:"endpoint"`
}

// RecordUsageResponse 用量流水上报响应
type RecordUsageResponse struct {
	ID           string  `json:"id"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
	BudgetStatus string  `json:"budget_status"`
}
