// Package routing 提供模型路由策略核心：复杂度估计、定价表与路由决策。
// 全部为不可变静态表上的纯函数，任意并发调用无需同步。
package routing

import "strings"

// Hints 调用方提供的复杂度提示
type Hints struct {
	RequiresReasoning bool `json:"requires_reasoning"`
	MultiStepAnalysis bool `json:"multi_step_analysis"`
	HighStakes        bool `json:"high_stakes"`
}

// 各任务类型的基础复杂度权重
var taskBaseWeights = map[string]float64{
	"document_classification": 0.2,
	"medical_summarization":   0.3,
	"simple_extraction":       0.2,
	"legal_reasoning":         0.8,
	"case_merit_analysis":     0.9,
	"complex_analysis":        0.8,
	"liability_assessment":    0.8,
}

// defaultTaskWeight 未知任务类型的基础权重
const defaultTaskWeight = 0.5

// legalIndicators 法律复杂度指示词
var legalIndicators = []string{
	"liability", "negligence", "causation", "damages", "statute of limitations",
	"comparative fault", "strict liability", "breach of duty", "proximate cause",
}

// medicalIndicators 医疗复杂度指示词
var medicalIndicators = []string{
	"differential diagnosis", "comorbidities", "prognosis", "treatment plan",
	"medical causation", "permanent impairment", "disability rating",
}

const (
	legalIndicatorThreshold   = 3
	medicalIndicatorThreshold = 3
)

// Estimator 复杂度估计器。无状态，Score 为纯函数。
type Estimator struct{}

// NewEstimator 创建复杂度估计器
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Score 估计请求复杂度，返回 [0,1]。
// 对任意输入全函数：空文本、未知任务类型均不报错。
// 组成：任务基础权重 + 单一长度档位加成（取超过的最高档，不叠加）
// + 法律/医疗术语密度加成（可同时生效）+ 提示加成，最后截断到 1.0。
func (e *Estimator) Score(taskType, content string, hints *Hints) float64 {
	score, ok := taskBaseWeights[taskType]
	if !ok {
		score = defaultTaskWeight
	}

	// 长度档位：互斥，只取命中的最高一档
	switch length := len(content); {
	case length > 50000:
		score += 0.3
	case length > 20000:
		score += 0.2
	case length > 10000:
		score += 0.1
	}

	contentLower := strings.ToLower(content)
	if countIndicators(contentLower, legalIndicators) >= legalIndicatorThreshold {
		score += 0.2
	}
	if countIndicators(contentLower, medicalIndicators) >= medicalIndicatorThreshold {
		score += 0.1
	}

	if hints != nil {
		if hints.RequiresReasoning {
			score += 0.2
		}
		if hints.MultiStepAnalysis {
			score += 0.2
		}
		if hints.HighStakes {
			score += 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// countIndicators 统计文本中出现的指示词个数（按词表项去重，不按出现次数）
func countIndicators(contentLower string, indicators []string) int {
	count := 0
	for _, indicator := range indicators {
		if strings.Contains(contentLower, indicator) {
			count++
		}
	}
	return count
}
