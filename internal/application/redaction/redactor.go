package redaction

import (
	"crypto/md5" // #nosec G501 -- 用于确定性脱敏 token，不用于加密
	"fmt"
	"sort"
	"strings"
	"time"
)

// Match 一处命中的 PHI。Original 只在进程内短暂存在，绝不落库、不写日志。
type Match struct {
	Type     PHIType
	Original string
	Start    int
	End      int
}

// Result 一次脱敏调用的结果
type Result struct {
	RedactedText string
	Matches      []Match
	PHIDetected  bool
}

// ComplianceReport 合规检查结果
type ComplianceReport struct {
	Compliant   bool     `json:"compliant"`
	PHIDetected bool     `json:"phi_detected"`
	PHICount    int      `json:"phi_count"`
	PHITypes    []string `json:"phi_types"`
	RiskLevel   string   `json:"risk_level"`
}

// AuditSpan 审计条目中的单条命中位置（不含原文）
type AuditSpan struct {
	Type  PHIType `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// AuditEntry PHI 脱敏审计条目。只记录类别与位置，绝不含原文。
type AuditEntry struct {
	Timestamp      time.Time   `json:"timestamp"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	PHIDetected    bool        `json:"phi_detected"`
	RedactionCount int         `json:"redaction_count"`
	PHITypes       []string    `json:"phi_types"`
	Spans          []AuditSpan `json:"spans"`
}

// Redactor PHI 脱敏器。无共享可变状态，任意并发调用安全。
type Redactor struct {
	registry          *Registry
	preserveStructure bool
}

// NewRedactor 创建脱敏器
func NewRedactor(registry *Registry, preserveStructure bool) *Redactor {
	return &Redactor{
		registry:          registry,
		preserveStructure: preserveStructure,
	}
}

// Token 由命中原文确定性生成替换 token：[{TYPE}_{md5 前 8 位}]。
// 同一原文在全文任意位置折叠为同一 token。
func Token(phiType PHIType, original string) string {
	digest := fmt.Sprintf("%x", md5.Sum([]byte(original)))[:8] // #nosec G401
	return fmt.Sprintf("[%s_%s]", strings.ToUpper(string(phiType)), digest)
}

// Detect 扫描全部启用规则，返回按起点升序、互不重叠的命中列表。
// 对任意输入全函数：空串、非 ASCII、超大文本最坏情况是零命中。
func (r *Redactor) Detect(text string) []Match {
	if text == "" {
		return nil
	}

	var candidates []Match
	for _, p := range r.registry.Patterns() {
		if !p.Enabled {
			continue
		}
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			matched := text[loc[0]:loc[1]]
			if p.Type == PHIPersonName && !isLikelyName(matched) {
				continue
			}
			candidates = append(candidates, Match{
				Type:     p.Type,
				Original: matched,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}

	return resolveOverlaps(candidates, r.registry)
}

// resolveOverlaps 将候选命中消解为互不重叠的列表。
// 不同类别可能命中同一区间（如 zip_code 与 phone 的数字串），直接逐个替换会
// 破坏右侧偏移；这里按类别优先级取胜者，再按起点升序输出。
func resolveOverlaps(candidates []Match, registry *Registry) []Match {
	if len(candidates) == 0 {
		return nil
	}

	rank := make(map[PHIType]int, len(registry.Patterns()))
	for _, p := range registry.Patterns() {
		rank[p.Type] = p.priority
	}

	// 优先级高（rank 小）在前；同级更长的命中优先；再按起点
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := rank[candidates[i].Type], rank[candidates[j].Type]
		if ri != rj {
			return ri < rj
		}
		li, lj := candidates[i].End-candidates[i].Start, candidates[j].End-candidates[j].Start
		if li != lj {
			return li > lj
		}
		return candidates[i].Start < candidates[j].Start
	})

	var kept []Match
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.Start < k.End && k.Start < c.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// Redact 脱敏文本。对任意字符串输入全函数，绝不报错。
func (r *Redactor) Redact(text string) Result {
	if text == "" {
		return Result{RedactedText: ""}
	}

	matches := r.Detect(text)
	if len(matches) == 0 {
		return Result{RedactedText: text}
	}

	// 从右向左替换，保证左侧命中的偏移不被破坏
	redacted := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		replacement := Token(m.Type, m.Original)
		if r.preserveStructure && len(replacement) < m.End-m.Start {
			replacement += strings.Repeat(" ", m.End-m.Start-len(replacement))
		}
		redacted = redacted[:m.Start] + replacement + redacted[m.End:]
	}

	return Result{
		RedactedText: redacted,
		Matches:      matches,
		PHIDetected:  true,
	}
}

// CheckCompliance 检查文本是否不含 PHI。
// 风险等级：>5 命中为 high，1-5 为 medium，0 为 low。
func (r *Redactor) CheckCompliance(text string) ComplianceReport {
	matches := r.Detect(text)

	riskLevel := "low"
	switch {
	case len(matches) > 5:
		riskLevel = "high"
	case len(matches) > 0:
		riskLevel = "medium"
	}

	return ComplianceReport{
		Compliant:   len(matches) == 0,
		PHIDetected: len(matches) > 0,
		PHICount:    len(matches),
		PHITypes:    distinctTypes(matches),
		RiskLevel:   riskLevel,
	}
}

// Audit 为一次脱敏生成审计条目（不含任何原文）
func (r *Redactor) Audit(result Result, correlationID string) AuditEntry {
	spans := make([]AuditSpan, 0, len(result.Matches))
	for _, m := range result.Matches {
		spans = append(spans, AuditSpan{Type: m.Type, Start: m.Start, End: m.End})
	}
	return AuditEntry{
		Timestamp:      time.Now().UTC(),
		CorrelationID:  correlationID,
		PHIDetected:    result.PHIDetected,
		RedactionCount: len(result.Matches),
		PHITypes:       distinctTypes(result.Matches),
		Spans:          spans,
	}
}

// distinctTypes 去重后的命中类别，稳定排序
func distinctTypes(matches []Match) []string {
	seen := make(map[string]struct{}, len(matches))
	var types []string
	for _, m := range matches {
		if _, ok := seen[string(m.Type)]; !ok {
			seen[string(m.Type)] = struct{}{}
			types = append(types, string(m.Type))
		}
	}
	sort.Strings(types)
	return types
}
