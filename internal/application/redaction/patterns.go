// Package redaction 提供 PHI 检测与脱敏能力。
// 模式注册表在初始化时编译一次，之后只读，可被任意并发调用方共享。
package redaction

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "legal-intake-ai/pkg/errors"
)

// PHIType 标识符类别
type PHIType string

// 支持检测的 PHI 标识符类别
const (
	PHIMedicalRecordNumber PHIType = "medical_record_number"
	PHIPatientID           PHIType = "patient_id"
	PHIDateOfBirth         PHIType = "date_of_birth"
	PHISSN                 PHIType = "ssn"
	PHICreditCard          PHIType = "credit_card"
	PHIBankAccount         PHIType = "bank_account"
	PHIInsuranceID         PHIType = "insurance_id"
	PHILicense             PHIType = "license"
	PHIEmail               PHIType = "email"
	PHIWebsite             PHIType = "website"
	PHIPhone               PHIType = "phone"
	PHIVitalSigns          PHIType = "vital_signs"
	PHIMedicationDose      PHIType = "medication_dose"
	PHIAddress             PHIType = "address"
	PHIZipCode             PHIType = "zip_code"
	PHIDate                PHIType = "date"
	PHIPersonName          PHIType = "person_name"
)

// Pattern 一条已编译的检测规则
type Pattern struct {
	Type    PHIType
	Enabled bool
	re      *regexp.Regexp
	// priority 重叠消解时的优先级，数值越小越优先（越具体的类别越靠前）
	priority int
}

// patternSpec 规则定义源。顺序即重叠消解优先级。
type patternSpec struct {
	phiType PHIType
	expr    string
	medical bool
}

var patternSpecs = []patternSpec{
	{PHIMedicalRecordNumber, `(?i)\b(?:MRN|MR#|Medical Record|Patient\s+ID|Chart\s+#)\s*:?\s*\d+\b`, false},
	{PHIPatientID, `(?i)\b(?:Patient|Pt)\s*(?:ID|#)\s*:?\s*\d+\b`, true},
	{PHIDateOfBirth, `(?i)\b(?:DOB|Date\s+of\s+Birth|Born)\s*:?\s*\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`, false},
	{PHISSN, `\b\d{3}-?\d{2}-?\d{4}\b`, false},
	{PHICreditCard, `\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`, false},
	{PHIBankAccount, `(?i)\b(?:Account|Acct)\s*#?\s*:?\s*\d{8,}\b`, false},
	{PHIInsuranceID, `(?i)\b(?:Policy|Member|Group)\s*#?\s*:?\s*[A-Za-z0-9]+\b`, false},
	{PHILicense, `(?i)\b(?:DL|License|Lic)\s*#?\s*:?\s*[A-Za-z0-9]+\b`, false},
	{PHIEmail, `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, false},
	{PHIWebsite, `https?://\S+`, false},
	{PHIPhone, `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`, false},
	{PHIVitalSigns, `(?i)\b(?:BP|Blood\s+Pressure)\s*:?\s*\d{2,3}/\d{2,3}\b`, true},
	{PHIMedicationDose, `(?i)\b\d+\s*(?:mg|mcg|ml|cc|units?)\b`, true},
	{PHIAddress, `(?i)\b\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Court|Ct|Place|Pl)\b`, false},
	{PHIZipCode, `\b\d{5}(?:-\d{4})?\b`, false},
	{PHIDate, `\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`, false},
	// person_name 大小写敏感：形状检查（两个首字母大写的单词）是真正的过滤器
	{PHIPersonName, `\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`, false},
}

// nameExceptions 机构/职务关键词，命中即排除人名候选（如 "General Hospital"）
var nameExceptions = []string{
	"doctor", "dr", "physician", "nurse", "attorney", "lawyer", "judge",
	"hospital", "clinic", "medical", "center", "health", "care",
	"insurance", "company", "corporation", "inc", "llc", "firm",
	"general",
}

// Registry 只读的 PHI 模式注册表
type Registry struct {
	patterns []Pattern
}

// NewRegistry 编译全部检测规则。
// 规则编译失败仅在初始化时致命，服务启动后注册表不可变。
func NewRegistry(includeMedical bool) (*Registry, error) {
	patterns := make([]Pattern, 0, len(patternSpecs))
	for i, spec := range patternSpecs {
		if spec.medical && !includeMedical {
			continue
		}
		re, err := regexp.Compile(spec.expr)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodePatternCompileFailed,
				fmt.Sprintf("failed to compile phi pattern %s", spec.phiType))
		}
		patterns = append(patterns, Pattern{
			Type:     spec.phiType,
			Enabled:  true,
			re:       re,
			priority: i,
		})
	}
	return &Registry{patterns: patterns}, nil
}

// Patterns 返回已启用的规则
func (r *Registry) Patterns() []Pattern {
	return r.patterns
}

// isLikelyName 判断候选串是否像人名：
// 不含机构关键词，且恰为两个首字母大写的单词。
func isLikelyName(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, exception := range nameExceptions {
		if strings.Contains(lower, exception) {
			return false
		}
	}

	words := strings.Fields(candidate)
	if len(words) != 2 {
		return false
	}
	for _, word := range words {
		if len(word) < 2 {
			return false
		}
		if word[0] < 'A' || word[0] > 'Z' {
			return false
		}
		if strings.ToLower(word[1:]) != word[1:] {
			return false
		}
	}
	return true
}
