// Package entity 定义领域实体
package entity

import "time"

// UsageRecord 一次外部模型调用的实际用量流水。
// 只追加：创建后不更新、不删除，预算与报表均由聚合查询派生。
type UsageRecord struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	FirmID       string    `json:"firm_id" gorm:"type:varchar(64);index:idx_usage_firm_time;not null"`
	UserID       string    `json:"user_id" gorm:"type:varchar(64);not null"`
	ServiceName  string    `json:"service_name" gorm:"type:varchar(64);not null"`
	ModelID      string    `json:"model_id" gorm:"type:varchar(64);not null"`
	InputTokens  int       `json:"input_tokens" gorm:"not null;default:0"`
	OutputTokens int       `json:"output_tokens" gorm:"not null;default:0"`
	TotalTokens  int       `json:"total_tokens" gorm:"not null;default:0"`
	InputCost    float64   `json:"input_cost" gorm:"not null;default:0"`
	OutputCost   float64   `json:"output_cost" gorm:"not null;default:0"`
	TotalCost    float64   `json:"total_cost" gorm:"not null;default:0"`
	RequestID    string    `json:"request_id" gorm:"type:varchar(128);uniqueIndex;not null"`
	Endpoint     string    `json:"endpoint" gorm:"type:varchar(128)"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime;index:idx_usage_firm_time"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}
