// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"
	"time"

	"legal-intake-ai/internal/domain/entity"
)

// ErrDuplicateRequestID 表示 request_id 已存在，流水被幂等忽略
var ErrDuplicateRequestID = errors.New("duplicate request_id")

// UsageTotals 时间范围内的用量汇总
type UsageTotals struct {
	Tokens   int64
	Cost     float64
	Requests int64
}

// UsageBreakdownRow 按维度（服务 / 模型）分组的用量行
type UsageBreakdownRow struct {
	Key      string
	Tokens   int64
	Cost     float64
	Requests int64
}

// DailyUsageRow 按天聚合的用量行
type DailyUsageRow struct {
	Day      time.Time
	Tokens   int64
	Cost     float64
	Requests int64
}

// UsageRecordRepository 用量流水仓储。
// 只追加语义：除 Create 外全部为聚合读查询，预算状态每次从新鲜聚合派生。
type UsageRecordRepository interface {
	// Create 追加一条流水。request_id 冲突返回 ErrDuplicateRequestID。
	Create(ctx context.Context, record *entity.UsageRecord) error
	// FindByRequestID 按 request_id 查询已落库的流水
	FindByRequestID(ctx context.Context, requestID string) (*entity.UsageRecord, error)
	// SumCost 统计 [startInclusive, endExclusive) 内的总成本
	SumCost(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) (float64, error)
	// SumCostByModels 统计指定模型集合的总成本
	SumCostByModels(ctx context.Context, firmID string, modelIDs []string, startInclusive, endExclusive time.Time) (float64, error)
	// Totals 统计范围内 token/成本/请求数
	Totals(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) (UsageTotals, error)
	// BreakdownByService 按服务名分组
	BreakdownByService(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]UsageBreakdownRow, error)
	// BreakdownByModel 按模型分组
	BreakdownByModel(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]UsageBreakdownRow, error)
	// DailyTrend 按天聚合，升序
	DailyTrend(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]DailyUsageRow, error)
}
