package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"legal-intake-ai/internal/domain/entity"
	"legal-intake-ai/internal/domain/repository"
	apperrors "legal-intake-ai/pkg/errors"
)

// UsageRecordRepository 用量流水仓储的 PostgreSQL 实现。
// 全部聚合直接落到 SQL，预算状态由调用方每次重新派生。
type UsageRecordRepository struct {
	client *Client
}

func NewUsageRecordRepository(client *Client) *UsageRecordRepository {
	return &UsageRecordRepository{client: client}
}

var _ repository.UsageRecordRepository = (*UsageRecordRepository)(nil)

func (r *UsageRecordRepository) Create(ctx context.Context, record *entity.UsageRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.Create")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Wrap(repository.ErrDuplicateRequestID,
				apperrors.CodeDuplicateRequestID, "usage record already exists")
		}
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create usage record")
	}
	return nil
}

func (r *UsageRecordRepository) FindByRequestID(ctx context.Context, requestID string) (*entity.UsageRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.FindByRequestID")
	defer span.End()

	var record entity.UsageRecord
	if err := r.client.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&record).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find usage record by request_id: %w", err)
	}
	return &record, nil
}

func (r *UsageRecordRepository) SumCost(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) (float64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.SumCost")
	defer span.End()

	var total float64
	if err := r.client.db.WithContext(ctx).Model(&entity.UsageRecord{}).
		Where("firm_id = ? AND created_at >= ? AND created_at < ?", firmID, startInclusive, endExclusive).
		Select("COALESCE(SUM(total_cost),0)").
		Scan(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum usage cost: %w", err)
	}
	return total, nil
}

func (r *UsageRecordRepository) SumCostByModels(ctx context.Context, firmID string, modelIDs []string, startInclusive, endExclusive time.Time) (float64, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.SumCostByModels")
	defer span.End()

	if len(modelIDs) == 0 {
		return 0, nil
	}

	var total float64
	if err := r.client.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_cost),0)
		   FROM usage_records
		  WHERE firm_id = ?
		    AND model_id = ANY(?)
		    AND created_at >= ? AND created_at < ?`,
		firmID, pq.Array(modelIDs), startInclusive, endExclusive,
	).Scan(&total).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to sum usage cost by models: %w", err)
	}
	return total, nil
}

func (r *UsageRecordRepository) Totals(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) (repository.UsageTotals, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.Totals")
	defer span.End()

	var row struct {
		Tokens   int64
		Cost     float64
		Requests int64
	}
	if err := r.client.db.WithContext(ctx).Model(&entity.UsageRecord{}).
		Where("firm_id = ? AND created_at >= ? AND created_at < ?", firmID, startInclusive, endExclusive).
		Select("COALESCE(SUM(total_tokens),0) AS tokens, COALESCE(SUM(total_cost),0) AS cost, COUNT(*) AS requests").
		Scan(&row).Error; err != nil {
		span.RecordError(err)
		return repository.UsageTotals{}, fmt.Errorf("failed to aggregate usage totals: %w", err)
	}
	return repository.UsageTotals{
		Tokens:   row.Tokens,
		Cost:     row.Cost,
		Requests: row.Requests,
	}, nil
}

func (r *UsageRecordRepository) BreakdownByService(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]repository.UsageBreakdownRow, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.BreakdownByService")
	defer span.End()

	return r.breakdown(ctx, "service_name", firmID, startInclusive, endExclusive)
}

func (r *UsageRecordRepository) BreakdownByModel(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]repository.UsageBreakdownRow, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.BreakdownByModel")
	defer span.End()

	return r.breakdown(ctx, "model_id", firmID, startInclusive, endExclusive)
}

// breakdown 按给定列分组聚合。column 只接受本包内的白名单值，不拼接外部输入。
func (r *UsageRecordRepository) breakdown(ctx context.Context, column, firmID string, startInclusive, endExclusive time.Time) ([]repository.UsageBreakdownRow, error) {
	var rows []struct {
		Key      string
		Tokens   int64
		Cost     float64
		Requests int64
	}
	if err := r.client.db.WithContext(ctx).Model(&entity.UsageRecord{}).
		Where("firm_id = ? AND created_at >= ? AND created_at < ?", firmID, startInclusive, endExclusive).
		Select(column + " AS key, COALESCE(SUM(total_tokens),0) AS tokens, COALESCE(SUM(total_cost),0) AS cost, COUNT(*) AS requests").
		Group(column).
		Order("cost DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by %s: %w", column, err)
	}

	out := make([]repository.UsageBreakdownRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.UsageBreakdownRow{
			Key:      row.Key,
			Tokens:   row.Tokens,
			Cost:     row.Cost,
			Requests: row.Requests,
		})
	}
	return out, nil
}

func (r *UsageRecordRepository) DailyTrend(ctx context.Context, firmID string, startInclusive, endExclusive time.Time) ([]repository.DailyUsageRow, error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageRecordRepository.DailyTrend")
	defer span.End()

	var rows []struct {
		Day      time.Time
		Tokens   int64
		Cost     float64
		Requests int64
	}
	if err := r.client.db.WithContext(ctx).Model(&entity.UsageRecord{}).
		Where("firm_id = ? AND created_at >= ? AND created_at < ?", firmID, startInclusive, endExclusive).
		Select("DATE(created_at) AS day, COALESCE(SUM(total_tokens),0) AS tokens, COALESCE(SUM(total_cost),0) AS cost, COUNT(*) AS requests").
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to aggregate daily usage trend: %w", err)
	}

	out := make([]repository.DailyUsageRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.DailyUsageRow{
			Day:      row.Day,
			Tokens:   row.Tokens,
			Cost:     row.Cost,
			Requests: row.Requests,
		})
	}
	return out, nil
}
