// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"legal-intake-ai/internal/application/budget"
	"legal-intake-ai/internal/application/redaction"
	"legal-intake-ai/internal/application/routing"
	"legal-intake-ai/internal/config"
	"legal-intake-ai/internal/infrastructure/persistence/postgres"
	"legal-intake-ai/internal/infrastructure/persistence/redis"
	"legal-intake-ai/internal/interfaces/http/middleware"
	"legal-intake-ai/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端并同步表结构
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.AutoMigrate(); err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端。
// Redis 只承载限流，不可达时降级为 nil 而不是阻塞启动。
func ProvideRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter 提供限流器。Redis 不可达时返回 nil，中间件随之放行。
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvidePricingTable 由路由配置构建只读定价表
func ProvidePricingTable(cfg *config.Config) *routing.Table {
	profiles := make([]routing.ModelProfile, 0, len(cfg.Routing.Models))
	for modelID, mc := range cfg.Routing.Models {
		profiles = append(profiles, routing.ModelProfile{
			ModelID:          modelID,
			CostPer1KInput:   mc.CostPer1KInput,
			CostPer1KOutput:  mc.CostPer1KOutput,
			MaxContextTokens: mc.MaxContextTokens,
			ForcedTaskTypes:  mc.ForcedTaskTypes,
		})
	}
	return routing.NewTable(profiles, cfg.Budget.FallbackCostPer1KInput, cfg.Budget.FallbackCostPer1KOutput)
}

// ProvideRouter 构建模型路由器
func ProvideRouter(table *routing.Table, estimator *routing.Estimator, cfg *config.Config) *routing.Router {
	return routing.NewRouter(table, estimator, routing.Options{
		CostEfficientModel:  cfg.Routing.CostEfficientModel,
		HighCapabilityModel: cfg.Routing.HighCapabilityModel,
		ComplexityThreshold: cfg.Routing.ComplexityThreshold,
		LargeDocumentChars:  cfg.Routing.LargeDocumentChars,
	})
}

// ProvideRedactor 编译 PHI 模式注册表并构建脱敏器。
// 模式编译失败视为致命错误，服务拒绝启动。
func ProvideRedactor(cfg *config.Config) (*redaction.Redactor, error) {
	registry, err := redaction.NewRegistry(cfg.Redaction.MedicalPatterns)
	if err != nil {
		return nil, err
	}
	return redaction.NewRedactor(registry, cfg.Redaction.PreserveStructure), nil
}

// ProvideLedger 构建预算台账服务
func ProvideLedger(repo *postgres.UsageRecordRepository, table *routing.Table, cfg *config.Config) *budget.Ledger {
	return budget.NewLedger(repo, table, budget.Config{
		DailyTokenBudget:      cfg.Budget.DailyTokenBudget,
		ApproxCostPer1KTokens: cfg.Budget.ApproxCostPer1KTokens,
		WarningThreshold:      cfg.Budget.WarningThreshold,
		CriticalThreshold:     cfg.Budget.CriticalThreshold,
		TargetCostPerDocument: cfg.Budget.TargetCostPerDocument,
		CostEfficientModel:    cfg.Routing.CostEfficientModel,
		HighCapabilityModel:   cfg.Routing.HighCapabilityModel,
	})
}
