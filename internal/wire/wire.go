//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"legal-intake-ai/internal/application/routing"
	"legal-intake-ai/internal/config"
	"legal-intake-ai/internal/infrastructure/persistence/postgres"
	"legal-intake-ai/internal/interfaces/http/handler"
	"legal-intake-ai/internal/interfaces/http/router"
)

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewUsageRecordRepository,
)

// RedisSet Redis 提供者集合（限流）
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideRateLimiter,
)

// PolicySet 策略核心提供者集合
var PolicySet = wire.NewSet(
	ProvidePricingTable,
	routing.NewEstimator,
	ProvideRouter,
	ProvideRedactor,
	ProvideLedger,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewRoutingHandler,
	handler.NewRedactionHandler,
	handler.NewUsageHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		PolicySet,
		RouterSet,
	)
	return nil, nil, nil
}
