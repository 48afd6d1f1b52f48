// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "legal_intake"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// 路由决策指标
	RoutingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Total number of routing decisions by selected model",
		},
		[]string{"model", "task_type"},
	)

	RoutingComplexityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "complexity_score",
			Help:      "Distribution of computed complexity scores",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	RoutingEstimatedCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "estimated_cost_usd_total",
			Help:      "Cumulative estimated cost in USD by selected model",
		},
		[]string{"model"},
	)

	// PHI 脱敏指标
	RedactionMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redaction",
			Name:      "matches_total",
			Help:      "Total number of redacted PHI matches by identifier type",
		},
		[]string{"phi_type"},
	)

	RedactionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redaction",
			Name:      "requests_total",
			Help:      "Total number of redaction requests",
		},
		[]string{"phi_detected"},
	)

	// 预算指标
	UsageTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "tokens_total",
			Help:      "Total tokens recorded in the usage ledger",
		},
		[]string{"firm_id", "model", "type"}, // type: input/output
	)

	UsageCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "cost_usd_total",
			Help:      "Total realized cost in USD recorded in the usage ledger",
		},
		[]string{"firm_id", "model"},
	)

	BudgetStatusChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "budget",
			Name:      "status_checks_total",
			Help:      "Budget status evaluations by resulting status",
		},
		[]string{"firm_id", "status"},
	)
)
