// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Routing       RoutingConfig       `yaml:"routing" mapstructure:"routing"`
	Redaction     RedactionConfig     `yaml:"redaction" mapstructure:"redaction"`
	Budget        BudgetConfig        `yaml:"budget" mapstructure:"budget"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// RoutingConfig 模型路由配置
type RoutingConfig struct {
	// CostEfficientModel 低成本模型 ID
	CostEfficientModel string `yaml:"cost_efficient_model" mapstructure:"cost_efficient_model"`
	// HighCapabilityModel 高能力模型 ID
	HighCapabilityModel string `yaml:"high_capability_model" mapstructure:"high_capability_model"`
	// ComplexityThreshold 复杂度阈值，超过后强制走高能力模型
	ComplexityThreshold float64 `yaml:"complexity_threshold" mapstructure:"complexity_threshold"`
	// LargeDocumentChars 大文档字符阈值，超过后走高能力模型（上下文窗口）
	LargeDocumentChars int `yaml:"large_document_chars" mapstructure:"large_document_chars"`
	// Models 按模型 ID 的定价与上下文配置
	Models map[string]ModelConfig `yaml:"models" mapstructure:"models"`
}

// ModelConfig 单个模型的定价与限制配置
type ModelConfig struct {
	CostPer1KInput   float64  `yaml:"cost_per_1k_input" mapstructure:"cost_per_1k_input"`
	CostPer1KOutput  float64  `yaml:"cost_per_1k_output" mapstructure:"cost_per_1k_output"`
	MaxContextTokens int      `yaml:"max_context_tokens" mapstructure:"max_context_tokens"`
	ForcedTaskTypes  []string `yaml:"forced_task_types" mapstructure:"forced_task_types"`
}

// RedactionConfig PHI 脱敏配置
type RedactionConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// PreserveStructure 结构保持模式：替换串补齐空格到原始匹配长度
	PreserveStructure bool `yaml:"preserve_structure" mapstructure:"preserve_structure"`
	// MedicalPatterns 是否启用医疗专用 PHI 模式
	MedicalPatterns bool `yaml:"medical_patterns" mapstructure:"medical_patterns"`
}

// BudgetConfig 预算治理配置
type BudgetConfig struct {
	// DailyTokenBudget 每日 Token 预算（全局常量，按 Token 近似单价换算为美元日预算）
	DailyTokenBudget int64 `yaml:"daily_token_budget" mapstructure:"daily_token_budget"`
	// ApproxCostPer1KTokens Token 近似单价（美元 / 1000 Token）
	ApproxCostPer1KTokens float64 `yaml:"approx_cost_per_1k_tokens" mapstructure:"approx_cost_per_1k_tokens"`
	// WarningThreshold 预警阈值（日预算占比）
	WarningThreshold float64 `yaml:"warning_threshold" mapstructure:"warning_threshold"`
	// CriticalThreshold 严重阈值（日预算占比）
	CriticalThreshold float64 `yaml:"critical_threshold" mapstructure:"critical_threshold"`
	// TargetCostPerDocument 单文档目标成本（美元）
	TargetCostPerDocument float64 `yaml:"target_cost_per_document" mapstructure:"target_cost_per_document"`
	// FallbackCostPer1KInput 未注册模型的兜底输入单价
	FallbackCostPer1KInput float64 `yaml:"fallback_cost_per_1k_input" mapstructure:"fallback_cost_per_1k_input"`
	// FallbackCostPer1KOutput 未注册模型的兜底输出单价
	FallbackCostPer1KOutput float64 `yaml:"fallback_cost_per_1k_output" mapstructure:"fallback_cost_per_1k_output"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
