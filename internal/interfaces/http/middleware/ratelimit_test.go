package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// stubLimiter 可注入结果的限流器
type stubLimiter struct {
	allowed   bool
	remaining int
	failAllow bool
	lastKey   string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.lastKey = key
	if s.failAllow {
		return false, errors.New("redis unavailable")
	}
	return s.allowed, nil
}

func (s *stubLimiter) Remaining(_ context.Context, _ string, _ int, _ time.Duration) (int, error) {
	return s.remaining, nil
}

func newRateLimitedEngine(cfg RateLimitConfig, limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(cfg, limiter))
	r.POST("/api/v1/route", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, firmID string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", nil)
	if firmID != "" {
		req.Header.Set(FirmIDHeader, firmID)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowedSetsHeaders(t *testing.T) {
	limiter := &stubLimiter{allowed: true, remaining: 41}
	r := newRateLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 60}, limiter)

	w := doRequest(r, "firm-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "41" {
		t.Errorf("X-RateLimit-Remaining = %q, want 41", got)
	}
}

// 限流 Key 按事务所与路径隔离
func TestRateLimitKeyPerFirmAndPath(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	r := newRateLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 10, KeyPrefix: "rl"}, limiter)

	doRequest(r, "firm-a")
	if limiter.lastKey != "rl:firm-a:/api/v1/route" {
		t.Errorf("key = %q", limiter.lastKey)
	}

	doRequest(r, "")
	if limiter.lastKey != "rl:anonymous:/api/v1/route" {
		t.Errorf("anonymous key = %q", limiter.lastKey)
	}
}

func TestRateLimitExceededReturns429(t *testing.T) {
	limiter := &stubLimiter{allowed: false, remaining: 0}
	r := newRateLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, limiter)

	w := doRequest(r, "firm-1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

// 限流器故障放行，不影响业务
func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &stubLimiter{failAllow: true}
	r := newRateLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, limiter)

	if w := doRequest(r, "firm-1"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 on limiter failure", w.Code)
	}
}

// 未配置限流器时直接放行
func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	r := newRateLimitedEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, nil)

	if w := doRequest(r, "firm-1"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with nil limiter", w.Code)
	}
}
