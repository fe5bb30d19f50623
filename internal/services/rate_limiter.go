package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"eshop/internal/config"
	"eshop/internal/logger"
	"eshop/internal/redis"
)

// RateScope разделяет счетчики запросов по группам маршрутов
type RateScope string

const (
	// ScopeAPI покрывает все маршруты /api
	ScopeAPI RateScope = "api"
	// ScopeAuth покрывает вход, регистрацию и проверку токена
	ScopeAuth RateScope = "auth"
)

// RateDecision описывает состояние окна клиента после обращения
type RateDecision struct {
	Allowed   bool
	Limit     int64
	Used      int64
	Remaining int64
	ResetAt   time.Time
}

// RateLimiter считает запросы клиента в фиксированном окне отдельно для каждой группы маршрутов
type RateLimiter struct {
	redis   rateRedis
	log     *logger.Logger
	enabled bool
	window  time.Duration
	prefix  string
	limits  map[RateScope]int64
}

type rateRedis interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

// NewRateLimiter создает лимитер. Без Redis или с выключенным конфигом пропускает все запросы.
func NewRateLimiter(redisClient *redis.Client, log *logger.Logger, cfg *config.RateLimitConfig) *RateLimiter {
	if redisClient == nil || cfg == nil || !cfg.Enabled || cfg.Requests <= 0 || cfg.WindowSeconds <= 0 {
		return &RateLimiter{enabled: false, limits: map[RateScope]int64{}}
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = redis.KeyPrefixRateLimit
	}

	limits := map[RateScope]int64{ScopeAPI: int64(cfg.Requests)}
	if cfg.AuthRequests > 0 {
		limits[ScopeAuth] = int64(cfg.AuthRequests)
	}

	return &RateLimiter{
		redis:   redisClient,
		log:     log,
		enabled: true,
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
		prefix:  prefix,
		limits:  limits,
	}
}

// Enabled сообщает, включен ли rate limiting
func (r *RateLimiter) Enabled() bool {
	return r != nil && r.enabled
}

// Limit возвращает лимит группы; 0 означает, что группа не ограничена
func (r *RateLimiter) Limit(scope RateScope) int64 {
	if r == nil {
		return 0
	}
	return r.limits[scope]
}

// Window возвращает длительность окна
func (r *RateLimiter) Window() time.Duration {
	return r.window
}

// Allow учитывает запрос клиента и решает, пропускать ли его
func (r *RateLimiter) Allow(ctx context.Context, scope RateScope, client string) (RateDecision, error) {
	limit := r.Limit(scope)
	if !r.Enabled() || limit == 0 {
		return RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	count, ttl, err := r.redis.IncrWindow(ctx, r.makeKey(scope, client), r.window)
	if err != nil {
		return RateDecision{}, fmt.Errorf("rate limiter incr failed: %w", err)
	}
	if ttl <= 0 {
		ttl = r.window
	}

	decision := RateDecision{
		Allowed:   count <= limit,
		Limit:     limit,
		Used:      count,
		Remaining: remainingOf(limit, count),
		ResetAt:   time.Now().Add(ttl),
	}

	if !decision.Allowed {
		r.log.WithFields(map[string]interface{}{
			"scope":  scope,
			"client": client,
			"used":   count,
			"limit":  limit,
		}).Warn("Rate limit exceeded")
	}

	return decision, nil
}

// Usage возвращает состояние окна без учета нового запроса. ResetAt нулевой, если окно не открыто.
func (r *RateLimiter) Usage(ctx context.Context, scope RateScope, client string) (RateDecision, error) {
	limit := r.Limit(scope)
	if !r.Enabled() || limit == 0 {
		return RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	key := r.makeKey(scope, client)
	count, err := r.redis.GetInt(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
		}
		return RateDecision{}, fmt.Errorf("rate limiter usage failed: %w", err)
	}

	return RateDecision{
		Allowed:   count < limit,
		Limit:     limit,
		Used:      count,
		Remaining: remainingOf(limit, count),
		ResetAt:   time.Now().Add(r.ttl(ctx, key)),
	}, nil
}

// ttl читает остаток окна; при ошибке считает окно полным
func (r *RateLimiter) ttl(ctx context.Context, key string) time.Duration {
	ttl, err := r.redis.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		if err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to get rate limit window")
		}
		return r.window
	}
	return ttl
}

func (r *RateLimiter) makeKey(scope RateScope, client string) string {
	return redis.GenerateKey(r.prefix, string(scope)+":"+strings.ReplaceAll(client, ":", "_"))
}

func remainingOf(limit, used int64) int64 {
	if used >= limit {
		return 0
	}
	return limit - used
}

// ExtractClientIP получает IP из заголовков прокси или RemoteAddr
func ExtractClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
