package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"eshop/internal/logger"
	"eshop/internal/services"
)

// RateLimiter описывает лимитер запросов с раздельными группами маршрутов
type RateLimiter interface {
	Enabled() bool
	Window() time.Duration
	Allow(ctx context.Context, scope services.RateScope, client string) (services.RateDecision, error)
	Usage(ctx context.Context, scope services.RateScope, client string) (services.RateDecision, error)
}

// RateLimit ограничивает запросы группы scope по IP клиента. nil limiter пропускает все.
func RateLimit(limiter RateLimiter, scope services.RateScope, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !limiter.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Allow(r.Context(), scope, services.ExtractClientIP(r))
			if err != nil {
				log.WithError(err).WithField("scope", scope).Error("Rate limiter failed")
				writeErrorResponse(w, http.StatusInternalServerError, "Rate limiter error")
				return
			}
			if decision.Limit == 0 {
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, decision)
			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.ResetAt)))
				writeErrorResponse(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d services.RateDecision) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}

func retryAfterSeconds(resetAt time.Time) int {
	seconds := int(math.Ceil(time.Until(resetAt).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// RateLimitHandler показывает клиенту состояние его окон
type RateLimitHandler struct {
	limiter RateLimiter
	log     *logger.Logger
}

// NewRateLimitHandler создает обработчик статуса лимитов
func NewRateLimitHandler(limiter RateLimiter, log *logger.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		limiter: limiter,
		log:     log,
	}
}

type scopeUsage struct {
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	ResetAt   string `json:"reset_at,omitempty"`
}

// Status возвращает использование окон для IP клиента
func (h *RateLimitHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil || !h.limiter.Enabled() {
		writeSuccess(w, http.StatusOK, "", map[string]interface{}{
			"enabled": false,
		})
		return
	}

	client := services.ExtractClientIP(r)
	scopes := make(map[services.RateScope]scopeUsage)
	for _, scope := range []services.RateScope{services.ScopeAPI, services.ScopeAuth} {
		usage, err := h.limiter.Usage(r.Context(), scope, client)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to fetch rate limit usage")
			return
		}
		if usage.Limit == 0 {
			continue
		}

		item := scopeUsage{Limit: usage.Limit, Used: usage.Used, Remaining: usage.Remaining}
		if !usage.ResetAt.IsZero() {
			item.ResetAt = usage.ResetAt.UTC().Format(time.RFC3339)
		}
		scopes[scope] = item
	}

	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"enabled":        true,
		"client":         client,
		"window_seconds": int64(h.limiter.Window() / time.Second),
		"scopes":         scopes,
	})
}
