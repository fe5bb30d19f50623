package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"golang.org/x/sync/errgroup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// KafkaChecker проверяет доступность брокеров
type KafkaChecker func(brokers []string) error

// MediaHealth проверяет хранилище изображений
type MediaHealth interface {
	Health(ctx context.Context) error
}

// componentCheck описывает одну зависимость. Отказ critical компонента снимает сервис с балансировки.
type componentCheck struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// HealthHandler отвечает на пробы оркестратора и показывает состояние зависимостей магазина
type HealthHandler struct {
	checks    []componentCheck
	version   string
	startedAt time.Time
}

// NewHealthHandler создает обработчик проверок. checker по умолчанию CheckKafkaHealth.
// База и Redis критичны; Kafka нет, события публикуются по возможности.
func NewHealthHandler(db DBHealth, redis RedisHealth, kafkaBrokers []string, checker KafkaChecker) *HealthHandler {
	if checker == nil {
		checker = CheckKafkaHealth
	}

	return &HealthHandler{
		checks: []componentCheck{
			{name: "database", critical: true, check: func(context.Context) error { return db.Health() }},
			{name: "redis", critical: true, check: redis.Health},
			{name: "kafka", check: func(context.Context) error { return checker(kafkaBrokers) }},
		},
		version:   "1.0.0",
		startedAt: time.Now(),
	}
}

// WithMedia добавляет проверку хранилища изображений. nil помечает загрузку изображений выключенной.
func (h *HealthHandler) WithMedia(media MediaHealth) *HealthHandler {
	c := componentCheck{name: "media"}
	if media != nil {
		c.check = media.Health
	}
	h.checks = append(h.checks, c)
	return h
}

// ComponentStatus описывает результат проверки одной зависимости
type ComponentStatus struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthResponse представляет ответ проверки здоровья
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Health проверяет все зависимости параллельно.
// Упавший критичный компонент дает 503, остальные только degraded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := h.run(ctx, false)

	overall := statusHealthy
	components := make(map[string]ComponentStatus, len(results))
	for i, c := range h.checks {
		res := results[i]
		components[c.name] = res
		if res.Status != statusUnhealthy {
			continue
		}
		if c.critical {
			overall = statusUnhealthy
		} else if overall == statusHealthy {
			overall = statusDegraded
		}
	}

	statusCode := http.StatusOK
	if overall == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, statusCode, HealthResponse{
		Status:     overall,
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Readiness проверяет только критичные зависимости
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := h.run(ctx, true)
	for i, c := range h.checks {
		if c.critical && results[i].Status == statusUnhealthy {
			writeErrorResponse(w, http.StatusServiceUnavailable, fmt.Sprintf("%s not ready", c.name))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Liveness проверяет, что процесс отвечает
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// run выполняет проверки параллельно; результат i соответствует h.checks[i]
func (h *HealthHandler) run(ctx context.Context, criticalOnly bool) []ComponentStatus {
	results := make([]ComponentStatus, len(h.checks))

	var g errgroup.Group
	for i, c := range h.checks {
		if criticalOnly && !c.critical {
			continue
		}
		if c.check == nil {
			results[i] = ComponentStatus{Status: statusDisabled}
			continue
		}

		g.Go(func() error {
			start := time.Now()
			err := c.check(ctx)
			res := ComponentStatus{Status: statusHealthy, Latency: time.Since(start).String()}
			if err != nil {
				res.Status = statusUnhealthy
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// CheckKafkaHealth проверяет доступность Kafka брокеров
func CheckKafkaHealth(brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Net.DialTimeout = 3 * time.Second
	cfg.Net.ReadTimeout = 5 * time.Second
	cfg.Net.WriteTimeout = 5 * time.Second
	cfg.Metadata.Retry.Max = 1
	cfg.Metadata.Retry.Backoff = 500 * time.Millisecond

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return err
	}
	return client.Close()
}
