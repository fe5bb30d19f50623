package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IBM/sarama"
)

type stubDB struct{ err error }

func (s *stubDB) Health() error { return s.err }

type stubRedisHealth struct{ err error }

func (s *stubRedisHealth) Health(ctx context.Context) error { return s.err }

type stubMediaHealth struct{ err error }

func (s *stubMediaHealth) Health(ctx context.Context) error { return s.err }

func kafkaOK([]string) error { return nil }

func decodeHealth(t *testing.T, rr *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return resp
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		db         error
		redis      error
		kafka      error
		wantCode   int
		wantStatus string
	}{
		{name: "all healthy", wantCode: http.StatusOK, wantStatus: statusHealthy},
		{name: "kafka down degrades", kafka: errors.New("kafka down"), wantCode: http.StatusOK, wantStatus: statusDegraded},
		{name: "redis down", redis: errors.New("redis down"), wantCode: http.StatusServiceUnavailable, wantStatus: statusUnhealthy},
		{name: "database down", db: errors.New("db down"), kafka: errors.New("kafka down"), wantCode: http.StatusServiceUnavailable, wantStatus: statusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kafkaErr := tt.kafka
			h := NewHealthHandler(&stubDB{err: tt.db}, &stubRedisHealth{err: tt.redis}, []string{"kafka:9092"},
				func([]string) error { return kafkaErr })

			rr := httptest.NewRecorder()
			h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			resp := decodeHealth(t, rr)
			if resp.Status != tt.wantStatus {
				t.Fatalf("expected status %s, got %+v", tt.wantStatus, resp)
			}
			if len(resp.Components) != 3 {
				t.Fatalf("expected 3 components, got %+v", resp.Components)
			}
		})
	}
}

func TestHealthHandler_HealthReportsComponentError(t *testing.T) {
	h := NewHealthHandler(&stubDB{}, &stubRedisHealth{err: errors.New("connection refused")}, nil, kafkaOK)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	redis := decodeHealth(t, rr).Components["redis"]
	if redis.Status != statusUnhealthy || redis.Error != "connection refused" {
		t.Fatalf("unexpected redis component: %+v", redis)
	}
}

func TestHealthHandler_Media(t *testing.T) {
	h := NewHealthHandler(&stubDB{}, &stubRedisHealth{}, nil, kafkaOK).WithMedia(&stubMediaHealth{err: errors.New("no bucket")})

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decodeHealth(t, rr)
	if rr.Code != http.StatusOK || resp.Status != statusDegraded {
		t.Fatalf("media failure must only degrade, got %d %+v", rr.Code, resp)
	}
	if resp.Components["media"].Status != statusUnhealthy {
		t.Fatalf("unexpected media component: %+v", resp.Components["media"])
	}
}

func TestHealthHandler_MediaDisabled(t *testing.T) {
	h := NewHealthHandler(&stubDB{}, &stubRedisHealth{}, nil, kafkaOK).WithMedia(nil)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decodeHealth(t, rr)
	if resp.Status != statusHealthy || resp.Components["media"].Status != statusDisabled {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		db       error
		redis    error
		kafka    error
		wantCode int
	}{
		{name: "ready", wantCode: http.StatusOK},
		{name: "kafka is not required", kafka: errors.New("kafka down"), wantCode: http.StatusOK},
		{name: "database not ready", db: errors.New("db down"), wantCode: http.StatusServiceUnavailable},
		{name: "redis not ready", redis: errors.New("redis down"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kafkaCalled := false
			kafkaErr := tt.kafka
			h := NewHealthHandler(&stubDB{err: tt.db}, &stubRedisHealth{err: tt.redis}, nil, func([]string) error {
				kafkaCalled = true
				return kafkaErr
			})

			rr := httptest.NewRecorder()
			h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if kafkaCalled {
				t.Fatalf("readiness must not probe kafka")
			}
		})
	}
}

func TestHealthHandler_ReadinessNamesComponent(t *testing.T) {
	h := NewHealthHandler(&stubDB{err: errors.New("db down")}, &stubRedisHealth{}, nil, kafkaOK)

	rr := httptest.NewRecorder()
	h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Message != "database not ready" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(&stubDB{err: errors.New("db down")}, &stubRedisHealth{}, nil, kafkaOK)

	rr := httptest.NewRecorder()
	h.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("liveness must not depend on components, got %d", rr.Code)
	}
}

func TestCheckKafkaHealth(t *testing.T) {
	if err := CheckKafkaHealth(nil); err == nil {
		t.Fatalf("expected error for empty brokers")
	}

	broker := sarama.NewMockBroker(t, 1)
	defer broker.Close()

	broker.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetBroker(broker.Addr(), broker.BrokerID()).
			SetController(broker.BrokerID()).
			SetLeader("orders", 0, broker.BrokerID()),
	})

	if err := CheckKafkaHealth([]string{broker.Addr()}); err != nil {
		t.Fatalf("expected kafka health ok, got %v", err)
	}
}

func TestNewHealthHandler_DefaultChecker(t *testing.T) {
	h := NewHealthHandler(&stubDB{}, &stubRedisHealth{}, nil, nil)

	rr := httptest.NewRecorder()
	h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	resp := decodeHealth(t, rr)
	if resp.Components["kafka"].Status != statusUnhealthy {
		t.Fatalf("default checker must fail without brokers: %+v", resp.Components["kafka"])
	}
}
