package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eshop/internal/config"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubAnalyticsService struct {
	result *models.SalesAnalytics
	err    error
	filter models.SalesAnalyticsFilter
	hasDL  bool
}

func (s *stubAnalyticsService) SalesAnalytics(ctx context.Context, filter models.SalesAnalyticsFilter) (*models.SalesAnalytics, error) {
	s.filter = filter
	_, s.hasDL = ctx.Deadline()
	return s.result, s.err
}

func sampleAnalytics() *models.SalesAnalytics {
	return &models.SalesAnalytics{
		TotalEarnings:          decimal.RequireFromString("300"),
		CategoryEarnings:       map[string]decimal.Decimal{"Phones": decimal.RequireFromString("200"), "Laptops": decimal.RequireFromString("100")},
		ParentCategoryEarnings: map[string]decimal.Decimal{"Electronics": decimal.RequireFromString("300")},
		CategoryTreeEarnings: map[string]*models.CategoryEarnings{
			"Electronics": {
				Total:         decimal.RequireFromString("300"),
				Subcategories: map[string]decimal.Decimal{"Phones": decimal.RequireFromString("200"), "Laptops": decimal.RequireFromString("100")},
			},
		},
		MonthlyEarnings:  map[string]decimal.Decimal{"2024-01": decimal.RequireFromString("300")},
		OrderStatusStats: map[models.OrderStatus]int{models.OrderStatusDelivered: 2, models.OrderStatusPending: 1},
		TopSellingProducts: []models.TopSellingProduct{
			{ProductID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Phone", TotalSold: 3},
		},
	}
}

func TestAnalyticsHandler_JSON(t *testing.T) {
	svc := &stubAnalyticsService{result: sampleAnalytics()}
	h := NewAnalyticsHandler(svc, testLogger(), &config.AnalyticsConfig{MaxRangeDays: 31, DefaultTopLimit: 3})

	rr := httptest.NewRecorder()
	h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics?from=2024-01-01&to=2024-01-31", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var got models.SalesAnalytics
	decodeEnvelope(t, rr, &got)
	if !got.TotalEarnings.Equal(decimal.RequireFromString("300")) || got.OrderStatusStats[models.OrderStatusDelivered] != 2 {
		t.Fatalf("unexpected analytics: %+v", got)
	}

	wantFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !svc.filter.From.Equal(wantFrom) || svc.filter.To.Day() != 31 || svc.filter.To.Hour() != 23 {
		t.Fatalf("unexpected period: %v..%v", svc.filter.From, svc.filter.To)
	}
	if svc.filter.TopLimit != 3 {
		t.Fatalf("expected default top limit 3, got %d", svc.filter.TopLimit)
	}
	if !svc.hasDL {
		t.Fatalf("expected request timeout on storage context")
	}
}

func TestAnalyticsHandler_CSV(t *testing.T) {
	svc := &stubAnalyticsService{result: sampleAnalytics()}
	h := NewAnalyticsHandler(svc, testLogger(), &config.AnalyticsConfig{MaxRangeDays: 31})

	rr := httptest.NewRecorder()
	h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics?from=2024-01-01&to=2024-01-31&format=csv&top_limit=1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if svc.filter.TopLimit != 1 {
		t.Fatalf("expected top_limit 1, got %d", svc.filter.TopLimit)
	}

	reader := csv.NewReader(strings.NewReader(rr.Body.String()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}

	sections := make(map[string][]string)
	for _, rec := range records {
		if len(rec) > 1 {
			sections[rec[0]] = append(sections[rec[0]], strings.Join(rec[1:], "|"))
		}
	}

	if got := sections["summary"]; len(got) != 1 || got[0] != "2024-01-01..2024-01-31|300.00" {
		t.Fatalf("unexpected summary: %v", got)
	}
	if got := sections["category"]; len(got) != 2 || got[0] != "Laptops|100.00" || got[1] != "Phones|200.00" {
		t.Fatalf("categories must be sorted: %v", got)
	}
	if got := sections["category_tree"]; len(got) != 3 || got[0] != "Electronics|300.00" || got[1] != "Electronics/Laptops|100.00" {
		t.Fatalf("unexpected category tree: %v", got)
	}
	if got := sections["status"]; len(got) != 2 || got[0] != "delivered|2" {
		t.Fatalf("unexpected statuses: %v", got)
	}
	if got := sections["top_seller"]; len(got) != 1 || got[0] != "11111111-1111-1111-1111-111111111111|Phone|3" {
		t.Fatalf("unexpected top sellers: %v", got)
	}
}

func TestAnalyticsHandler_InvalidParams(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=01-01-2024"},
		{"bad to", "?to=tomorrow"},
		{"from after to", "?from=2024-02-01&to=2024-01-01"},
		{"range too wide", "?from=2023-01-01&to=2024-01-01"},
		{"bad format", "?from=2024-01-01&to=2024-01-02&format=xml"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAnalyticsService{result: sampleAnalytics()}
			h := NewAnalyticsHandler(svc, testLogger(), &config.AnalyticsConfig{MaxRangeDays: 30})
			rr := httptest.NewRecorder()
			h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics"+tc.query, nil))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestAnalyticsHandler_RangeLimitIsInclusive(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
	}{
		{name: "exactly max days", query: "?from=2024-01-02&to=2024-01-31", wantCode: http.StatusOK},
		{name: "one day over", query: "?from=2024-01-01&to=2024-01-31", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAnalyticsService{result: sampleAnalytics()}
			h := NewAnalyticsHandler(svc, testLogger(), &config.AnalyticsConfig{MaxRangeDays: 30})

			rr := httptest.NewRecorder()
			h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics"+tt.query, nil))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode == http.StatusBadRequest && !strings.Contains(rr.Body.String(), "date range too wide, max 30 days") {
				t.Fatalf("unexpected error body: %s", rr.Body.String())
			}
		})
	}
}

func TestAnalyticsHandler_DefaultPeriod(t *testing.T) {
	svc := &stubAnalyticsService{result: sampleAnalytics()}
	h := NewAnalyticsHandler(svc, testLogger(), &config.AnalyticsConfig{MaxRangeDays: 7})

	rr := httptest.NewRecorder()
	h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	days := svc.filter.To.Sub(svc.filter.From).Hours() / 24
	if days < 6 || days > 7 {
		t.Fatalf("expected a 7 day window, got %.2f days", days)
	}
	if svc.filter.TopLimit != defaultTopLimitFallback {
		t.Fatalf("expected fallback top limit, got %d", svc.filter.TopLimit)
	}
}

func TestAnalyticsHandler_ServiceError(t *testing.T) {
	h := NewAnalyticsHandler(&stubAnalyticsService{err: errors.New("timeout")}, testLogger(), nil)

	rr := httptest.NewRecorder()
	h.GetSalesAnalytics(rr, httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestAnalyticsTimeout(t *testing.T) {
	if got := analyticsTimeout(nil); got != 5*time.Second {
		t.Fatalf("unexpected default timeout: %v", got)
	}
	if got := analyticsTimeout(&config.AnalyticsConfig{RequestTimeoutSeconds: 12}); got != 12*time.Second {
		t.Fatalf("unexpected configured timeout: %v", got)
	}
}
