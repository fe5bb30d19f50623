package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"eshop/internal/config"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/shopspring/decimal"
)

const (
	defaultTopLimitFallback = 5
	defaultMaxRangeDays     = 365
)

// AnalyticsHandler обрабатывает эндпоинт аналитики продаж.
type AnalyticsHandler struct {
	service AnalyticsProvider
	log     *logger.Logger
	cfg     *config.AnalyticsConfig
}

// NewAnalyticsHandler создает новый обработчик аналитики.
func NewAnalyticsHandler(service AnalyticsProvider, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		log:     log,
		cfg:     cfg,
	}
}

// GetSalesAnalytics возвращает агрегаты продаж с возможностью экспорта в CSV.
func (h *AnalyticsHandler) GetSalesAnalytics(w http.ResponseWriter, r *http.Request) {
	filter, format, err := parseAnalyticsFilter(r, h.cfg)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), analyticsTimeout(h.cfg))
	defer cancel()

	analytics, err := h.service.SalesAnalytics(ctx, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load analytics")
		return
	}

	if format == "csv" {
		if err := writeSalesCSV(w, filter, analytics); err != nil {
			h.log.WithError(err).Warn("Failed to stream sales CSV")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", analytics)
}

func parseAnalyticsFilter(r *http.Request, cfg *config.AnalyticsConfig) (models.SalesAnalyticsFilter, string, error) {
	query := r.URL.Query()
	now := time.Now().UTC()

	maxRangeDays := defaultMaxRangeDays
	if cfg != nil && cfg.MaxRangeDays > 0 {
		maxRangeDays = cfg.MaxRangeDays
	}

	to := endOfDay(now)
	if toParam := query.Get("to"); toParam != "" {
		parsed, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return models.SalesAnalyticsFilter{}, "", fmt.Errorf("invalid 'to' date, expected YYYY-MM-DD")
		}
		to = endOfDay(parsed)
	}

	from := startOfDay(to.AddDate(0, 0, -maxRangeDays+1))
	if fromParam := query.Get("from"); fromParam != "" {
		parsed, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return models.SalesAnalyticsFilter{}, "", fmt.Errorf("invalid 'from' date, expected YYYY-MM-DD")
		}
		from = startOfDay(parsed)
	}

	if from.After(to) {
		return models.SalesAnalyticsFilter{}, "", fmt.Errorf("'from' date must be before 'to' date")
	}

	minAllowedFrom := startOfDay(to.AddDate(0, 0, -maxRangeDays+1))
	if from.Before(minAllowedFrom) {
		return models.SalesAnalyticsFilter{}, "", fmt.Errorf("date range too wide, max %d days", maxRangeDays)
	}

	topDefault := defaultTopLimitFallback
	if cfg != nil && cfg.DefaultTopLimit > 0 {
		topDefault = cfg.DefaultTopLimit
	}

	format := strings.ToLower(query.Get("format"))
	if format != "" && format != "json" && format != "csv" {
		return models.SalesAnalyticsFilter{}, "", fmt.Errorf("format must be json or csv")
	}

	filter := models.SalesAnalyticsFilter{
		From:     from,
		To:       to,
		TopLimit: parseIntWithDefault(query.Get("top_limit"), topDefault),
	}

	return filter, format, nil
}

func writeSalesCSV(w http.ResponseWriter, filter models.SalesAnalyticsFilter, a *models.SalesAnalytics) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=sales.csv")
	w.WriteHeader(http.StatusOK)

	writer := csv.NewWriter(w)
	rangeLabel := fmt.Sprintf("%s..%s", filter.From.Format("2006-01-02"), filter.To.Format("2006-01-02"))

	_ = writer.Write([]string{"section", "key", "value"})
	_ = writer.Write([]string{"summary", rangeLabel, a.TotalEarnings.StringFixed(2)})

	writeDecimalSection(writer, "month", a.MonthlyEarnings)
	writeDecimalSection(writer, "category", a.CategoryEarnings)
	writeDecimalSection(writer, "parent_category", a.ParentCategoryEarnings)

	parents := make([]string, 0, len(a.CategoryTreeEarnings))
	for name := range a.CategoryTreeEarnings {
		parents = append(parents, name)
	}
	sort.Strings(parents)
	for _, parent := range parents {
		node := a.CategoryTreeEarnings[parent]
		_ = writer.Write([]string{"category_tree", parent, node.Total.StringFixed(2)})
		for _, sub := range sortedKeys(node.Subcategories) {
			_ = writer.Write([]string{"category_tree", parent + "/" + sub, node.Subcategories[sub].StringFixed(2)})
		}
	}

	statuses := make([]string, 0, len(a.OrderStatusStats))
	for status := range a.OrderStatusStats {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		_ = writer.Write([]string{"status", status, strconv.Itoa(a.OrderStatusStats[models.OrderStatus(status)])})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"section", "product_id", "name", "total_sold"})
	for _, p := range a.TopSellingProducts {
		_ = writer.Write([]string{"top_seller", p.ProductID.String(), p.Name, strconv.Itoa(p.TotalSold)})
	}

	writer.Flush()
	return writer.Error()
}

func writeDecimalSection(writer *csv.Writer, section string, values map[string]decimal.Decimal) {
	for _, key := range sortedKeys(values) {
		_ = writer.Write([]string{section, key, values[key].StringFixed(2)})
	}
}

func sortedKeys(values map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Millisecond*999), time.UTC)
}

func analyticsTimeout(cfg *config.AnalyticsConfig) time.Duration {
	if cfg != nil && cfg.RequestTimeoutSeconds > 0 {
		return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}
