package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesAnalyticsFilter задает период и размер списка лидеров продаж.
type SalesAnalyticsFilter struct {
	From     time.Time
	To       time.Time
	TopLimit int
}

// CategoryEarnings описывает выручку родительской категории и ее подкатегорий.
type CategoryEarnings struct {
	Total         decimal.Decimal            `json:"total"`
	Subcategories map[string]decimal.Decimal `json:"subcategories"`
}

// TopSellingProduct описывает товар из списка лидеров продаж.
type TopSellingProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	TotalSold int       `json:"total_sold"`
}

// SalesAnalytics содержит агрегаты продаж за период.
type SalesAnalytics struct {
	TotalEarnings          decimal.Decimal              `json:"total_earnings"`
	CategoryEarnings       map[string]decimal.Decimal   `json:"category_earnings"`
	ParentCategoryEarnings map[string]decimal.Decimal   `json:"parent_category_earnings"`
	CategoryTreeEarnings   map[string]*CategoryEarnings `json:"category_tree_earnings"`
	MonthlyEarnings        map[string]decimal.Decimal   `json:"monthly_earnings"`
	OrderStatusStats       map[OrderStatus]int          `json:"order_status_stats"`
	TopSellingProducts     []TopSellingProduct          `json:"top_selling_products"`
}
