package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eshop/internal/config"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalyticsService выбирает заказы за период и сворачивает их в аналитику продаж.
type AnalyticsService struct {
	db         *database.DB
	log        *logger.Logger
	defaultTop int
}

// NewAnalyticsService создает новый сервис аналитики.
func NewAnalyticsService(db *database.DB, log *logger.Logger, cfg *config.AnalyticsConfig) *AnalyticsService {
	defaultTop := defaultTopSellersLimit
	if cfg != nil && cfg.DefaultTopLimit > 0 {
		defaultTop = cfg.DefaultTopLimit
	}

	return &AnalyticsService{
		db:         db,
		log:        log,
		defaultTop: defaultTop,
	}
}

// SalesAnalytics возвращает агрегаты продаж за период фильтра.
func (s *AnalyticsService) SalesAnalytics(ctx context.Context, filter models.SalesAnalyticsFilter) (*models.SalesAnalytics, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, fmt.Errorf("invalid analytics period: from is after to")
	}
	if filter.TopLimit <= 0 {
		filter.TopLimit = s.defaultTop
	}

	start := time.Now()
	orders, err := s.fetchOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := AggregateSales(orders, filter.TopLimit)

	s.log.WithFields(map[string]interface{}{
		"orders":      len(orders),
		"top_limit":   filter.TopLimit,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Sales analytics computed")

	return result, nil
}

// fetchOrders загружает заказы периода одним запросом со строками, товарами и категориями.
func (s *AnalyticsService) fetchOrders(ctx context.Context, filter models.SalesAnalyticsFilter) ([]models.Order, error) {
	query := `
		SELECT o.id, o.status, o.created_at,
		       oi.product_id, oi.product_name, oi.quantity, oi.unit_price,
		       p.id, p.name, p.price,
		       c.id, c.name, pc.id, pc.name
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN categories pc ON pc.id = c.parent_id
		WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
		args = append(args, filter.From)
		argIndex++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
		args = append(args, filter.To)
	}
	query += " ORDER BY o.created_at, o.id, oi.position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		var (
			orderID       uuid.UUID
			status        models.OrderStatus
			createdAt     time.Time
			itemProductID uuid.NullUUID
			itemName      sql.NullString
			quantity      sql.NullInt64
			unitPrice     decimal.NullDecimal
			productID     uuid.NullUUID
			productName   sql.NullString
			productPrice  decimal.NullDecimal
			categoryID    uuid.NullUUID
			categoryName  sql.NullString
			parentID      uuid.NullUUID
			parentName    sql.NullString
		)
		if err := rows.Scan(&orderID, &status, &createdAt,
			&itemProductID, &itemName, &quantity, &unitPrice,
			&productID, &productName, &productPrice,
			&categoryID, &categoryName, &parentID, &parentName); err != nil {
			return nil, fmt.Errorf("failed to scan sales row: %w", err)
		}

		pos, ok := index[orderID]
		if !ok {
			orders = append(orders, models.Order{ID: orderID, Status: status, CreatedAt: createdAt, Items: []models.OrderItem{}})
			pos = len(orders) - 1
			index[orderID] = pos
		}

		if !itemProductID.Valid {
			continue
		}

		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   itemProductID.UUID,
			ProductName: itemName.String,
			Quantity:    int(quantity.Int64),
		}
		if unitPrice.Valid {
			item.UnitPrice = unitPrice.Decimal
		}

		if productID.Valid {
			product := &models.Product{ID: productID.UUID, Name: productName.String}
			if productPrice.Valid {
				product.Price = productPrice.Decimal
			}
			if categoryID.Valid {
				product.Category = &models.Category{ID: categoryID.UUID, Name: categoryName.String}
				if parentID.Valid {
					product.Category.Parent = &models.Category{ID: parentID.UUID, Name: parentName.String}
				}
			}
			item.Product = product
		} else {
			// Удаленный товар: учитываем по снимку строки заказа, категория неизвестна
			item.Product = &models.Product{ID: item.ProductID, Name: item.ProductName}
		}

		orders[pos].Items = append(orders[pos].Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales rows: %w", err)
	}

	return orders, nil
}
