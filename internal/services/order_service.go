package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, total_amount, shipping_address, note, status, payment_method, payment_status, created_at, updated_at`

// OrderService представляет сервис для работы с заказами
type OrderService struct {
	db  *database.DB
	log *logger.Logger
}

// NewOrderService создает новый экземпляр сервиса заказов
func NewOrderService(db *database.DB, log *logger.Logger) *OrderService {
	return &OrderService{
		db:  db,
		log: log,
	}
}

type lockedProduct struct {
	name  string
	price decimal.Decimal
	stock int
}

// CreateOrder оформляет заказ: блокирует товары, списывает остатки и фиксирует цены
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	items, err := validateCreateOrder(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	// Блокируем строки в порядке id, чтобы параллельные заказы не взаимоблокировались
	lockQuery := `
		SELECT id, name, price, stock
		FROM products
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE
	`
	rows, err := tx.QueryContext(ctx, lockQuery, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	locked := make(map[uuid.UUID]lockedProduct, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var p lockedProduct
		if err := rows.Scan(&id, &p.name, &p.price, &p.stock); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		locked[id] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	for _, item := range items {
		p, ok := locked[item.ProductID]
		if !ok {
			return nil, apperror.NotFound(fmt.Sprintf("product %s not found", item.ProductID), nil)
		}
		if p.stock < item.Quantity {
			return nil, apperror.Conflict(fmt.Sprintf("insufficient stock for product %s", p.name), nil)
		}
	}

	now := time.Now()
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           make([]models.OrderItem, 0, len(items)),
		TotalAmount:     decimal.Zero,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Note:            strings.TrimSpace(req.Note),
		Status:          models.OrderStatusPending,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		PaymentStatus:   models.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range items {
		p := locked[item.ProductID]
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $1, updated_at = $2 WHERE id = $3`,
			item.Quantity, now, item.ProductID); err != nil {
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}

		line := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: p.name,
			Quantity:    item.Quantity,
			UnitPrice:   p.price,
			TotalPrice:  p.price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		order.Items = append(order.Items, line)
		order.TotalAmount = order.TotalAmount.Add(line.TotalPrice)
	}

	insertOrder := `
		INSERT INTO orders (id, user_id, total_amount, shipping_address, note, status, payment_method, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, insertOrder, order.ID, order.UserID, order.TotalAmount, order.ShippingAddress,
		order.Note, order.Status, order.PaymentMethod, order.PaymentStatus, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	insertItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, total_price, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, line := range order.Items {
		_, err = tx.ExecContext(ctx, insertItem, line.ID, line.OrderID, line.ProductID, line.ProductName,
			line.Quantity, line.UnitPrice, line.TotalPrice, i)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      userID,
		"items":        len(order.Items),
		"total_amount": order.TotalAmount.StringFixed(2),
	}).Info("Order created successfully")

	return order, nil
}

// GetOrder получает заказ по ID вместе со строками
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	orders, err := s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, apperror.NotFound("order not found", nil)
	}
	return orders[0], nil
}

// ListUserOrders возвращает заказы пользователя, новые первыми
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListOrders получает список заказов с фильтрацией
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.Status != nil {
		if !filter.Status.IsValid() {
			return nil, apperror.Validation("invalid status filter", nil)
		}
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
		argIndex++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filter.Offset)
	}

	return s.queryOrders(ctx, query, args...)
}

// UpdateOrderStatus меняет статус заказа и возвращает заказ и прежний статус
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, models.OrderStatus, error) {
	if req == nil || req.Status == "" {
		return nil, "", apperror.Validation("status is required", nil)
	}
	if !req.Status.IsValid() {
		return nil, "", apperror.Validation("status must be one of: pending, confirmed, shipped, delivered, cancelled", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStatus models.OrderStatus
	if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&currentStatus); err != nil {
		if isNoRows(err) {
			return nil, "", apperror.NotFound("order not found", err)
		}
		return nil, "", fmt.Errorf("failed to fetch order status: %w", err)
	}

	if !isValidOrderStatusTransition(currentStatus, req.Status) {
		return nil, "", apperror.Conflict(fmt.Sprintf("cannot change order status from %s to %s", currentStatus, req.Status), nil)
	}

	if currentStatus != req.Status {
		now := time.Now()
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, req.Status, now, orderID); err != nil {
			return nil, "", fmt.Errorf("failed to update order status: %w", err)
		}

		if req.Status == models.OrderStatusCancelled {
			restock := `
				UPDATE products p
				SET stock = p.stock + oi.quantity, updated_at = $2
				FROM order_items oi
				WHERE oi.order_id = $1 AND oi.product_id = p.id
			`
			if _, err := tx.ExecContext(ctx, restock, orderID, now); err != nil {
				return nil, "", fmt.Errorf("failed to restock cancelled order: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit order status update: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"old_status": currentStatus,
		"new_status": req.Status,
	}).Info("Order status updated")

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, currentStatus, err
	}
	return order, currentStatus, nil
}

func (s *OrderService) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order := &models.Order{Items: []models.OrderItem{}}
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.ShippingAddress, &order.Note,
			&order.Status, &order.PaymentMethod, &order.PaymentStatus, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate order items: %w", err)
	}

	return nil
}

// validateCreateOrder проверяет запрос и объединяет повторяющиеся товары
func validateCreateOrder(req *models.CreateOrderRequest) ([]models.CreateOrderItemRequest, error) {
	if req == nil {
		return nil, apperror.Validation("request body is required", nil)
	}
	if len(req.Items) == 0 {
		return nil, apperror.Validation("order must contain at least one item", nil)
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, apperror.Validation("shipping_address is required", nil)
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, apperror.Validation("payment_method is required", nil)
	}

	merged := make([]models.CreateOrderItemRequest, 0, len(req.Items))
	positions := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return nil, apperror.Validation("product_id is required for every item", nil)
		}
		if item.Quantity < 1 {
			return nil, apperror.Validation("quantity must be at least 1", nil)
		}
		if idx, ok := positions[item.ProductID]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		positions[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	return merged, nil
}

func isValidOrderStatusTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.OrderStatusPending:
		return to == models.OrderStatusConfirmed || to == models.OrderStatusCancelled
	case models.OrderStatusConfirmed:
		return to == models.OrderStatusShipped || to == models.OrderStatusCancelled
	case models.OrderStatusShipped:
		return to == models.OrderStatusDelivered
	case models.OrderStatusDelivered, models.OrderStatusCancelled:
		return false
	default:
		return false
	}
}
