package services

import (
	"context"
	"fmt"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService управляет корзиной пользователя
type CartService struct {
	db       *database.DB
	log      *logger.Logger
	products *ProductService
}

// NewCartService создает новый экземпляр сервиса корзины
func NewCartService(db *database.DB, log *logger.Logger, products *ProductService) *CartService {
	return &CartService{
		db:       db,
		log:      log,
		products: products,
	}
}

// GetCart возвращает строки корзины с товарами и итоговой суммой
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, quantity, added_at FROM cart_items WHERE user_id = $1 ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	defer rows.Close()

	items := make([]models.CartItem, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
		ids = append(ids, item.ProductID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}

	products, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := &models.Cart{Items: items, Total: decimal.Zero}
	for i := range cart.Items {
		item := &cart.Items[i]
		item.Product = products[item.ProductID]
		if item.Product == nil {
			continue
		}
		item.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		cart.Total = cart.Total.Add(item.LineTotal)
	}

	return cart, nil
}

// SetItem заменяет количество товара в корзине; ноль удаляет строку
func (s *CartService) SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, apperror.Validation("quantity must not be negative", nil)
	}

	exists, err := productExists(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("product not found", nil)
	}

	if quantity == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", err)
		}
	} else {
		query := `
			INSERT INTO cart_items (user_id, product_id, quantity, added_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
		`
		if _, err := s.db.ExecContext(ctx, query, userID, productID, quantity, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	}).Info("Cart updated")

	return s.GetCart(ctx, userID)
}
