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
)

// WishlistService управляет списком желаний
type WishlistService struct {
	db       *database.DB
	log      *logger.Logger
	products *ProductService
}

// NewWishlistService создает новый экземпляр сервиса списка желаний
func NewWishlistService(db *database.DB, log *logger.Logger, products *ProductService) *WishlistService {
	return &WishlistService{
		db:       db,
		log:      log,
		products: products,
	}
}

// GetWishlist возвращает товары из списка желаний в порядке добавления
func (s *WishlistService) GetWishlist(ctx context.Context, userID uuid.UUID) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist: %w", err)
	}

	byID, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	products := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// Toggle удаляет товар из списка, если он там есть, иначе добавляет
func (s *WishlistService) Toggle(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistToggleResult, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if removed > 0 {
		s.log.WithFields(map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		}).Info("Product removed from wishlist")
		return &models.WishlistToggleResult{ProductID: productID, InWishlist: false}, nil
	}

	exists, err := productExists(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("product not found", nil)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (user_id, product_id, added_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, productID, time.Now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperror.NotFound("product not found", err)
		}
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	}).Info("Product added to wishlist")

	return &models.WishlistToggleResult{ProductID: productID, InWishlist: true}, nil
}
