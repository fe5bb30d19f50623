package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
)

// RatingService управляет оценками товаров
type RatingService struct {
	db  *database.DB
	log *logger.Logger
}

// NewRatingService создает новый экземпляр сервиса оценок
func NewRatingService(db *database.DB, log *logger.Logger) *RatingService {
	return &RatingService{
		db:  db,
		log: log,
	}
}

// RateProduct создает или заменяет оценку пользователя для товара
func (s *RatingService) RateProduct(ctx context.Context, userID uuid.UUID, req *models.RatingRequest) (*models.Rating, error) {
	if req == nil || req.ProductID == uuid.Nil {
		return nil, apperror.Validation("product_id is required", nil)
	}
	if err := validateRatingValue(req.Rating); err != nil {
		return nil, err
	}

	exists, err := productExists(ctx, s.db, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("product not found", nil)
	}

	var verified bool
	verifiedQuery := `
		SELECT EXISTS(
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = $3
		)
	`
	if err := s.db.QueryRowContext(ctx, verifiedQuery, userID, req.ProductID, models.OrderStatusDelivered).Scan(&verified); err != nil {
		return nil, fmt.Errorf("failed to check purchase: %w", err)
	}

	now := time.Now()
	rating := &models.Rating{
		ID:               uuid.New(),
		UserID:           userID,
		ProductID:        req.ProductID,
		Rating:           req.Rating,
		Comment:          strings.TrimSpace(req.Comment),
		VerifiedPurchase: verified,
		UpdatedAt:        now,
	}

	upsertQuery := `
		INSERT INTO ratings (id, user_id, product_id, rating, comment, verified_purchase, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET rating = EXCLUDED.rating,
		    comment = EXCLUDED.comment,
		    verified_purchase = EXCLUDED.verified_purchase,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, upsertQuery, rating.ID, rating.UserID, rating.ProductID, rating.Rating,
		rating.Comment, rating.VerifiedPurchase, now).Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"rating_id":  rating.ID,
		"product_id": rating.ProductID,
		"user_id":    userID,
		"rating":     rating.Rating,
		"verified":   verified,
	}).Info("Product rated")

	return rating, nil
}

// ListProductRatings возвращает оценки товара, новые первыми
func (s *RatingService) ListProductRatings(ctx context.Context, productID uuid.UUID) ([]models.Rating, error) {
	exists, err := productExists(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("product not found", nil)
	}
	return queryProductRatings(ctx, s.db, productID)
}

// UpdateRating изменяет оценку владельца
func (s *RatingService) UpdateRating(ctx context.Context, userID, ratingID uuid.UUID, req *models.UpdateRatingRequest) (*models.Rating, error) {
	if req == nil {
		return nil, apperror.Validation("request body is required", nil)
	}
	if err := validateRatingValue(req.Rating); err != nil {
		return nil, err
	}

	query := `
		UPDATE ratings
		SET rating = $1, comment = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING id, user_id, product_id, rating, comment, verified_purchase, created_at, updated_at
	`
	rating := &models.Rating{}
	err := s.db.QueryRowContext(ctx, query, req.Rating, strings.TrimSpace(req.Comment), time.Now(), ratingID, userID).Scan(
		&rating.ID, &rating.UserID, &rating.ProductID, &rating.Rating, &rating.Comment,
		&rating.VerifiedPurchase, &rating.CreatedAt, &rating.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("rating not found", err)
		}
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"rating_id": ratingID,
		"user_id":   userID,
		"rating":    rating.Rating,
	}).Info("Rating updated")

	return rating, nil
}

// DeleteRating удаляет оценку владельца и возвращает идентификатор товара
func (s *RatingService) DeleteRating(ctx context.Context, userID, ratingID uuid.UUID) (uuid.UUID, error) {
	var productID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM ratings WHERE id = $1 AND user_id = $2 RETURNING product_id`,
		ratingID, userID).Scan(&productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, apperror.NotFound("rating not found", err)
		}
		return uuid.Nil, fmt.Errorf("failed to delete rating: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"rating_id":  ratingID,
		"user_id":    userID,
		"product_id": productID,
	}).Info("Rating deleted")

	return productID, nil
}

func validateRatingValue(value int) error {
	if value < 1 || value > 5 {
		return apperror.Validation("rating must be between 1 and 5", nil)
	}
	return nil
}

func queryProductRatings(ctx context.Context, db *database.DB, productID uuid.UUID) ([]models.Rating, error) {
	query := `
		SELECT r.id, r.user_id, u.name, r.product_id, r.rating, r.comment, r.verified_purchase, r.created_at, r.updated_at
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0)
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.ID, &r.UserID, &r.UserName, &r.ProductID, &r.Rating, &r.Comment,
			&r.VerifiedPurchase, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}

	return ratings, nil
}
