package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating представляет оценку товара пользователем
type Rating struct {
	ID               uuid.UUID `json:"id" db:"id"`
	UserID           uuid.UUID `json:"user_id" db:"user_id"`
	UserName         string    `json:"user_name,omitempty"`
	ProductID        uuid.UUID `json:"product_id" db:"product_id"`
	Rating           int       `json:"rating" db:"rating"`
	Comment          string    `json:"comment" db:"comment"`
	VerifiedPurchase bool      `json:"verified_purchase" db:"verified_purchase"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// RatingRequest представляет запрос на выставление оценки
type RatingRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
}

// UpdateRatingRequest представляет изменение существующей оценки
type UpdateRatingRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
