package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Image представляет изображение, размещенное во внешнем хранилище
type Image struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Product представляет товар каталога
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	BrandName     string          `json:"brand_name" db:"brand_name"`
	Images        []Image         `json:"images"`
	Stock         int             `json:"stock" db:"stock"`
	Price         decimal.Decimal `json:"price" db:"price"`
	CategoryID    uuid.UUID       `json:"category_id" db:"category_id"`
	Category      *Category       `json:"category,omitempty"`
	RatingAverage float64         `json:"rating_average"`
	RatingCount   int             `json:"rating_count"`
	Ratings       []Rating        `json:"ratings,omitempty"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateProductRequest представляет поля формы создания товара
type CreateProductRequest struct {
	Name        string
	Description string
	BrandName   string
	Stock       int
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Images      []Image
}

// UpdateProductRequest представляет частичное обновление товара
type UpdateProductRequest struct {
	Name           *string          `json:"name,omitempty"`
	Description    *string          `json:"description,omitempty"`
	BrandName      *string          `json:"brand_name,omitempty"`
	Stock          *int             `json:"stock,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	ImagesToDelete []string         `json:"images_to_delete,omitempty"`
}

// ProductRater описывает пользователя, оценившего товар
type ProductRater struct {
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`
	Rating  int       `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}
