package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem представляет строку корзины
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart представляет корзину пользователя
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// UpdateCartItemRequest задает новое количество товара в корзине
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

// WishlistToggleResult сообщает состояние товара после переключения
type WishlistToggleResult struct {
	ProductID  uuid.UUID `json:"product_id"`
	InWishlist bool      `json:"in_wishlist"`
}
