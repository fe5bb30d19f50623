package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid проверяет, что статус входит в допустимый набор
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus представляет статус оплаты
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Order представляет заказ покупателя
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	Note            string          `json:"note,omitempty" db:"note"`
	Status          OrderStatus     `json:"status" db:"status"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status" db:"payment_status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem представляет строку заказа с ценой на момент оформления
type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Product     *Product        `json:"product,omitempty"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
}

// CreateOrderRequest представляет запрос на оформление заказа
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items"`
	ShippingAddress string                   `json:"shipping_address"`
	PaymentMethod   string                   `json:"payment_method"`
	Note            string                   `json:"note,omitempty"`
}

// CreateOrderItemRequest представляет позицию нового заказа
type CreateOrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// UpdateOrderStatusRequest представляет запрос на смену статуса
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderFilter задает фильтры списка заказов для администратора
type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}
