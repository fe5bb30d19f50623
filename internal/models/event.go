package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType представляет тип доменного события
type EventType string

const (
	EventTypeOrderPlaced        EventType = "order.placed"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeProductCreated     EventType = "product.created"
	EventTypeProductUpdated     EventType = "product.updated"
	EventTypeProductDeleted     EventType = "product.deleted"
	EventTypeRatingSubmitted    EventType = "rating.submitted"
)

// Event представляет сообщение, публикуемое в Kafka
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// OrderPlacedData описывает событие оформления заказа
type OrderPlacedData struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemsCount  int             `json:"items_count"`
}

// OrderStatusChangedData описывает смену статуса заказа
type OrderStatusChangedData struct {
	OrderID   uuid.UUID   `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
}

// ProductEventData описывает изменение товара каталога
type ProductEventData struct {
	ProductID  uuid.UUID `json:"product_id"`
	Name       string    `json:"name,omitempty"`
	CategoryID uuid.UUID `json:"category_id,omitempty"`
}

// RatingSubmittedData описывает новую или измененную оценку
type RatingSubmittedData struct {
	RatingID  uuid.UUID `json:"rating_id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
}
