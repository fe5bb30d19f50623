package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"eshop/internal/config"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует доменные события магазина в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронного продюсера Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Net.DialTimeout = 5 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithField("brokers", cfg.Brokers).Info("Kafka producer created")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// PublishOrderPlaced публикует событие оформления заказа
func (p *Producer) PublishOrderPlaced(order *models.Order) error {
	return p.publishEvent(p.topics.Orders, order.ID, newEvent(models.EventTypeOrderPlaced, models.OrderPlacedData{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		ItemsCount:  len(order.Items),
	}))
}

// PublishOrderStatusChanged публикует событие смены статуса заказа
func (p *Producer) PublishOrderStatusChanged(orderID uuid.UUID, oldStatus, newStatus models.OrderStatus) error {
	return p.publishEvent(p.topics.Orders, orderID, newEvent(models.EventTypeOrderStatusChanged, models.OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}))
}

// PublishProductCreated публикует событие создания товара
func (p *Producer) PublishProductCreated(product *models.Product) error {
	return p.publishEvent(p.topics.Catalog, product.ID, newEvent(models.EventTypeProductCreated, models.ProductEventData{
		ProductID:  product.ID,
		Name:       product.Name,
		CategoryID: product.CategoryID,
	}))
}

// PublishProductUpdated публикует событие изменения товара
func (p *Producer) PublishProductUpdated(product *models.Product) error {
	return p.publishEvent(p.topics.Catalog, product.ID, newEvent(models.EventTypeProductUpdated, models.ProductEventData{
		ProductID:  product.ID,
		Name:       product.Name,
		CategoryID: product.CategoryID,
	}))
}

// PublishProductDeleted публикует событие удаления товара
func (p *Producer) PublishProductDeleted(productID uuid.UUID) error {
	return p.publishEvent(p.topics.Catalog, productID, newEvent(models.EventTypeProductDeleted, models.ProductEventData{
		ProductID: productID,
	}))
}

// PublishRatingSubmitted публикует событие выставления оценки
func (p *Producer) PublishRatingSubmitted(rating *models.Rating) error {
	return p.publishEvent(p.topics.Catalog, rating.ProductID, newEvent(models.EventTypeRatingSubmitted, models.RatingSubmittedData{
		RatingID:  rating.ID,
		ProductID: rating.ProductID,
		UserID:    rating.UserID,
		Rating:    rating.Rating,
	}))
}

func newEvent(eventType models.EventType, data interface{}) models.Event {
	return models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// publishEvent сериализует событие и отправляет его в топик.
// Ключ сообщения это id заказа или товара: события одной сущности попадают в одну партицию.
func (p *Producer) publishEvent(topic string, key uuid.UUID, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.WithError(err).WithField("event_type", event.Type).Error("Failed to publish event")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
	}).Debug("Event published")

	return nil
}

// Close закрывает продюсера
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
