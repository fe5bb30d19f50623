package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"eshop/internal/logger"
	"eshop/internal/models"
)

const (
	defaultOrdersLimit = 50
	maxOrdersLimit     = 100
)

// OrderHandler представляет обработчик заказов
type OrderHandler struct {
	orders   OrderService
	producer EventProducer
	log      *logger.Logger
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orders OrderService, producer EventProducer, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		producer: producer,
		log:      log,
	}
}

// CreateOrder оформляет заказ текущего пользователя
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create order")
		return
	}

	// Заказ уже создан, ошибка публикации клиенту не возвращается
	if h.producer != nil {
		if err := h.producer.PublishOrderPlaced(order); err != nil {
			h.log.WithError(err).Warn("Failed to publish order placed event")
		}
	}

	h.log.WithField("order_id", order.ID).Info("Order created successfully")
	writeSuccess(w, http.StatusCreated, "Order placed", order)
}

// MyOrders возвращает заказы текущего пользователя, новые первыми
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get orders")
		return
	}

	writeSuccess(w, http.StatusOK, "", orders)
}

// ListOrders возвращает все заказы с фильтрацией по статусу и пагинацией
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := models.OrderFilter{
		Limit:  defaultOrdersLimit,
		Offset: 0,
	}

	if statusStr := strings.TrimSpace(query.Get("status")); statusStr != "" {
		status := models.OrderStatus(statusStr)
		filter.Status = &status
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= maxOrdersLimit {
			filter.Limit = l
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	orders, err := h.orders.ListOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get orders")
		return
	}

	writeSuccess(w, http.StatusOK, "", orders)
}

// UpdateOrderStatus переводит заказ в новый статус
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	order, previous, err := h.orders.UpdateOrderStatus(r.Context(), orderID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update order status")
		return
	}

	if previous != order.Status && h.producer != nil {
		if err := h.producer.PublishOrderStatusChanged(orderID, previous, order.Status); err != nil {
			h.log.WithError(err).Warn("Failed to publish order status changed event")
		}
	}

	h.log.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"old_status": previous,
		"new_status": order.Status,
	}).Info("Order status updated")

	writeSuccess(w, http.StatusOK, "Order status updated", order)
}
