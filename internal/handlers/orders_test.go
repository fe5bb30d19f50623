package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eshop/internal/apperror"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func sampleOrder(status models.OrderStatus) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Status:          status,
		PaymentStatus:   models.PaymentStatusPending,
		ShippingAddress: "Main st. 1",
		PaymentMethod:   "card",
		TotalAmount:     decimal.RequireFromString("250.50"),
		Items: []models.OrderItem{{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			ProductName: "Phone",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("250.50"),
			TotalPrice:  decimal.RequireFromString("250.50"),
		}},
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	order := sampleOrder(models.OrderStatusPending)
	producer := &stubProducer{}
	h := NewOrderHandler(&stubOrderService{order: order}, producer, testLogger())

	body := `{"items":[{"product_id":"` + order.Items[0].ProductID.String() + `","quantity":1}],"shipping_address":"Main st. 1","payment_method":"card"}`
	rr := httptest.NewRecorder()
	h.CreateOrder(rr, asUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)), testUser(models.RoleUser)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var got models.Order
	decodeEnvelope(t, rr, &got)
	if got.ID != order.ID || !got.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(producer.events) != 1 || producer.events[0] != models.EventTypeOrderPlaced {
		t.Fatalf("expected order.placed, got %v", producer.events)
	}
}

func TestOrderHandler_CreateOrder_PublishFailureIgnored(t *testing.T) {
	order := sampleOrder(models.OrderStatusPending)
	h := NewOrderHandler(&stubOrderService{order: order}, &stubProducer{err: errors.New("kafka down")}, testLogger())

	rr := httptest.NewRecorder()
	h.CreateOrder(rr, asUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[]}`)), testUser(models.RoleUser)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
}

func TestOrderHandler_CreateOrder_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperror.Validation("order must contain at least one item", nil), http.StatusBadRequest},
		{"unknown product", apperror.NotFound("product not found", nil), http.StatusNotFound},
		{"out of stock", apperror.Conflict("insufficient stock for Phone", nil), http.StatusConflict},
		{"internal", errors.New("tx failed"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			producer := &stubProducer{}
			h := NewOrderHandler(&stubOrderService{err: tc.err}, producer, testLogger())
			rr := httptest.NewRecorder()
			h.CreateOrder(rr, asUser(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[]}`)), testUser(models.RoleUser)))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
			if len(producer.events) != 0 {
				t.Fatalf("no event expected on failure")
			}
		})
	}
}

func TestOrderHandler_CreateOrder_RequiresUser(t *testing.T) {
	h := NewOrderHandler(&stubOrderService{}, &stubProducer{}, testLogger())

	rr := httptest.NewRecorder()
	h.CreateOrder(rr, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestOrderHandler_MyOrders(t *testing.T) {
	orders := []*models.Order{sampleOrder(models.OrderStatusPending), sampleOrder(models.OrderStatusDelivered)}
	h := NewOrderHandler(&stubOrderService{orders: orders}, &stubProducer{}, testLogger())

	rr := httptest.NewRecorder()
	h.MyOrders(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/orders/me", nil), testUser(models.RoleUser)))

	var got []models.Order
	decodeEnvelope(t, rr, &got)
	if rr.Code != http.StatusOK || len(got) != 2 {
		t.Fatalf("unexpected orders: code=%d len=%d", rr.Code, len(got))
	}
}

func TestOrderHandler_ListOrders_Filters(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantStatus string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", "", defaultOrdersLimit, 0},
		{"status and paging", "?status=shipped&limit=10&offset=20", "shipped", 10, 20},
		{"limit above max", "?limit=1000", "", defaultOrdersLimit, 0},
		{"negative offset", "?offset=-5", "", defaultOrdersLimit, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders := &stubOrderService{orders: []*models.Order{}}
			h := NewOrderHandler(orders, &stubProducer{}, testLogger())
			rr := httptest.NewRecorder()
			h.ListOrders(rr, httptest.NewRequest(http.MethodGet, "/api/admin/orders"+tc.query, nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			f := orders.filter
			if f.Limit != tc.wantLimit || f.Offset != tc.wantOffset {
				t.Fatalf("unexpected paging: %+v", f)
			}
			if tc.wantStatus == "" && f.Status != nil {
				t.Fatalf("expected no status filter, got %v", *f.Status)
			}
			if tc.wantStatus != "" && (f.Status == nil || string(*f.Status) != tc.wantStatus) {
				t.Fatalf("expected status %s, got %v", tc.wantStatus, f.Status)
			}
		})
	}
}

func TestOrderHandler_ListOrders_InvalidStatus(t *testing.T) {
	h := NewOrderHandler(&stubOrderService{err: apperror.Validation("invalid order status", nil)}, &stubProducer{}, testLogger())

	rr := httptest.NewRecorder()
	h.ListOrders(rr, httptest.NewRequest(http.MethodGet, "/api/admin/orders?status=lost", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	order := sampleOrder(models.OrderStatusConfirmed)
	producer := &stubProducer{}
	h := NewOrderHandler(&stubOrderService{order: order, previous: models.OrderStatusPending}, producer, testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"confirmed"}`)), "orderId", order.ID.String())
	rr := httptest.NewRecorder()
	h.UpdateOrderStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(producer.events) != 1 || producer.events[0] != models.EventTypeOrderStatusChanged {
		t.Fatalf("expected order.status_changed, got %v", producer.events)
	}
}

func TestOrderHandler_UpdateOrderStatus_SameStatusNoEvent(t *testing.T) {
	order := sampleOrder(models.OrderStatusShipped)
	producer := &stubProducer{}
	h := NewOrderHandler(&stubOrderService{order: order, previous: models.OrderStatusShipped}, producer, testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"shipped"}`)), "orderId", order.ID.String())
	rr := httptest.NewRecorder()
	h.UpdateOrderStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(producer.events) != 0 {
		t.Fatalf("no event expected for a no-op update, got %v", producer.events)
	}
}

func TestOrderHandler_UpdateOrderStatus_Errors(t *testing.T) {
	cases := []struct {
		name    string
		orderID string
		err     error
		want    int
	}{
		{"invalid id", "123", nil, http.StatusBadRequest},
		{"not found", uuid.NewString(), apperror.NotFound("order not found", nil), http.StatusNotFound},
		{"invalid transition", uuid.NewString(), apperror.Conflict("cannot change status from delivered to pending", nil), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewOrderHandler(&stubOrderService{err: tc.err}, &stubProducer{}, testLogger())
			req := withURLParam(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"pending"}`)), "orderId", tc.orderID)
			rr := httptest.NewRecorder()
			h.UpdateOrderStatus(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
