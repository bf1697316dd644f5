package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shopmesh/shopmesh-backend/api/middleware"
	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubOrderPublisher struct {
	declined bool
	queue    string
}

func (p *stubOrderPublisher) Publish(_ context.Context, queue string, _ any, _ amqp.Table) bool {
	p.queue = queue
	return !p.declined
}

type stubOrdersRepo struct {
	order *models.Order
}

func (r *stubOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (r *stubOrdersRepo) FindByUser(_ context.Context, _ uuid.UUID, _ pagination.Params) (*ordersvc.OrderList, error) {
	if r.order == nil {
		return &ordersvc.OrderList{}, nil
	}
	return &ordersvc.OrderList{Orders: []models.Order{*r.order}}, nil
}

func (r *stubOrdersRepo) FindByUserAndID(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*models.Order, error) {
	return r.order, nil
}

func (r *stubOrdersRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if r.order != nil {
		r.order.Status = status
	}
	return r.order, nil
}

func newOrderService(t *testing.T, publisher *stubOrderPublisher, repo *stubOrdersRepo) *ordersvc.Service {
	t.Helper()
	producer, err := ordersvc.NewProducer(publisher, "order.process", testLogger())
	if err != nil {
		t.Fatalf("producer: %v", err)
	}
	svc, err := ordersvc.NewService(repo, producer, testLogger())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

// submitVia routes the request through chi so URL params resolve.
func submitVia(handler http.HandlerFunc, userID uuid.UUID, authedAs uuid.UUID, role, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/orders/{userID}", handler)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+userID.String(), strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), authedAs.String())
	ctx = middleware.WithRole(ctx, role)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req.WithContext(ctx))
	return resp
}

func TestSubmitOrderAccepted(t *testing.T) {
	publisher := &stubOrderPublisher{}
	svc := newOrderService(t, publisher, &stubOrdersRepo{})
	userID := uuid.New()

	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":2}],"totalAmount":19.98}`
	resp := submitVia(SubmitOrder(svc, testLogger()), userID, userID, "user", body)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
	if publisher.queue != "order.process" {
		t.Fatalf("unexpected queue %q", publisher.queue)
	}
}

func TestSubmitOrderQueueUnavailable(t *testing.T) {
	publisher := &stubOrderPublisher{declined: true}
	svc := newOrderService(t, publisher, &stubOrdersRepo{})
	userID := uuid.New()

	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":1}],"totalAmount":5}`
	resp := submitVia(SubmitOrder(svc, testLogger()), userID, userID, "user", body)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestSubmitOrderRejectsEmptyItems(t *testing.T) {
	svc := newOrderService(t, &stubOrderPublisher{}, &stubOrdersRepo{})
	userID := uuid.New()

	resp := submitVia(SubmitOrder(svc, testLogger()), userID, userID, "user", `{"items":[],"totalAmount":0}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubmitOrderForbiddenForOtherUser(t *testing.T) {
	svc := newOrderService(t, &stubOrderPublisher{}, &stubOrdersRepo{})

	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":1}],"totalAmount":5}`
	resp := submitVia(SubmitOrder(svc, testLogger()), uuid.New(), uuid.New(), "user", body)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestSubmitOrderAdminMayActForAnyUser(t *testing.T) {
	publisher := &stubOrderPublisher{}
	svc := newOrderService(t, publisher, &stubOrdersRepo{})

	body := `{"items":[{"productId":"` + uuid.NewString() + `","quantity":1}],"totalAmount":5}`
	resp := submitVia(SubmitOrder(svc, testLogger()), uuid.New(), uuid.New(), "admin", body)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
}

func TestGetOrderReturnsEnvelope(t *testing.T) {
	userID := uuid.New()
	order := &models.Order{ID: uuid.New(), UserID: userID, Status: enums.OrderStatusConfirmed}
	svc := newOrderService(t, &stubOrderPublisher{}, &stubOrdersRepo{order: order})

	r := chi.NewRouter()
	r.Get("/orders/{userID}/{orderID}", GetOrder(svc, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/orders/"+userID.String()+"/"+order.ID.String(), nil)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, "user")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
}
