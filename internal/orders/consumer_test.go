package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type deduction struct {
	productID string
	quantity  int
}

type stubGateway struct {
	products   map[string]*ProductInfo
	getErr     map[string]error
	deductErr  map[string]error
	deductions []deduction
}

func (s *stubGateway) GetProduct(_ context.Context, productID string) (*ProductInfo, error) {
	if err, ok := s.getErr[productID]; ok {
		return nil, err
	}
	product, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("fetching product %s: unexpected status 404", productID)
	}
	return product, nil
}

func (s *stubGateway) DeductStock(_ context.Context, productID string, quantity int) error {
	if err, ok := s.deductErr[productID]; ok {
		return err
	}
	s.deductions = append(s.deductions, deduction{productID: productID, quantity: quantity})
	if p, ok := s.products[productID]; ok {
		p.Stock -= quantity
	}
	return nil
}

type stubRepo struct {
	created   []*models.Order
	createErr error

	order     *models.Order
	findErr   error
	updateErr error
	updated   []enums.OrderStatus
}

func (s *stubRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	order.ID = uuid.New()
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubRepo) FindByUser(context.Context, uuid.UUID, pagination.Params) (*OrderList, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	list := &OrderList{}
	if s.order != nil {
		list.Orders = []models.Order{*s.order}
	}
	return list, nil
}

func (s *stubRepo) FindByUserAndID(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.order, nil
}

func (s *stubRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = append(s.updated, status)
	if s.order != nil {
		s.order.Status = status
	}
	return s.order, nil
}

type countingAck struct {
	acks int
}

func (c *countingAck) Ack(uint64, bool) error        { c.acks++; return nil }
func (c *countingAck) Nack(uint64, bool, bool) error { return nil }
func (c *countingAck) Reject(uint64, bool) error     { return nil }

func newHandler(t *testing.T, gw *stubGateway, repo *stubRepo) *FulfillmentHandler {
	t.Helper()
	h, err := NewFulfillmentHandler(gw, repo, testLogger())
	require.NoError(t, err)
	return h
}

func intentBody(t *testing.T, userID string, total float64, items ...OrderIntentItem) []byte {
	t.Helper()
	return []byte(fmt.Sprintf(`{"userId":%q,"items":%s,"totalAmount":%g,"timestamp":"2026-08-20T10:00:00Z"}`,
		userID, itemsJSON(items), total))
}

func itemsJSON(items []OrderIntentItem) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"productId":%q,"quantity":%d}`, item.ProductID, item.Quantity)
	}
	return out + "]"
}

func TestHandleConfirmsOrderWithAuthoritativeTotal(t *testing.T) {
	userID := uuid.New()
	p1 := uuid.NewString()
	gw := &stubGateway{products: map[string]*ProductInfo{
		p1: {ID: p1, Name: "tea kettle", Price: 6, Stock: 5},
	}}
	repo := &stubRepo{}
	ack := &countingAck{}

	// Client claims a stale total of 10; the catalog price makes it 12.
	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         intentBody(t, userID.String(), 10, OrderIntentItem{ProductID: p1, Quantity: 2}),
	})

	require.NoError(t, err)
	require.Equal(t, 1, ack.acks)
	require.Equal(t, 3, gw.products[p1].Stock)
	require.Len(t, repo.created, 1)
	order := repo.created[0]
	require.Equal(t, userID, order.UserID)
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)
	require.InDelta(t, 12.0, order.TotalAmount, 1e-9)
	require.Len(t, order.Items, 1)
	require.InDelta(t, 6.0, order.Items[0].Price, 1e-9)
	require.Equal(t, 2, order.Items[0].Quantity)
}

func TestHandleRejectsOnInsufficientStockWithoutRollback(t *testing.T) {
	userID := uuid.NewString()
	p1 := uuid.NewString()
	p2 := uuid.NewString()
	gw := &stubGateway{
		products: map[string]*ProductInfo{
			p1: {ID: p1, Price: 4, Stock: 10},
			p2: {ID: p2, Price: 9, Stock: 0},
		},
		deductErr: map[string]error{p2: fmt.Errorf("product %s: %w", p2, ErrInsufficientStock)},
	}
	repo := &stubRepo{}
	ack := &countingAck{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body: intentBody(t, userID, 17,
			OrderIntentItem{ProductID: p1, Quantity: 2},
			OrderIntentItem{ProductID: p2, Quantity: 1},
		),
	})

	// Business rejection: settled here, not retried.
	require.NoError(t, err)
	require.Equal(t, 1, ack.acks)
	require.Empty(t, repo.created, "no partial order may exist")
	require.Equal(t, []deduction{{productID: p1, quantity: 2}}, gw.deductions,
		"the earlier deduction stays applied")
	require.Equal(t, 8, gw.products[p1].Stock)
}

func TestHandleTreatsMissingProductLookupAsRetryable(t *testing.T) {
	userID := uuid.NewString()
	p1 := uuid.NewString()
	gw := &stubGateway{products: map[string]*ProductInfo{}}
	repo := &stubRepo{}
	ack := &countingAck{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         intentBody(t, userID, 5, OrderIntentItem{ProductID: p1, Quantity: 1}),
	})

	require.Error(t, err)
	require.Zero(t, ack.acks, "a raised error must leave settlement to the retry wrapper")
	require.Empty(t, gw.deductions, "verification failure stops before any deduction")
	require.Empty(t, repo.created)
}

func TestHandleRaisesOnPersistenceFailureAfterDeduction(t *testing.T) {
	userID := uuid.NewString()
	p1 := uuid.NewString()
	gw := &stubGateway{products: map[string]*ProductInfo{
		p1: {ID: p1, Price: 3, Stock: 4},
	}}
	repo := &stubRepo{createErr: errors.New("store unavailable")}
	ack := &countingAck{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         intentBody(t, userID, 3, OrderIntentItem{ProductID: p1, Quantity: 1}),
	})

	require.Error(t, err)
	require.Zero(t, ack.acks)
	// The deduction is not compensated; a retry will deduct again.
	require.Len(t, gw.deductions, 1)
}

func TestHandleRaisesOnMalformedBody(t *testing.T) {
	gw := &stubGateway{}
	repo := &stubRepo{}
	ack := &countingAck{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{not an intent`),
	})

	require.Error(t, err)
	require.Zero(t, ack.acks)
}

func TestHandleRaisesOnInvalidUserID(t *testing.T) {
	gw := &stubGateway{}
	repo := &stubRepo{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: &countingAck{},
		Body:         intentBody(t, "not-a-uuid", 5, OrderIntentItem{ProductID: uuid.NewString(), Quantity: 1}),
	})

	require.Error(t, err)
}

func TestHandleDeductsSequentiallyInItemOrder(t *testing.T) {
	userID := uuid.NewString()
	p1 := uuid.NewString()
	p2 := uuid.NewString()
	p3 := uuid.NewString()
	gw := &stubGateway{products: map[string]*ProductInfo{
		p1: {ID: p1, Price: 1, Stock: 9},
		p2: {ID: p2, Price: 2, Stock: 9},
		p3: {ID: p3, Price: 3, Stock: 9},
	}}
	repo := &stubRepo{}

	err := newHandler(t, gw, repo).Handle(context.Background(), amqp.Delivery{
		Acknowledger: &countingAck{},
		Body: intentBody(t, userID, 0,
			OrderIntentItem{ProductID: p1, Quantity: 1},
			OrderIntentItem{ProductID: p2, Quantity: 2},
			OrderIntentItem{ProductID: p3, Quantity: 3},
		),
	})

	require.NoError(t, err)
	require.Equal(t, []deduction{
		{productID: p1, quantity: 1},
		{productID: p2, quantity: 2},
		{productID: p3, quantity: 3},
	}, gw.deductions)
	require.InDelta(t, 14.0, repo.created[0].TotalAmount, 1e-9)
}
