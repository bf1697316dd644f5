package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// FulfillmentHandler turns a queued OrderIntent into a persisted order. It is
// the only place that decides whether a failure is a permanent business
// rejection (settled here, no order) or a system fault (raised, so the retry
// wrapper republishes the delivery).
type FulfillmentHandler struct {
	products ProductGateway
	repo     Repository
	logg     *logger.Logger
}

// NewFulfillmentHandler builds the intake queue handler.
func NewFulfillmentHandler(products ProductGateway, repo Repository, logg *logger.Logger) (*FulfillmentHandler, error) {
	if products == nil {
		return nil, fmt.Errorf("product gateway required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &FulfillmentHandler{products: products, repo: repo, logg: logg}, nil
}

type verifiedItem struct {
	productID uuid.UUID
	quantity  int
	price     float64
}

// Handle processes one OrderIntent delivery. Steps run strictly in order:
// verify prices, deduct stock item by item, persist. The delivery is acked on
// both terminal outcomes (order created, or rejected for stock); every other
// failure is returned for the retry wrapper to deal with.
func (h *FulfillmentHandler) Handle(ctx context.Context, d amqp.Delivery) error {
	var intent OrderIntent
	if err := json.Unmarshal(d.Body, &intent); err != nil {
		return fmt.Errorf("decoding order intent: %w", err)
	}
	userID, err := uuid.Parse(intent.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", intent.UserID, err)
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"user_id":    intent.UserID,
		"item_count": len(intent.Items),
	})

	// Step 1: fetch every product and accumulate the total from authoritative
	// prices. The client-submitted totalAmount is ignored from here on. A
	// failed lookup, 404 included, stays on the retry path.
	verified := make([]verifiedItem, 0, len(intent.Items))
	total := decimal.Zero
	for _, item := range intent.Items {
		product, err := h.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("verifying product %s: %w", item.ProductID, err)
		}
		productID, err := uuid.Parse(product.ID)
		if err != nil {
			return fmt.Errorf("invalid product id %q: %w", product.ID, err)
		}
		total = total.Add(decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		verified = append(verified, verifiedItem{
			productID: productID,
			quantity:  item.Quantity,
			price:     product.Price,
		})
	}

	// Step 2: deduct stock sequentially, stopping at the first failure.
	// Deductions already applied are not rolled back when a later item fails.
	for _, item := range verified {
		if err := h.products.DeductStock(ctx, item.productID.String(), item.quantity); err != nil {
			if IsDeductionRejection(err) {
				h.logg.Warn(h.logg.WithField(logCtx, "product_id", item.productID.String()),
					fmt.Sprintf("order rejected: %v", err))
				if ackErr := d.Ack(false); ackErr != nil {
					h.logg.Error(logCtx, "failed to ack rejected intent", ackErr)
				}
				return nil
			}
			return fmt.Errorf("deducting stock for %s: %w", item.productID, err)
		}
	}

	// Step 3: persist the aggregate with the prices captured in step 1.
	order := &models.Order{
		UserID:      userID,
		TotalAmount: total.InexactFloat64(),
		Status:      enums.OrderStatusConfirmed,
	}
	for _, item := range verified {
		order.Items = append(order.Items, models.OrderLineItem{
			ProductID: item.productID,
			Quantity:  item.quantity,
			Price:     item.price,
		})
	}
	created, err := h.repo.Create(ctx, order)
	if err != nil {
		return fmt.Errorf("persisting order: %w", err)
	}

	if ackErr := d.Ack(false); ackErr != nil {
		h.logg.Error(logCtx, "failed to ack fulfilled intent", ackErr)
	}
	h.logg.Info(h.logg.WithFields(logCtx, map[string]any{
		"order_id":     created.ID.String(),
		"total_amount": created.TotalAmount,
	}), "order confirmed")
	return nil
}
