package orders

import (
	"context"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	FindByUserAndID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

// ProductGateway is the product service surface the fulfillment consumer
// depends on. Lookups return the authoritative price and stock; DeductStock
// performs the atomic deduct-if-sufficient write on the product side.
type ProductGateway interface {
	GetProduct(ctx context.Context, productID string) (*ProductInfo, error)
	DeductStock(ctx context.Context, productID string, quantity int) error
}

// queuePublisher is satisfied by *rabbitmq.Client.
type queuePublisher interface {
	Publish(ctx context.Context, queue string, message any, headers amqp.Table) bool
}

// OrderList is one page of a user's orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}
