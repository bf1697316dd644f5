package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

// Service fronts order intake and reads for the HTTP layer.
type Service struct {
	repo     Repository
	producer *Producer
	logg     *logger.Logger
}

// NewService wires the orders service.
func NewService(repo Repository, producer *Producer, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if producer == nil {
		return nil, fmt.Errorf("order producer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, producer: producer, logg: logg}, nil
}

// SubmitIntent validates the requested lines and enqueues an OrderIntent.
// Fulfillment happens asynchronously; a nil return only means "accepted".
func (s *Service) SubmitIntent(ctx context.Context, userID uuid.UUID, items []OrderIntentItem, totalAmount float64) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for _, item := range items {
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product id %q", item.ProductID))
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	if totalAmount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "total amount cannot be negative")
	}

	return s.producer.Submit(ctx, userID, items, totalAmount)
}

// ListOrders returns one page of the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	list, err := s.repo.FindByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return list, nil
}

// GetOrder returns one of the user's orders by id.
func (s *Service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByUserAndID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching order")
	}
	return order, nil
}

// SetStatus replaces the order status. Transition legality is not checked;
// any valid status may replace any other.
func (s *Service) SetStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	order, err := s.repo.UpdateStatus(ctx, orderID, parsed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}
	return order, nil
}
