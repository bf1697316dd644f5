package payments

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
)

// CreatePaymentInput captures a charge request against an order. The real
// gateway lives outside this system, so charges settle immediately in mock mode.
type CreatePaymentInput struct {
	OrderID string  `json:"orderId" validate:"required,uuid4"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Charge records a succeeded payment for the order. No external gateway is
// called; the reference is generated locally so downstream reconciliation has
// a stable handle.
func (s *Service) Charge(ctx context.Context, userID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	orderID, err := uuid.Parse(input.OrderID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order id %q", input.OrderID))
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payment := &models.Payment{
		OrderID:   orderID,
		UserID:    userID,
		Amount:    input.Amount,
		Status:    enums.PaymentStatusSucceeded,
		Reference: fmt.Sprintf("mock-%s", uuid.NewString()),
	}
	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id": created.ID.String(),
		"order_id":   orderID.String(),
		"amount":     input.Amount,
	})
	s.logg.Info(ctx, "payment recorded")
	return created, nil
}

// Get returns a payment if it belongs to the requesting user.
func (s *Service) Get(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching payment")
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// ListByOrder returns payments recorded against an order, newest first.
func (s *Service) ListByOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error) {
	records, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	visible := make([]models.Payment, 0, len(records))
	for _, payment := range records {
		if payment.UserID == userID {
			visible = append(visible, payment)
		}
	}
	return visible, nil
}
