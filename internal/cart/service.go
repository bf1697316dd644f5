package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db"
	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// AddItemInput carries a validated add-to-cart request.
type AddItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemInput carries a validated quantity change.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// Service manages the single active cart per user.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the cart service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// GetCart returns the user's cart, creating an empty one on first touch. The
// unique constraint on user_id resolves the create race; the loser refetches.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching cart")
	}

	created, err := s.repo.Create(ctx, &models.CartRecord{UserID: userID})
	if err != nil {
		if db.IsUniqueViolation(err) {
			cart, err = s.repo.FindByUser(ctx, userID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching cart after create race")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

// AddItem adds a product to the cart, bumping quantity if already present.
func (s *Service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.CartRecord, error) {
	productID, err := uuid.Parse(input.ProductID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product id %q", input.ProductID))
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: input.Quantity}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching cart item")
	}

	return s.reload(ctx, userID)
}

// UpdateItem replaces the quantity of a product already in the cart.
func (s *Service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, input UpdateItemInput) (*models.CartRecord, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	return s.reload(ctx, userID)
}

// RemoveItem deletes a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.reload(ctx, userID)
}

// Clear removes every item, typically after an order intent is accepted.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *Service) reload(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return cart, nil
}
