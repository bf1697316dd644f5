package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

const cacheScope = "product"

// cacheStore is the slice of the redis client the service uses. A nil cache
// disables caching without disabling the service.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope, id string) string
}

// Service manages the product catalog.
type Service struct {
	repo     Repository
	cache    cacheStore
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService wires the product service. The cache may be nil.
func NewService(repo Repository, cache cacheStore, cacheTTL time.Duration, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL, logg: logg}, nil
}

// Create inserts a catalog product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return created, nil
}

// Get returns one product, read through the cache when available.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, s.cache.CacheKey(cacheScope, id.String())); err == nil {
			var cached models.Product
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching product")
	}

	s.fillCache(ctx, product)
	return product, nil
}

// List returns one page of the catalog, optionally filtered by category.
func (s *Service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return list, nil
}

// Update applies a partial update and invalidates the cache entry.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.Stock != nil {
		updates["stock"] = *input.Stock
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	product, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}

	s.dropCache(ctx, id)
	return product, nil
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	s.dropCache(ctx, id)
	return nil
}

// Deduct atomically removes quantity from stock when enough remains.
// Insufficient stock maps to a validation failure so callers see a 400.
func (s *Service) Deduct(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.repo.DeductStock(ctx, id, quantity)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deducting stock")
		}
	}

	s.dropCache(ctx, id)
	return product, nil
}

func (s *Service) fillCache(ctx context.Context, product *models.Product) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey(cacheScope, product.ID.String()), string(encoded), s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", product.ID.String()), "failed to cache product")
	}
}

func (s *Service) dropCache(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.CacheKey(cacheScope, id.String())); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", id.String()), "failed to drop product cache entry")
	}
}
