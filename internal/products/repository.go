package products

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

// ErrInsufficientStock is returned when a deduction would drive stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// ListFilters narrows product listings. Name matches as a case-insensitive
// substring; zero price bounds are not applied.
type ListFilters struct {
	Name     string
	Category string
	MinPrice float64
	MaxPrice float64
}

// ProductList is one page of catalog products.
type ProductList struct {
	Products   []models.Product
	NextCursor string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeductStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ProductList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if filters.Name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filters.Name)+"%")
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.MinPrice > 0 {
		query = query.Where("price >= ?", filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		query = query.Where("price <= ?", filters.MaxPrice)
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &ProductList{Products: rows}
	if len(rows) > limit {
		list.Products = rows[:limit]
		last := list.Products[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Product, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeductStock decrements stock only when enough remains. The conditional
// update is the sole concurrency control for the stock counter; concurrent
// deductions for the same product serialize at the database.
func (r *repository) DeductStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Product, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing product from one that is short on stock.
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}
	return r.FindByID(ctx, id)
}
