package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
)

// Repository stores the delivery audit trail written by the workers.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) (*models.Notification, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	var records []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
