package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/pkg/enums"
)

type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	UserID    uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Amount    float64             `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status    enums.PaymentStatus `gorm:"column:status;type:text;not null" json:"status"`
	Reference string              `gorm:"column:reference;type:text;not null" json:"reference"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
