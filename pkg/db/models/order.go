package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/pkg/enums"
)

// Order is the persisted aggregate produced by the fulfillment consumer. An
// order row only exists once every stock deduction for its items succeeded.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Items       []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount float64           `gorm:"column:total_amount;type:numeric(12,2);not null" json:"totalAmount"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'Pending'" json:"status"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
