package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/pkg/enums"
)

// Notification records every delivery attempt made by the notification
// workers, successful or not, so support can audit what a user was sent.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:text;not null" json:"channel"`
	Recipient string                    `gorm:"column:recipient;type:text;not null" json:"recipient"`
	Subject   string                    `gorm:"column:subject;type:text" json:"subject"`
	Body      string                    `gorm:"column:body;type:text;not null" json:"body"`
	Status    enums.NotificationStatus  `gorm:"column:status;type:text;not null" json:"status"`
	Error     string                    `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
