package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/pkg/enums"
)

// User is an account that can authenticate and place orders.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Email        string         `gorm:"column:email;not null;uniqueIndex:ux_users_email" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'user'" json:"role"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
