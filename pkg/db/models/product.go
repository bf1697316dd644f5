package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the canonical catalog listing. Stock is the single contended
// counter; it is only ever decremented through a conditional update.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Category    string    `gorm:"column:category;not null;index" json:"category"`
	Price       float64   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock       int       `gorm:"column:stock;not null;default:0" json:"stock"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
