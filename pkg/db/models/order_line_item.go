package models

import (
	"github.com/google/uuid"
)

// OrderLineItem carries the price the product had at fulfillment time, not a
// reference to the live product row. Orders keep their historical totals even
// when the catalog price moves later.
type OrderLineItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"-"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
	Price     float64   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
}
