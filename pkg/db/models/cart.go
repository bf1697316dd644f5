package models

import (
	"time"

	"github.com/google/uuid"
)

// CartRecord is the single active cart per user. Uniqueness on user_id is
// enforced in the schema so concurrent "get or create" calls cannot fork two
// carts for one user.
type CartRecord struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_carts_user" json:"userId"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// CartItem holds one product entry in a cart. Adding the same product again
// bumps Quantity on the existing row instead of inserting a second one.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_product" json:"-"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_product" json:"productId"`
	Quantity  int       `gorm:"column:quantity;not null" json:"quantity"`
}
