package products

// CreateProductInput carries a validated create request.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	Category    string  `json:"category" validate:"max=100"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// UpdateProductInput carries a partial update; nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
}

// DeductStockInput is the body of the deduct endpoint.
type DeductStockInput struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}
