package users

import "github.com/shopmesh/shopmesh-backend/pkg/db/models"

// RegisterInput carries a validated registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput carries a validated login request.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned after a successful register or login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
