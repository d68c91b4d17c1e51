package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// UserCreateRequest provisions an account. Email is optional because
// student accounts may not have one.
type UserCreateRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName string  `json:"first_name" validate:"max=128"`
	LastName  string  `json:"last_name" validate:"max=128"`
	Role      string  `json:"role" validate:"required,oneof=teacher student admin"`
}

// UserResponse is returned to API clients when viewing accounts.
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a User model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:        model.ID,
		Username:  model.Username,
		Email:     model.Email,
		Name:      model.DisplayName(),
		Role:      model.Role,
		CreatedAt: model.CreatedAt,
	}
}
