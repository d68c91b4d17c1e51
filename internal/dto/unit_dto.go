package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// UnitCreateRequest describes the payload for creating a unit.
type UnitCreateRequest struct {
	ClassID     uint   `json:"class_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
}

// UnitUpdateRequest describes a partial unit update.
type UnitUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
}

// UnitResponse is returned to API clients when viewing units.
type UnitResponse struct {
	ID          uint      `json:"id"`
	ClassID     uint      `json:"class_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUnitResponse converts a Unit model into a DTO.
func NewUnitResponse(model models.Unit) UnitResponse {
	return UnitResponse{
		ID:          model.ID,
		ClassID:     model.ClassID,
		Title:       model.Title,
		Description: model.Description,
		Order:       model.Order,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewUnitResponseSlice converts unit models into DTOs.
func NewUnitResponseSlice(units []models.Unit) []UnitResponse {
	responses := make([]UnitResponse, 0, len(units))
	for _, unit := range units {
		responses = append(responses, NewUnitResponse(unit))
	}

	return responses
}
