package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	ClassID     uint       `json:"class_id" validate:"required,gt=0"`
	UnitID      *uint      `json:"unit_id" validate:"omitempty,gt=0"`
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description"`
	Type        string     `json:"type" validate:"omitempty,oneof=text gis mixed"`
	MaxScore    float64    `json:"max_score" validate:"omitempty,gt=0"`
	DueDate     *time.Time `json:"due_date"`
}

// AssignmentUpdateRequest describes a partial assignment update.
type AssignmentUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	UnitID      *uint      `json:"unit_id" validate:"omitempty,gt=0"`
	Type        *string    `json:"type" validate:"omitempty,oneof=text gis mixed"`
	MaxScore    *float64   `json:"max_score" validate:"omitempty,gt=0"`
	DueDate     *time.Time `json:"due_date"`
	IsActive    *bool      `json:"is_active"`
}

// AssignmentPublishRequest toggles publish state.
type AssignmentPublishRequest struct {
	Publish bool `json:"publish"`
}

// AssignmentResponse is returned to API clients when viewing assignments.
type AssignmentResponse struct {
	ID          uint       `json:"id"`
	ClassID     uint       `json:"class_id"`
	UnitID      *uint      `json:"unit_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	MaxScore    float64    `json:"max_score"`
	IsPublished bool       `json:"is_published"`
	IsActive    bool       `json:"is_active"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:          model.ID,
		ClassID:     model.ClassID,
		UnitID:      model.UnitID,
		Title:       model.Title,
		Description: model.Description,
		Type:        model.Type,
		MaxScore:    model.MaxScore,
		IsPublished: model.IsPublished,
		IsActive:    model.IsActive,
		DueDate:     model.DueDate,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
