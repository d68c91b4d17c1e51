package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// ClassCreateRequest describes the payload for creating a class.
type ClassCreateRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description"`
	Weeks       int    `json:"weeks" validate:"omitempty,gt=0"`
	GradeLevel  string `json:"grade_level" validate:"omitempty,max=64"`
	Objectives  string `json:"objectives"`
}

// ClassUpdateRequest describes a partial class update.
type ClassUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// ClassResponse is returned to API clients when viewing classes.
type ClassResponse struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TeacherID      uint      `json:"teacher_id"`
	EnrollmentCode string    `json:"enrollment_code"`
	Weeks          int       `json:"weeks"`
	GradeLevel     string    `json:"grade_level"`
	Objectives     string    `json:"objectives"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewClassResponse converts a Class model into a DTO.
func NewClassResponse(model models.Class) ClassResponse {
	return ClassResponse{
		ID:             model.ID,
		Title:          model.Title,
		Description:    model.Description,
		TeacherID:      model.TeacherID,
		EnrollmentCode: model.EnrollmentCode,
		Weeks:          model.Weeks,
		GradeLevel:     model.GradeLevel,
		Objectives:     model.Objectives,
		IsActive:       model.IsActive,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewClassResponseSlice converts class models into DTOs.
func NewClassResponseSlice(classes []models.Class) []ClassResponse {
	responses := make([]ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, NewClassResponse(class))
	}

	return responses
}
