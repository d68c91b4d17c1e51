package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// SubmissionSaveRequest carries a draft save or a final submit. When Finalize
// is true the attempt must have a written response or at least one attachment.
type SubmissionSaveRequest struct {
	AssignmentID uint     `json:"assignment_id" validate:"required,gt=0"`
	Content      string   `json:"content"`
	Attachments  []string `json:"attachments" validate:"omitempty,dive,min=1"`
	Finalize     bool     `json:"finalize"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID           uint           `json:"id"`
	AssignmentID uint           `json:"assignment_id"`
	StudentID    uint           `json:"student_id"`
	Content      string         `json:"content"`
	Attachments  []string       `json:"attachments"`
	Status       string         `json:"status"`
	SubmittedAt  *time.Time     `json:"submitted_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Assignment   AssignmentLite `json:"assignment"`
	Student      StudentLite    `json:"student"`
	Grade        *GradeResponse `json:"grade,omitempty"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID      uint       `json:"id"`
	Title   string     `json:"title"`
	DueDate *time.Time `json:"due_date"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:           model.ID,
		AssignmentID: model.AssignmentID,
		StudentID:    model.StudentID,
		Content:      model.Content,
		Attachments:  model.Attachments,
		Status:       model.Status,
		SubmittedAt:  model.SubmittedAt,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = AssignmentLite{
			ID:      model.Assignment.ID,
			Title:   model.Assignment.Title,
			DueDate: model.Assignment.DueDate,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.DisplayName(),
			Email: model.Student.Email,
		}
	}

	if model.Grade != nil {
		grade := NewGradeResponse(*model.Grade)
		response.Grade = &grade
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
