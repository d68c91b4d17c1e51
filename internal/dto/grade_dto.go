package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// GradeRequest carries a grading (or re-grading) action.
type GradeRequest struct {
	Score    float64            `json:"score" validate:"gte=0"`
	MaxScore float64            `json:"max_score" validate:"omitempty,gt=0"`
	Feedback string             `json:"feedback"`
	Rubric   map[string]float64 `json:"rubric" validate:"omitempty,dive,gte=0"`
}

// GradeResponse is returned to API clients when viewing grades.
type GradeResponse struct {
	ID           uint               `json:"id"`
	SubmissionID uint               `json:"submission_id"`
	GraderID     uint               `json:"grader_id"`
	Score        float64            `json:"score"`
	MaxScore     float64            `json:"max_score"`
	Feedback     string             `json:"feedback"`
	Rubric       map[string]float64 `json:"rubric"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewGradeResponse converts a Grade model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	response := GradeResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		GraderID:     model.GraderID,
		Score:        model.Score,
		MaxScore:     model.MaxScore,
		Feedback:     model.Feedback,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}

	if len(model.Rubric) > 0 {
		rubric := make(map[string]float64, len(model.Rubric))
		for criterion, value := range model.Rubric {
			if score, ok := value.(float64); ok {
				rubric[criterion] = score
			}
		}
		response.Rubric = rubric
	}

	return response
}
