package models

import (
	"time"

	"gorm.io/datatypes"
)

// Grade is the single evaluation attached to a submission. The unique index
// on SubmissionID makes concurrent re-grading an update, never a duplicate.
type Grade struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;uniqueIndex" json:"submission_id"`
	GraderID     uint              `gorm:"not null" json:"grader_id"`
	Score        float64           `gorm:"not null" json:"score"`
	MaxScore     float64           `gorm:"not null;default:100" json:"max_score"`
	Feedback     string            `gorm:"type:text" json:"feedback"`
	Rubric       datatypes.JSONMap `gorm:"type:json" json:"rubric"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
