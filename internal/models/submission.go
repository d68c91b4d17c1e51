package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission statuses. A draft is mutated in place; once a row leaves draft
// it is never edited again, a resubmission appends a fresh row instead.
const (
	SubmissionStatusDraft     = "draft"
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusGraded    = "graded"
)

// Submission is one attempt by a student at an assignment.
type Submission struct {
	ID           uint                         `gorm:"primaryKey" json:"id"`
	AssignmentID uint                         `gorm:"not null;index:idx_submission_key,priority:1" json:"assignment_id"`
	StudentID    uint                         `gorm:"not null;index:idx_submission_key,priority:2" json:"student_id"`
	Content      string                       `gorm:"type:text" json:"content"`
	Attachments  datatypes.JSONSlice[string]  `gorm:"type:json" json:"attachments"`
	Status       string                       `gorm:"size:32;not null;default:draft" json:"status"`
	SubmittedAt  *time.Time                   `gorm:"index:idx_submission_key,priority:3,sort:desc" json:"submitted_at"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
	Assignment   Assignment                   `gorm:"constraint:OnUpdate:CASCADE" json:"assignment"`
	Student      User                         `json:"student"`
	Grade        *Grade                       `json:"grade"`
}

// IsFinalized reports whether the row has left the mutable draft state.
func (s Submission) IsFinalized() bool {
	return s.Status != SubmissionStatusDraft
}

// Qualifies reports whether the row counts as "a submission exists" for
// grading and missing-work reporting. Drafts never qualify.
func (s Submission) Qualifies() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusGraded
}

// HasContent reports whether the attempt carries a written response or at
// least one attachment. Finalizing an empty attempt is rejected.
func (s Submission) HasContent() bool {
	return s.Content != "" || len(s.Attachments) > 0
}
