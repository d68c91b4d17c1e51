package models

import "time"

// Notification event types emitted by the core write paths.
const (
	NotificationNewAssignment      = "new_assignment"
	NotificationSubmissionReceived = "submission_received"
	NotificationAssignmentGraded   = "assignment_graded"
	NotificationCommentReceived    = "comment_received"
)

// Notification is a per-user fan-out record. Only the read flag ever changes.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an append-only discussion entry attached to a submission.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	AuthorID     uint      `gorm:"not null;index" json:"author_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	Author       User      `json:"author"`
}
