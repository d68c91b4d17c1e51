package models

import "time"

// Enrollment registers a student in a class. One row per (student, class)
// pair, enforced by the composite unique index.
type Enrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_enrollment_pair" json:"student_id"`
	ClassID    uint      `gorm:"not null;uniqueIndex:idx_enrollment_pair" json:"class_id"`
	EnrolledAt time.Time `gorm:"not null" json:"enrolled_at"`
	Student    User      `json:"student"`
	Class      Class     `json:"class"`
}
