package models

import "time"

// Assignment content types.
const (
	AssignmentTypeText  = "text"
	AssignmentTypeGIS   = "gis"
	AssignmentTypeMixed = "mixed"
)

// Assignment is a piece of work published to a class, optionally within a unit.
type Assignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClassID     uint       `gorm:"not null;index" json:"class_id"`
	UnitID      *uint      `gorm:"index" json:"unit_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Type        string     `gorm:"size:32;not null;default:text" json:"type"`
	MaxScore    float64    `gorm:"not null;default:100" json:"max_score"`
	IsPublished bool       `gorm:"not null;default:false" json:"is_published"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Class       Class      `json:"class"`
}

// IsPastDue reports whether the deadline has passed at the reference time.
// Assignments without a due date are never past due.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// VisibleToStudent reports whether a student may see the assignment. Students
// only ever see published, active assignments inside an active class.
func (a Assignment) VisibleToStudent() bool {
	return a.IsActive && a.IsPublished && a.Class.IsActive
}
