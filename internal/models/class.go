package models

import "time"

// EnrollmentCodeLength is the fixed length of class enrollment codes.
const EnrollmentCodeLength = 6

// Class is a course taught by a primary teacher, joined by students through
// an enrollment code. The code is unique across all classes.
type Class struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	TeacherID      uint      `gorm:"not null;index" json:"teacher_id"`
	EnrollmentCode string    `gorm:"size:6;not null;uniqueIndex" json:"enrollment_code"`
	Weeks          int       `json:"weeks"`
	GradeLevel     string    `gorm:"size:64" json:"grade_level"`
	Objectives     string    `gorm:"type:text" json:"objectives"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Teacher        User      `json:"teacher"`
}

// ClassTeacher links a co-teacher to a class. One row per (class, teacher)
// pair, enforced by the composite unique index.
type ClassTeacher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_class_teacher" json:"class_id"`
	TeacherID uint      `gorm:"not null;uniqueIndex:idx_class_teacher" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	Teacher   User      `json:"teacher"`
}

// Unit groups assignments inside a class, ordered by its sort position.
type Unit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClassID     uint      `gorm:"not null;index" json:"class_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
