package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// RedeemCodeRequest redeems an enrollment code for a student seat or a
// co-teacher grant, depending on the caller's role.
type RedeemCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

// EnrollmentResponse is returned after a student joins a class.
type EnrollmentResponse struct {
	ID         uint      `json:"id"`
	StudentID  uint      `json:"student_id"`
	ClassID    uint      `json:"class_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// CoTeacherResponse is returned after a teacher joins a class they did not create.
type CoTeacherResponse struct {
	ID        uint      `json:"id"`
	ClassID   uint      `json:"class_id"`
	TeacherID uint      `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RosterEntry lists one enrolled student.
type RosterEntry struct {
	StudentID  uint      `json:"student_id"`
	Name       string    `json:"name"`
	Email      *string   `json:"email"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// NewEnrollmentResponse converts an Enrollment model into a DTO.
func NewEnrollmentResponse(model models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:         model.ID,
		StudentID:  model.StudentID,
		ClassID:    model.ClassID,
		EnrolledAt: model.EnrolledAt,
	}
}

// NewCoTeacherResponse converts a ClassTeacher link into a DTO.
func NewCoTeacherResponse(model models.ClassTeacher) CoTeacherResponse {
	return CoTeacherResponse{
		ID:        model.ID,
		ClassID:   model.ClassID,
		TeacherID: model.TeacherID,
		CreatedAt: model.CreatedAt,
	}
}

// NewRosterEntries converts enrollment rows (with preloaded students) into roster entries.
func NewRosterEntries(enrollments []models.Enrollment) []RosterEntry {
	entries := make([]RosterEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		entries = append(entries, RosterEntry{
			StudentID:  enrollment.StudentID,
			Name:       enrollment.Student.DisplayName(),
			Email:      enrollment.Student.Email,
			EnrolledAt: enrollment.EnrolledAt,
		})
	}

	return entries
}
