package dto

// MissingSubmissionEntry describes one enrolled student with no qualifying
// submission for an assignment. DaysOverdue is nil when the assignment has
// no due date or the deadline has not passed.
type MissingSubmissionEntry struct {
	StudentID   uint    `json:"student_id"`
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	DaysOverdue *int    `json:"days_overdue"`
}

// MissingSubmissionsReport is the point-in-time anti-join of the roster
// against the submission ledger.
type MissingSubmissionsReport struct {
	AssignmentID uint                     `json:"assignment_id"`
	Missing      []MissingSubmissionEntry `json:"missing"`
}

// GradingSummary counts a teacher's latest qualifying submissions by status.
type GradingSummary struct {
	PendingGrades   int `json:"pending_grades"`
	CompletedGrades int `json:"completed_grades"`
}
