package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

// SubmissionRepository records submission attempts and serves the ordered
// history the services resolve "latest per key" from. Finalized rows are
// append-only; only drafts are updated in place.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	FindDraft(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	// ListByAssignment returns qualifying (submitted/graded) rows for the
	// assignment ordered submitted_at DESC, id DESC, so the first row per
	// student is the authoritative attempt.
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	// ListByStudent returns the student's rows of any status, newest row
	// first, so drafts show up in their own view.
	ListByStudent(ctx context.Context, studentID uint) ([]models.Submission, error)
	// ListByTeacher returns qualifying rows for every assignment under a
	// class the teacher owns or co-teaches, in resolution order.
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student").
		Preload("Grade")
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Preload("Assignment.Class").
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) FindDraft(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Where("status = ?", models.SubmissionStatusDraft).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("status IN ?", []string{models.SubmissionStatusSubmitted, models.SubmissionStatusGraded}).
		Order("submitted_at DESC, id DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListByStudent orders by last write so a draft the student reopened after
// a finalized attempt still surfaces as their current work on the key.
func (r *submissionRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Order("updated_at DESC, id DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Submission, error) {
	classIDs := r.db.Model(&models.Class{}).Select("id").Where("teacher_id = ?", teacherID)
	coTaughtIDs := r.db.Model(&models.ClassTeacher{}).Select("class_id").Where("teacher_id = ?", teacherID)

	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Joins("JOIN assignments ON assignments.id = submissions.assignment_id").
		Where("assignments.class_id IN (?) OR assignments.class_id IN (?)", classIDs, coTaughtIDs).
		Where("submissions.status IN ?", []string{models.SubmissionStatusSubmitted, models.SubmissionStatusGraded}).
		Order("submissions.submitted_at DESC, submissions.id DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
