package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

// EnrollmentRepository defines persistence operations for enrollments.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Exists(ctx context.Context, studentID, classID uint) (bool, error)
	ListByClass(ctx context.Context, classID uint) ([]models.Enrollment, error)
	Delete(ctx context.Context, studentID, classID uint) error
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

// Create inserts the enrollment row. A concurrent duplicate surfaces as
// gorm.ErrDuplicatedKey via the unique (student_id, class_id) index, which
// callers translate into an "already enrolled" conflict.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepository) Exists(ctx context.Context, studentID, classID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("student_id = ?", studentID).
		Where("class_id = ?", classID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListByClass returns the roster ordered by student last name, then first
// name, so reports stay deterministic.
func (r *enrollmentRepository) ListByClass(ctx context.Context, classID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Joins("JOIN users ON users.id = enrollments.student_id").
		Where("enrollments.class_id = ?", classID).
		Preload("Student").
		Order("users.last_name ASC, users.first_name ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}

	return enrollments, nil
}

func (r *enrollmentRepository) Delete(ctx context.Context, studentID, classID uint) error {
	result := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("class_id = ?", classID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
