package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	ListByClass(ctx context.Context, classID uint) ([]models.Assignment, error)
	ListVisibleToStudent(ctx context.Context, studentID uint) ([]models.Assignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).Preload("Class").First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) ListByClass(ctx context.Context, classID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("due_date ASC NULLS LAST, id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

// ListVisibleToStudent applies the student visibility predicate at the query
// boundary: published, active assignments of active classes the student is
// enrolled in.
func (r *assignmentRepository) ListVisibleToStudent(ctx context.Context, studentID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Joins("JOIN classes ON classes.id = assignments.class_id").
		Joins("JOIN enrollments ON enrollments.class_id = classes.id").
		Where("enrollments.student_id = ?", studentID).
		Where("assignments.is_published = ?", true).
		Where("assignments.is_active = ?", true).
		Where("classes.is_active = ?", true).
		Preload("Class").
		Order("assignments.due_date ASC NULLS LAST, assignments.id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}
