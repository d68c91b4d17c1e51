package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

// ClassRepository defines persistence operations for classes and co-teacher links.
type ClassRepository interface {
	Create(ctx context.Context, class *models.Class) error
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetByCode(ctx context.Context, code string) (models.Class, error)
	Update(ctx context.Context, class *models.Class) error
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error)
	AddCoTeacher(ctx context.Context, link *models.ClassTeacher) error
	HasCoTeacher(ctx context.Context, classID, teacherID uint) (bool, error)
	ListCoTeacherIDs(ctx context.Context, classID uint) ([]uint, error)
	TeachesClass(ctx context.Context, classID, teacherID uint) (bool, error)
	DeleteCascade(ctx context.Context, classID uint) error
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates a GORM-backed class repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Preload("Teacher").First(&class, id).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) GetByCode(ctx context.Context, code string) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Where("enrollment_code = ?", code).First(&class).Error; err != nil {
		return models.Class{}, err
	}

	return class, nil
}

func (r *classRepository) Update(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Save(class).Error
}

func (r *classRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Or("id IN (?)", r.db.Model(&models.ClassTeacher{}).Select("class_id").Where("teacher_id = ?", teacherID)).
		Order("created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, err
	}

	return classes, nil
}

func (r *classRepository) AddCoTeacher(ctx context.Context, link *models.ClassTeacher) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *classRepository) HasCoTeacher(ctx context.Context, classID, teacherID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ClassTeacher{}).
		Where("class_id = ?", classID).
		Where("teacher_id = ?", teacherID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *classRepository) ListCoTeacherIDs(ctx context.Context, classID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.ClassTeacher{}).
		Where("class_id = ?", classID).
		Pluck("teacher_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

// TeachesClass reports whether the teacher owns or co-teaches the class.
func (r *classRepository) TeachesClass(ctx context.Context, classID, teacherID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Class{}).
		Where("id = ? AND teacher_id = ?", classID, teacherID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	return r.HasCoTeacher(ctx, classID, teacherID)
}

// DeleteCascade removes a class and everything it owns inside a single
// transaction, leaf to root, so no partial deletion is ever visible.
func (r *classRepository) DeleteCascade(ctx context.Context, classID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentIDs := tx.Model(&models.Assignment{}).Select("id").Where("class_id = ?", classID)
		submissionIDs := tx.Model(&models.Submission{}).Select("id").Where("assignment_id IN (?)", assignmentIDs)

		if err := tx.Where("submission_id IN (?)", submissionIDs).Delete(&models.Grade{}).Error; err != nil {
			return err
		}

		if err := tx.Where("submission_id IN (?)", submissionIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("assignment_id IN (?)", assignmentIDs).Delete(&models.Submission{}).Error; err != nil {
			return err
		}

		if err := tx.Where("class_id = ?", classID).Delete(&models.Assignment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("class_id = ?", classID).Delete(&models.Unit{}).Error; err != nil {
			return err
		}

		if err := tx.Where("class_id = ?", classID).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("class_id = ?", classID).Delete(&models.ClassTeacher{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Class{}, classID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}
