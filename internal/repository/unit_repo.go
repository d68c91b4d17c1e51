package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

// UnitRepository defines persistence operations for units.
type UnitRepository interface {
	Create(ctx context.Context, unit *models.Unit) error
	GetByID(ctx context.Context, id uint) (models.Unit, error)
	Update(ctx context.Context, unit *models.Unit) error
	ListByClass(ctx context.Context, classID uint) ([]models.Unit, error)
	Delete(ctx context.Context, id uint) error
}

type unitRepository struct {
	db *gorm.DB
}

// NewUnitRepository instantiates the repository.
func NewUnitRepository(db *gorm.DB) UnitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) Create(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *unitRepository) GetByID(ctx context.Context, id uint) (models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return models.Unit{}, err
	}

	return unit, nil
}

func (r *unitRepository) Update(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *unitRepository) ListByClass(ctx context.Context, classID uint) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("sort_order ASC, id ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}

	return units, nil
}

// Delete removes a unit and reassigns its assignments to "no unit".
// Assignments are never cascaded away with their unit.
func (r *unitRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Assignment{}).
			Where("unit_id = ?", id).
			Update("unit_id", nil).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Unit{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}
