package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/klasse-app/klasse-api/internal/models"
)

// GradeRepository stores at most one grade per submission.
type GradeRepository interface {
	// Upsert inserts the grade or, when the submission already has one,
	// overwrites score, feedback and rubric in place. Last write wins;
	// the unique index on submission_id rules out duplicates.
	Upsert(ctx context.Context, grade *models.Grade) error
	GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grader_id", "score", "max_score", "feedback", "rubric", "updated_at"}),
	}).Create(grade).Error
}

func (r *gradeRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}
