package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/observability"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// Errors surfaced by grading.
var (
	ErrSubmissionNotGradable = errors.New("submission has not been submitted")
	ErrScoreExceedsMax       = errors.New("score exceeds assignment max")
	ErrGradeNotFound         = errors.New("grade not found")
)

// GradingService attaches at most one grade per submission and keeps
// re-grading idempotent.
type GradingService interface {
	Grade(ctx context.Context, submissionID uint, actor ActivityActor, payload dto.GradeRequest) (dto.GradeResponse, error)
	GetBySubmission(ctx context.Context, submissionID uint) (dto.GradeResponse, error)
}

type gradingService struct {
	grades      repository.GradeRepository
	submissions repository.SubmissionRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	notifier    NotificationSink
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs a GradingService instance.
func NewGradingService(gradeRepo repository.GradeRepository, submissionRepo repository.SubmissionRepository, classRepo repository.ClassRepository, validate *validator.Validate, notifier NotificationSink, activity ActivityRecorder, logger zerolog.Logger) GradingService {
	return &gradingService{
		grades:      gradeRepo,
		submissions: submissionRepo,
		classes:     classRepo,
		validator:   validate,
		notifier:    notifier,
		activity:    activity,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

// Grade evaluates a submission. A second call for the same submission
// updates the existing grade in place; the unique index on submission_id
// guarantees concurrent re-grades collapse to last-write-wins, never a
// duplicate row.
func (s *gradingService) Grade(ctx context.Context, submissionID uint, actor ActivityActor, payload dto.GradeRequest) (dto.GradeResponse, error) {
	tracer := otel.Tracer("github.com/klasse-app/klasse-api/internal/service/grading")
	ctx, span := tracer.Start(ctx, "grading.grade")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradeResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission_not_found")
			return dto.GradeResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	if !submission.IsFinalized() {
		span.SetStatus(codes.Error, "submission_not_gradable")
		return dto.GradeResponse{}, ErrSubmissionNotGradable
	}

	if actor.Role != models.RoleAdmin {
		ok, err := s.classes.TeachesClass(ctx, submission.Assignment.ClassID, actor.ID)
		if err != nil {
			span.RecordError(err)
			return dto.GradeResponse{}, err
		}
		if !ok {
			span.SetStatus(codes.Error, "permission_denied")
			return dto.GradeResponse{}, ErrNotClassOwner
		}
	}

	maxScore := payload.MaxScore
	if maxScore <= 0 {
		maxScore = submission.Assignment.MaxScore
	}
	if maxScore <= 0 {
		maxScore = 100
	}

	if payload.Score > maxScore+1e-9 {
		span.SetStatus(codes.Error, "score_exceeds_max")
		return dto.GradeResponse{}, ErrScoreExceedsMax
	}

	feedback := strings.TrimSpace(payload.Feedback)

	if submission.Grade != nil && sameGrade(*submission.Grade, payload.Score, maxScore, feedback, payload.Rubric) {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.NewGradeResponse(*submission.Grade), nil
	}

	grade := models.Grade{
		SubmissionID: submission.ID,
		GraderID:     actor.ID,
		Score:        payload.Score,
		MaxScore:     maxScore,
		Feedback:     feedback,
		Rubric:       rubricToJSON(payload.Rubric),
	}

	if err := s.grades.Upsert(ctx, &grade); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_upsert_failed")
		return dto.GradeResponse{}, err
	}

	if submission.Status != models.SubmissionStatusGraded {
		submission.Status = models.SubmissionStatusGraded
		if err := s.submissions.Update(ctx, &submission); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submission_update_failed")
			return dto.GradeResponse{}, err
		}
	}

	observability.GradesRecorded().Inc()
	span.SetAttributes(attribute.Float64("grading.score", payload.Score))

	if s.notifier != nil {
		message := fmt.Sprintf("Your submission for %s was graded: %.1f/%.1f", submission.Assignment.Title, payload.Score, maxScore)
		s.notifier.Notify(ctx, submission.StudentID, models.NotificationAssignmentGraded, message)
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"assignment_id": submission.AssignmentID,
				"student_id":    submission.StudentID,
				"score":         payload.Score,
			},
		})
	}

	stored, err := s.grades.GetBySubmission(ctx, submission.ID)
	if err != nil {
		return dto.NewGradeResponse(grade), nil
	}

	return dto.NewGradeResponse(stored), nil
}

func (s *gradingService) GetBySubmission(ctx context.Context, submissionID uint) (dto.GradeResponse, error) {
	grade, err := s.grades.GetBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, ErrGradeNotFound
		}
		return dto.GradeResponse{}, err
	}

	return dto.NewGradeResponse(grade), nil
}

// sameGrade reports whether a re-grade would write the exact grade already
// stored. Every graded field participates: a rubric-only or max-score-only
// change must still reach the upsert.
func sameGrade(existing models.Grade, score, maxScore float64, feedback string, rubric map[string]float64) bool {
	if math.Abs(existing.Score-score) >= 1e-6 || math.Abs(existing.MaxScore-maxScore) >= 1e-6 {
		return false
	}
	if strings.TrimSpace(existing.Feedback) != feedback {
		return false
	}

	return sameRubric(existing.Rubric, rubric)
}

func sameRubric(existing datatypes.JSONMap, incoming map[string]float64) bool {
	if len(existing) != len(incoming) {
		return false
	}
	for criterion, score := range incoming {
		stored, ok := existing[criterion].(float64)
		if !ok || math.Abs(stored-score) >= 1e-6 {
			return false
		}
	}

	return true
}

func rubricToJSON(rubric map[string]float64) datatypes.JSONMap {
	if len(rubric) == 0 {
		return nil
	}

	result := make(datatypes.JSONMap, len(rubric))
	for criterion, score := range rubric {
		result[criterion] = score
	}

	return result
}
