package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
)

type fakeGradeRepo struct {
	grade       models.Grade
	hasGrade    bool
	upsertCalls int
}

func (f *fakeGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	f.upsertCalls++
	grade.ID = 1
	f.grade = *grade
	f.hasGrade = true
	return nil
}

func (f *fakeGradeRepo) GetBySubmission(ctx context.Context, submissionID uint) (models.Grade, error) {
	if !f.hasGrade {
		return models.Grade{}, gorm.ErrRecordNotFound
	}
	return f.grade, nil
}

type fakeGradingSubmissionRepo struct {
	submission  models.Submission
	updateCalls int
}

func (f *fakeGradingSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	return nil
}

func (f *fakeGradingSubmissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	f.updateCalls++
	f.submission = *submission
	return nil
}

func (f *fakeGradingSubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	if f.submission.ID != id {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return f.submission, nil
}

func (f *fakeGradingSubmissionRepo) FindDraft(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	return models.Submission{}, gorm.ErrRecordNotFound
}

func (f *fakeGradingSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	return nil, nil
}

func (f *fakeGradingSubmissionRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.Submission, error) {
	return nil, nil
}

func (f *fakeGradingSubmissionRepo) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Submission, error) {
	return nil, nil
}

func submittedSubmission() models.Submission {
	return models.Submission{
		ID:           1,
		AssignmentID: 2,
		StudentID:    3,
		Status:       models.SubmissionStatusSubmitted,
		Assignment: models.Assignment{
			ID:       2,
			ClassID:  4,
			Title:    "Essay",
			MaxScore: 50,
		},
	}
}

func TestGradingServiceScoreExceedsMax(t *testing.T) {
	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submittedSubmission()}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	_, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{Score: 80})
	require.ErrorIs(t, err, ErrScoreExceedsMax)
	require.Equal(t, 0, grades.upsertCalls)
	require.Equal(t, 0, submissions.updateCalls)
}

func TestGradingServiceDraftNotGradable(t *testing.T) {
	submission := submittedSubmission()
	submission.Status = models.SubmissionStatusDraft

	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submission}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	_, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{Score: 40})
	require.ErrorIs(t, err, ErrSubmissionNotGradable)
	require.Equal(t, 0, grades.upsertCalls)
}

func TestGradingServicePermissionDenied(t *testing.T) {
	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submittedSubmission()}
	classes := &fakeClassRepo{teaches: map[uint]bool{}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	_, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 99, Role: models.RoleTeacher}, dto.GradeRequest{Score: 40})
	require.ErrorIs(t, err, ErrNotClassOwner)
	require.Equal(t, 0, grades.upsertCalls)
}

func TestGradingServiceTransitionsStatus(t *testing.T) {
	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submittedSubmission()}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	result, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{Score: 42, Feedback: "solid work"})
	require.NoError(t, err)
	require.Equal(t, 1, grades.upsertCalls)
	require.Equal(t, models.SubmissionStatusGraded, submissions.submission.Status)
	require.Equal(t, 42.0, result.Score)
	require.Equal(t, 50.0, result.MaxScore)
	require.Equal(t, uint(10), result.GraderID)
}

func TestGradingServiceIdempotent(t *testing.T) {
	submission := submittedSubmission()
	submission.Status = models.SubmissionStatusGraded
	submission.Grade = &models.Grade{
		ID:           7,
		SubmissionID: 1,
		GraderID:     10,
		Score:        42,
		MaxScore:     50,
		Feedback:     "solid work",
		Rubric:       datatypes.JSONMap{"clarity": 20.0, "accuracy": 22.0},
	}

	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submission}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	result, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{
		Score:    42,
		Feedback: "solid work",
		Rubric:   map[string]float64{"clarity": 20, "accuracy": 22},
	})
	require.NoError(t, err)
	require.Equal(t, 0, grades.upsertCalls)
	require.Equal(t, 0, submissions.updateCalls)
	require.Equal(t, 42.0, result.Score)
}

func TestGradingServiceRegradeRubricChangeWrites(t *testing.T) {
	submission := submittedSubmission()
	submission.Status = models.SubmissionStatusGraded
	submission.Grade = &models.Grade{
		ID:           7,
		SubmissionID: 1,
		GraderID:     10,
		Score:        42,
		MaxScore:     50,
		Feedback:     "solid work",
	}

	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submission}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	// Score and feedback are unchanged; only the rubric breakdown differs.
	result, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{
		Score:    42,
		Feedback: "solid work",
		Rubric:   map[string]float64{"clarity": 20, "accuracy": 22},
	})
	require.NoError(t, err)
	require.Equal(t, 1, grades.upsertCalls)
	require.Equal(t, 20.0, result.Rubric["clarity"])
	require.Equal(t, 22.0, result.Rubric["accuracy"])
}

func TestGradingServiceRegradeMaxScoreChangeWrites(t *testing.T) {
	submission := submittedSubmission()
	submission.Status = models.SubmissionStatusGraded
	submission.Grade = &models.Grade{
		ID:           7,
		SubmissionID: 1,
		GraderID:     10,
		Score:        42,
		MaxScore:     50,
		Feedback:     "solid work",
	}

	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submission}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	result, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{
		Score:    42,
		MaxScore: 60,
		Feedback: "solid work",
	})
	require.NoError(t, err)
	require.Equal(t, 1, grades.upsertCalls)
	require.Equal(t, 60.0, result.MaxScore)
}

func TestGradingServiceRegradeUpdatesInPlace(t *testing.T) {
	submission := submittedSubmission()
	submission.Status = models.SubmissionStatusGraded
	submission.Grade = &models.Grade{
		ID:           7,
		SubmissionID: 1,
		GraderID:     10,
		Score:        30,
		MaxScore:     50,
	}

	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{submission: submission}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	result, err := svc.Grade(context.Background(), 1, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{Score: 45, Feedback: "revised"})
	require.NoError(t, err)
	require.Equal(t, 1, grades.upsertCalls)
	require.Equal(t, 45.0, result.Score)
	// Status was already graded, so no extra submission write happens.
	require.Equal(t, 0, submissions.updateCalls)
}

func TestGradingServiceSubmissionNotFound(t *testing.T) {
	grades := &fakeGradeRepo{}
	submissions := &fakeGradingSubmissionRepo{}
	classes := &fakeClassRepo{teaches: map[uint]bool{10: true}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(grades, submissions, classes, validate, nil, nil, testLogger())

	_, err := svc.Grade(context.Background(), 404, ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.GradeRequest{Score: 10})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
