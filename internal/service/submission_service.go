package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/observability"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// Errors surfaced by the submission ledger.
var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrContentRequired      = errors.New("submission requires a written response or an attachment")
	ErrAssignmentNotVisible = errors.New("assignment is not open for submissions")
	ErrNotEnrolled          = errors.New("student is not enrolled in the class")
	ErrSubmissionNotOwn     = errors.New("submission belongs to another student")
)

// SubmissionService records attempts and resolves the current state per
// (assignment, student) key without losing history.
type SubmissionService interface {
	SaveOrSubmit(ctx context.Context, studentID uint, payload dto.SubmissionSaveRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error)
	LatestByAssignment(ctx context.Context, assignmentID uint, actor ActivityActor) ([]dto.SubmissionResponse, error)
	LatestByStudent(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error)
	LatestByTeacher(ctx context.Context, teacherID uint) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	notifier    NotificationSink
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(submissionRepo repository.SubmissionRepository, assignmentRepo repository.AssignmentRepository, enrollmentRepo repository.EnrollmentRepository, classRepo repository.ClassRepository, validate *validator.Validate, notifier NotificationSink, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: submissionRepo,
		assignments: assignmentRepo,
		enrollments: enrollmentRepo,
		classes:     classRepo,
		validator:   validate,
		notifier:    notifier,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

// SaveOrSubmit updates the student's draft in place, or finalizes the
// attempt. Finalizing always appends a fresh row so the full history of
// attempts survives resubmission after grading.
func (s *submissionService) SaveOrSubmit(ctx context.Context, studentID uint, payload dto.SubmissionSaveRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrAssignmentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if !assignment.VisibleToStudent() {
		return dto.SubmissionResponse{}, ErrAssignmentNotVisible
	}

	enrolled, err := s.enrollments.Exists(ctx, studentID, assignment.ClassID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !enrolled {
		return dto.SubmissionResponse{}, ErrNotEnrolled
	}

	if payload.Finalize {
		return s.submit(ctx, studentID, assignment, payload)
	}

	return s.upsertDraft(ctx, studentID, assignment, payload)
}

// upsertDraft mutates the single draft row for the key, creating it if
// absent. Last write wins between concurrent draft edits.
func (s *submissionService) upsertDraft(ctx context.Context, studentID uint, assignment models.Assignment, payload dto.SubmissionSaveRequest) (dto.SubmissionResponse, error) {
	draft, err := s.submissions.FindDraft(ctx, assignment.ID, studentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, err
		}

		draft = models.Submission{
			AssignmentID: assignment.ID,
			StudentID:    studentID,
			Content:      payload.Content,
			Attachments:  datatypes.NewJSONSlice(payload.Attachments),
			Status:       models.SubmissionStatusDraft,
		}
		if err := s.submissions.Create(ctx, &draft); err != nil {
			return dto.SubmissionResponse{}, err
		}

		return dto.NewSubmissionResponse(draft), nil
	}

	draft.Content = payload.Content
	draft.Attachments = datatypes.NewJSONSlice(payload.Attachments)
	if err := s.submissions.Update(ctx, &draft); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(draft), nil
}

// submit validates the content invariant before any write, then appends a
// new finalized row. Earlier rows, including graded ones, are never touched.
func (s *submissionService) submit(ctx context.Context, studentID uint, assignment models.Assignment, payload dto.SubmissionSaveRequest) (dto.SubmissionResponse, error) {
	if strings.TrimSpace(payload.Content) == "" && len(payload.Attachments) == 0 {
		return dto.SubmissionResponse{}, ErrContentRequired
	}

	submittedAt := s.now()
	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    studentID,
		Content:      payload.Content,
		Attachments:  datatypes.NewJSONSlice(payload.Attachments),
		Status:       models.SubmissionStatusSubmitted,
		SubmittedAt:  &submittedAt,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	observability.SubmissionsSubmitted().WithLabelValues(assignment.Type).Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Uint("student_id", studentID).
		Msg("submission finalized")

	s.fanOutSubmitted(ctx, assignment, studentID)

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.NewSubmissionResponse(submission), nil
	}

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Get(ctx context.Context, id uint, actor ActivityActor) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, ErrSubmissionNotOwn
	}

	return dto.NewSubmissionResponse(submission), nil
}

// LatestByAssignment resolves the authoritative attempt per student:
// the latest submitted_at among submitted/graded rows, ties broken by the
// most recently inserted row. Drafts never appear.
func (s *submissionService) LatestByAssignment(ctx context.Context, assignmentID uint, actor ActivityActor) ([]dto.SubmissionResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	if actor.Role != models.RoleAdmin {
		ok, err := s.classes.TeachesClass(ctx, assignment.ClassID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotClassOwner
		}
	}

	rows, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	latest := resolveLatest(rows, func(submission models.Submission) uint {
		return submission.StudentID
	})

	return dto.NewSubmissionResponseSlice(latest), nil
}

// LatestByStudent resolves the student's current row per assignment across
// all statuses, so an in-flight draft shows up in their own view.
func (s *submissionService) LatestByStudent(ctx context.Context, studentID uint) ([]dto.SubmissionResponse, error) {
	rows, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	latest := resolveLatest(rows, func(submission models.Submission) uint {
		return submission.AssignmentID
	})

	return dto.NewSubmissionResponseSlice(latest), nil
}

// LatestByTeacher resolves the authoritative attempt per (assignment,
// student) pair across every class the teacher owns or co-teaches.
func (s *submissionService) LatestByTeacher(ctx context.Context, teacherID uint) ([]dto.SubmissionResponse, error) {
	rows, err := s.submissions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	latest := resolveLatestPair(rows)

	return dto.NewSubmissionResponseSlice(latest), nil
}

func (s *submissionService) fanOutSubmitted(ctx context.Context, assignment models.Assignment, studentID uint) {
	if s.notifier == nil {
		return
	}

	teacherIDs := []uint{assignment.Class.TeacherID}
	coTeacherIDs, err := s.classes.ListCoTeacherIDs(ctx, assignment.ClassID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("class_id", assignment.ClassID).Msg("failed to load co-teachers for fan-out")
	} else {
		teacherIDs = append(teacherIDs, coTeacherIDs...)
	}

	message := fmt.Sprintf("New submission received for %s", assignment.Title)
	s.notifier.NotifyAll(ctx, teacherIDs, models.NotificationSubmissionReceived, message)
}

// resolveLatest picks the first row per key from rows already sorted in
// resolution order (the repositories order submitted_at DESC, id DESC).
func resolveLatest(rows []models.Submission, key func(models.Submission) uint) []models.Submission {
	seen := make(map[uint]struct{}, len(rows))
	latest := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		latest = append(latest, row)
	}

	return latest
}

type submissionKey struct {
	assignmentID uint
	studentID    uint
}

func resolveLatestPair(rows []models.Submission) []models.Submission {
	seen := make(map[submissionKey]struct{}, len(rows))
	latest := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		k := submissionKey{assignmentID: row.AssignmentID, studentID: row.StudentID}
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		latest = append(latest, row)
	}

	return latest
}
