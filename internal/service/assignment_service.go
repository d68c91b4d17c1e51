package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// Errors surfaced by assignment workflows.
var (
	ErrAssignmentNotFound   = errors.New("assignment not found")
	ErrClassInactivePublish = errors.New("cannot publish assignment in inactive class")
)

// AssignmentService manages assignment definitions and publish state.
type AssignmentService interface {
	Create(ctx context.Context, actor ActivityActor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, id uint, actor ActivityActor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Publish(ctx context.Context, id uint, actor ActivityActor, publish bool) (dto.AssignmentResponse, error)
	ListForClass(ctx context.Context, classID uint) ([]dto.AssignmentResponse, error)
	ListForStudent(ctx context.Context, studentID uint) ([]dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	classes     repository.ClassRepository
	enrollments repository.EnrollmentRepository
	validator   *validator.Validate
	notifier    NotificationSink
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(assignmentRepo repository.AssignmentRepository, classRepo repository.ClassRepository, enrollmentRepo repository.EnrollmentRepository, validate *validator.Validate, notifier NotificationSink, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignmentRepo,
		classes:     classRepo,
		enrollments: enrollmentRepo,
		validator:   validate,
		notifier:    notifier,
		activity:    activity,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) Create(ctx context.Context, actor ActivityActor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if err := s.requireTeacher(ctx, payload.ClassID, actor); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignmentType := payload.Type
	if assignmentType == "" {
		assignmentType = models.AssignmentTypeText
	}
	maxScore := payload.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}

	assignment := models.Assignment{
		ClassID:     payload.ClassID,
		UnitID:      payload.UnitID,
		Title:       payload.Title,
		Description: payload.Description,
		Type:        assignmentType,
		MaxScore:    maxScore,
		IsActive:    true,
		DueDate:     payload.DueDate,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("class_id", assignment.ClassID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, actor ActivityActor, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if err := s.requireTeacher(ctx, assignment.ClassID, actor); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.UnitID != nil {
		assignment.UnitID = payload.UnitID
	}
	if payload.Type != nil {
		assignment.Type = *payload.Type
	}
	if payload.MaxScore != nil {
		assignment.MaxScore = *payload.MaxScore
	}
	if payload.DueDate != nil {
		assignment.DueDate = payload.DueDate
	}
	if payload.IsActive != nil {
		assignment.IsActive = *payload.IsActive
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// Publish toggles the publish flag. Publishing is blocked while the owning
// class is inactive; unpublishing is always allowed. Newly published
// assignments fan out new_assignment notifications to the roster.
func (s *assignmentService) Publish(ctx context.Context, id uint, actor ActivityActor, publish bool) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if err := s.requireTeacher(ctx, assignment.ClassID, actor); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if publish && !assignment.Class.IsActive {
		return dto.AssignmentResponse{}, ErrClassInactivePublish
	}

	wasPublished := assignment.IsPublished
	assignment.IsPublished = publish

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	if publish && !wasPublished {
		s.fanOutNewAssignment(ctx, assignment)

		if s.activity != nil {
			_, _ = s.activity.Record(ctx, ActivityEntry{
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				Action:     "assignment.published",
				EntityType: "assignment",
				EntityID:   &assignment.ID,
				Metadata:   map[string]interface{}{"class_id": assignment.ClassID, "title": assignment.Title},
			})
		}
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListForClass(ctx context.Context, classID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) ListForStudent(ctx context.Context, studentID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListVisibleToStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) fanOutNewAssignment(ctx context.Context, assignment models.Assignment) {
	if s.notifier == nil {
		return
	}

	enrollments, err := s.enrollments.ListByClass(ctx, assignment.ClassID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("class_id", assignment.ClassID).Msg("failed to load roster for fan-out")
		return
	}

	studentIDs := make([]uint, 0, len(enrollments))
	for _, enrollment := range enrollments {
		studentIDs = append(studentIDs, enrollment.StudentID)
	}

	message := fmt.Sprintf("New assignment published: %s", assignment.Title)
	s.notifier.NotifyAll(ctx, studentIDs, models.NotificationNewAssignment, message)
}

func (s *assignmentService) requireTeacher(ctx context.Context, classID uint, actor ActivityActor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}

	ok, err := s.classes.TeachesClass(ctx, classID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotClassOwner
	}

	return nil
}
