package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// Errors surfaced by class workflows.
var (
	ErrCodeExhausted  = errors.New("could not mint a unique enrollment code")
	ErrDeletionFailed = errors.New("class deletion failed")
	ErrNotClassOwner  = errors.New("not a teacher of this class")
)

// maxCodeAttempts bounds the insert-retry loop for enrollment codes. The
// 36^6 code space makes repeated collisions a storage fault, not contention.
const maxCodeAttempts = 10

// ClassService manages class lifecycle, including code minting and the
// deletion cascade.
type ClassService interface {
	Create(ctx context.Context, teacherID uint, payload dto.ClassCreateRequest) (dto.ClassResponse, error)
	Get(ctx context.Context, id uint) (dto.ClassResponse, error)
	Update(ctx context.Context, id uint, actor ActivityActor, payload dto.ClassUpdateRequest) (dto.ClassResponse, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]dto.ClassResponse, error)
	RegenerateCode(ctx context.Context, id uint, actor ActivityActor) (dto.ClassResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type classService struct {
	classes   repository.ClassRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewClassService constructs a ClassService instance.
func NewClassService(classRepo repository.ClassRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ClassService {
	return &classService{
		classes:   classRepo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "class_service").Logger(),
	}
}

// Create mints an enrollment code and persists the class. The code pre-check
// is skipped entirely: the unique index is authoritative, and a duplicate-key
// conflict regenerates the code and retries the insert.
func (s *classService) Create(ctx context.Context, teacherID uint, payload dto.ClassCreateRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	class := models.Class{
		Title:       payload.Title,
		Description: payload.Description,
		TeacherID:   teacherID,
		Weeks:       payload.Weeks,
		GradeLevel:  payload.GradeLevel,
		Objectives:  payload.Objectives,
		IsActive:    true,
	}

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateEnrollmentCode()
		if err != nil {
			return dto.ClassResponse{}, err
		}
		class.EnrollmentCode = code

		lastErr = s.classes.Create(ctx, &class)
		if lastErr == nil {
			s.logger.Info().Uint("class_id", class.ID).Uint("teacher_id", teacherID).Msg("class created")
			return dto.NewClassResponse(class), nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return dto.ClassResponse{}, lastErr
		}
	}

	s.logger.Error().Err(lastErr).Msg("enrollment code retries exhausted")

	return dto.ClassResponse{}, ErrCodeExhausted
}

func (s *classService) Get(ctx context.Context, id uint) (dto.ClassResponse, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrClassNotFound
		}
		return dto.ClassResponse{}, err
	}

	return dto.NewClassResponse(class), nil
}

func (s *classService) Update(ctx context.Context, id uint, actor ActivityActor, payload dto.ClassUpdateRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrClassNotFound
		}
		return dto.ClassResponse{}, err
	}

	if err := s.requireTeacher(ctx, class, actor); err != nil {
		return dto.ClassResponse{}, err
	}

	if payload.Title != nil {
		class.Title = *payload.Title
	}
	if payload.Description != nil {
		class.Description = *payload.Description
	}
	if payload.IsActive != nil {
		class.IsActive = *payload.IsActive
	}

	if err := s.classes.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}

	return dto.NewClassResponse(class), nil
}

func (s *classService) ListByTeacher(ctx context.Context, teacherID uint) ([]dto.ClassResponse, error) {
	classes, err := s.classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	return dto.NewClassResponseSlice(classes), nil
}

// RegenerateCode replaces the enrollment code, invalidating the old one.
func (s *classService) RegenerateCode(ctx context.Context, id uint, actor ActivityActor) (dto.ClassResponse, error) {
	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrClassNotFound
		}
		return dto.ClassResponse{}, err
	}

	if err := s.requireTeacher(ctx, class, actor); err != nil {
		return dto.ClassResponse{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := GenerateEnrollmentCode()
		if err != nil {
			return dto.ClassResponse{}, err
		}
		class.EnrollmentCode = code

		lastErr = s.classes.Update(ctx, &class)
		if lastErr == nil {
			return dto.NewClassResponse(class), nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return dto.ClassResponse{}, lastErr
		}
	}

	return dto.ClassResponse{}, ErrCodeExhausted
}

// Delete removes the class and everything it owns. The cascade runs as one
// transaction; a failure mid-way leaves the class and its children untouched.
func (s *classService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	tracer := otel.Tracer("github.com/klasse-app/klasse-api/internal/service/class")
	ctx, span := tracer.Start(ctx, "class.delete_cascade")
	span.SetAttributes(attribute.Int64("class.id", int64(id)))
	defer span.End()

	class, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	if err := s.requireTeacher(ctx, class, actor); err != nil {
		span.SetStatus(codes.Error, "permission_denied")
		return err
	}

	if err := s.classes.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "cascade_failed")
		s.logger.Error().Err(err).Uint("class_id", id).Msg("class deletion cascade aborted")
		return ErrDeletionFailed
	}

	if s.activity != nil {
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "class.deleted",
			EntityType: "class",
			EntityID:   &id,
			Metadata:   map[string]interface{}{"title": class.Title},
		})
	}

	s.logger.Info().Uint("class_id", id).Msg("class deleted")

	return nil
}

func (s *classService) requireTeacher(ctx context.Context, class models.Class, actor ActivityActor) error {
	if actor.Role == models.RoleAdmin || class.TeacherID == actor.ID {
		return nil
	}

	ok, err := s.classes.HasCoTeacher(ctx, class.ID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotClassOwner
	}

	return nil
}
