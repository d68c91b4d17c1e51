package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// Errors surfaced by enrollment-code redemption.
var (
	ErrClassNotFound         = errors.New("class not found")
	ErrAlreadyEnrolled       = errors.New("already enrolled in class")
	ErrAlreadyPrimaryTeacher = errors.New("already the primary teacher of class")
	ErrAlreadyCoTeacher      = errors.New("already a co-teacher of class")
	ErrClassInactive         = errors.New("class is inactive")
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateEnrollmentCode draws a 6-character code from [A-Z0-9]. Uniqueness
// is not guaranteed by format alone; callers insert optimistically and
// regenerate on a duplicate-key conflict.
func GenerateEnrollmentCode() (string, error) {
	buf := make([]byte, models.EnrollmentCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf), nil
}

// EnrollmentService redeems enrollment codes and manages class rosters.
type EnrollmentService interface {
	RedeemForStudent(ctx context.Context, studentID uint, payload dto.RedeemCodeRequest) (dto.EnrollmentResponse, error)
	RedeemForTeacher(ctx context.Context, teacherID uint, payload dto.RedeemCodeRequest) (dto.CoTeacherResponse, error)
	Roster(ctx context.Context, classID uint) ([]dto.RosterEntry, error)
	Unenroll(ctx context.Context, studentID, classID uint) error
}

type enrollmentService struct {
	enrollments repository.EnrollmentRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(enrollmentRepo repository.EnrollmentRepository, classRepo repository.ClassRepository, validate *validator.Validate, logger zerolog.Logger) EnrollmentService {
	return &enrollmentService{
		enrollments: enrollmentRepo,
		classes:     classRepo,
		validator:   validate,
		logger:      logger.With().Str("component", "enrollment_service").Logger(),
		now:         time.Now,
	}
}

// RedeemForStudent exchanges a code for a seat in the class. The unique
// (student, class) index is authoritative: a concurrent duplicate redemption
// surfaces as ErrAlreadyEnrolled rather than a second row.
func (s *enrollmentService) RedeemForStudent(ctx context.Context, studentID uint, payload dto.RedeemCodeRequest) (dto.EnrollmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EnrollmentResponse{}, err
	}

	class, err := s.classes.GetByCode(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EnrollmentResponse{}, ErrClassNotFound
		}
		return dto.EnrollmentResponse{}, err
	}

	if !class.IsActive {
		return dto.EnrollmentResponse{}, ErrClassInactive
	}

	enrollment := models.Enrollment{
		StudentID:  studentID,
		ClassID:    class.ID,
		EnrolledAt: s.now(),
	}

	if err := s.enrollments.Create(ctx, &enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EnrollmentResponse{}, ErrAlreadyEnrolled
		}
		return dto.EnrollmentResponse{}, err
	}

	s.logger.Info().Uint("student_id", studentID).Uint("class_id", class.ID).Msg("student enrolled")

	return dto.NewEnrollmentResponse(enrollment), nil
}

// RedeemForTeacher exchanges a code for a co-teaching grant.
func (s *enrollmentService) RedeemForTeacher(ctx context.Context, teacherID uint, payload dto.RedeemCodeRequest) (dto.CoTeacherResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CoTeacherResponse{}, err
	}

	class, err := s.classes.GetByCode(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CoTeacherResponse{}, ErrClassNotFound
		}
		return dto.CoTeacherResponse{}, err
	}

	if class.TeacherID == teacherID {
		return dto.CoTeacherResponse{}, ErrAlreadyPrimaryTeacher
	}

	exists, err := s.classes.HasCoTeacher(ctx, class.ID, teacherID)
	if err != nil {
		return dto.CoTeacherResponse{}, err
	}
	if exists {
		return dto.CoTeacherResponse{}, ErrAlreadyCoTeacher
	}

	link := models.ClassTeacher{
		ClassID:   class.ID,
		TeacherID: teacherID,
	}

	if err := s.classes.AddCoTeacher(ctx, &link); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CoTeacherResponse{}, ErrAlreadyCoTeacher
		}
		return dto.CoTeacherResponse{}, err
	}

	s.logger.Info().Uint("teacher_id", teacherID).Uint("class_id", class.ID).Msg("co-teacher added")

	return dto.NewCoTeacherResponse(link), nil
}

func (s *enrollmentService) Roster(ctx context.Context, classID uint) ([]dto.RosterEntry, error) {
	if _, err := s.classes.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewRosterEntries(enrollments), nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, studentID, classID uint) error {
	if err := s.enrollments.Delete(ctx, studentID, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}

	return nil
}
