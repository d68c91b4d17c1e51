package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// ReportService computes derived reporting views over the submission ledger.
type ReportService interface {
	MissingSubmissions(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.MissingSubmissionsReport, error)
	GradingSummary(ctx context.Context, teacherID uint) (dto.GradingSummary, error)
}

type reportService struct {
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	submissions repository.SubmissionRepository
	classes     repository.ClassRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewReportService builds the reporting aggregator.
func NewReportService(assignmentRepo repository.AssignmentRepository, enrollmentRepo repository.EnrollmentRepository, submissionRepo repository.SubmissionRepository, classRepo repository.ClassRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		assignments: assignmentRepo,
		enrollments: enrollmentRepo,
		submissions: submissionRepo,
		classes:     classRepo,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "report_service").Logger(),
		now:         time.Now,
	}
}

// MissingSubmissions anti-joins the class roster against qualifying ledger
// rows: every enrolled student without a submitted or graded attempt is
// missing. Drafts do not count. Results come back ordered by last name then
// first name because the roster query orders that way.
func (s *reportService) MissingSubmissions(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.MissingSubmissionsReport, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MissingSubmissionsReport{}, ErrAssignmentNotFound
		}
		return dto.MissingSubmissionsReport{}, err
	}

	if actor.Role != models.RoleAdmin {
		ok, err := s.classes.TeachesClass(ctx, assignment.ClassID, actor.ID)
		if err != nil {
			return dto.MissingSubmissionsReport{}, err
		}
		if !ok {
			return dto.MissingSubmissionsReport{}, ErrNotClassOwner
		}
	}

	cacheKey := fmt.Sprintf("report:missing:%d", assignmentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var report dto.MissingSubmissionsReport
			if unmarshalErr := json.Unmarshal([]byte(cached), &report); unmarshalErr == nil {
				s.logger.Debug().Uint("assignment_id", assignmentID).Msg("missing report cache hit")
				return report, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read missing report cache")
		}
	}

	enrollments, err := s.enrollments.ListByClass(ctx, assignment.ClassID)
	if err != nil {
		return dto.MissingSubmissionsReport{}, err
	}

	rows, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.MissingSubmissionsReport{}, err
	}

	submitted := make(map[uint]struct{}, len(rows))
	for _, row := range rows {
		submitted[row.StudentID] = struct{}{}
	}

	report := dto.MissingSubmissionsReport{
		AssignmentID: assignmentID,
		Missing:      make([]dto.MissingSubmissionEntry, 0),
	}

	overdue := daysOverdue(assignment.DueDate, s.now())
	for _, enrollment := range enrollments {
		if _, ok := submitted[enrollment.StudentID]; ok {
			continue
		}

		report.Missing = append(report.Missing, dto.MissingSubmissionEntry{
			StudentID:   enrollment.StudentID,
			Name:        enrollment.Student.DisplayName(),
			Email:       enrollment.Student.Email,
			DaysOverdue: overdue,
		})
	}

	if s.cache != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store missing report cache")
			}
		}
	}

	return report, nil
}

// GradingSummary counts the teacher's latest qualifying submissions
// partitioned by status. The counts are derived, never stored.
func (s *reportService) GradingSummary(ctx context.Context, teacherID uint) (dto.GradingSummary, error) {
	cacheKey := fmt.Sprintf("report:grading:%d", teacherID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var summary dto.GradingSummary
			if unmarshalErr := json.Unmarshal([]byte(cached), &summary); unmarshalErr == nil {
				return summary, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read grading summary cache")
		}
	}

	rows, err := s.submissions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return dto.GradingSummary{}, err
	}

	var summary dto.GradingSummary
	for _, row := range resolveLatestPair(rows) {
		switch row.Status {
		case models.SubmissionStatusGraded:
			summary.CompletedGrades++
		case models.SubmissionStatusSubmitted:
			summary.PendingGrades++
		}
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store grading summary cache")
			}
		}
	}

	return summary, nil
}

// daysOverdue returns full days elapsed since the due date, clamped at
// zero, or nil when the assignment has no due date.
func daysOverdue(dueDate *time.Time, now time.Time) *int {
	if dueDate == nil {
		return nil
	}

	elapsed := now.Sub(*dueDate)
	if elapsed < 0 {
		elapsed = 0
	}
	days := int(elapsed / (24 * time.Hour))

	return &days
}
