package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// ErrCommentEmpty indicates the comment body was empty after sanitization.
var ErrCommentEmpty = errors.New("comment is empty")

// CommentService manages the append-only discussion attached to a submission.
type CommentService interface {
	Create(ctx context.Context, actor ActivityActor, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListBySubmission(ctx context.Context, submissionID uint, actor ActivityActor, limit, offset int) ([]dto.CommentResponse, error)
}

type commentService struct {
	comments    repository.CommentRepository
	submissions repository.SubmissionRepository
	classes     repository.ClassRepository
	validator   *validator.Validate
	notifier    NotificationSink
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewCommentService constructs a CommentService instance.
func NewCommentService(commentRepo repository.CommentRepository, submissionRepo repository.SubmissionRepository, classRepo repository.ClassRepository, validate *validator.Validate, notifier NotificationSink, logger zerolog.Logger) CommentService {
	return &commentService{
		comments:    commentRepo,
		submissions: submissionRepo,
		classes:     classRepo,
		validator:   validate,
		notifier:    notifier,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "comment_service").Logger(),
	}
}

// Create appends a comment and notifies the counterparty: a student's
// comment reaches the class teachers, a teacher's comment reaches the
// submission's student.
func (s *commentService) Create(ctx context.Context, actor ActivityActor, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, err
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, ErrCommentEmpty
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CommentResponse{}, ErrSubmissionNotFound
		}
		return dto.CommentResponse{}, err
	}

	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return dto.CommentResponse{}, ErrSubmissionNotOwn
	}

	comment := models.Comment{
		SubmissionID: submission.ID,
		AuthorID:     actor.ID,
		Content:      content,
	}

	if err := s.comments.Create(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}

	s.fanOut(ctx, submission, actor)

	return dto.NewCommentResponse(comment), nil
}

func (s *commentService) ListBySubmission(ctx context.Context, submissionID uint, actor ActivityActor, limit, offset int) ([]dto.CommentResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return nil, ErrSubmissionNotOwn
	}

	comments, err := s.comments.ListBySubmission(ctx, submissionID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewCommentResponseSlice(comments), nil
}

func (s *commentService) fanOut(ctx context.Context, submission models.Submission, actor ActivityActor) {
	if s.notifier == nil {
		return
	}

	message := fmt.Sprintf("New comment on submission for %s", submission.Assignment.Title)

	if actor.Role == models.RoleStudent {
		teacherIDs := []uint{submission.Assignment.Class.TeacherID}
		coTeacherIDs, err := s.classes.ListCoTeacherIDs(ctx, submission.Assignment.ClassID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("class_id", submission.Assignment.ClassID).Msg("failed to load co-teachers for fan-out")
		} else {
			teacherIDs = append(teacherIDs, coTeacherIDs...)
		}
		s.notifier.NotifyAll(ctx, teacherIDs, models.NotificationCommentReceived, message)
		return
	}

	s.notifier.Notify(ctx, submission.StudentID, models.NotificationCommentReceived, message)
}
