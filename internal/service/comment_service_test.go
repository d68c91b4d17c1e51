package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
)

type fakeCommentRepo struct {
	comments    []models.Comment
	createCalls int
}

func (f *fakeCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	f.createCalls++
	comment.ID = uint(f.createCalls)
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListBySubmission(ctx context.Context, submissionID uint, limit, offset int) ([]models.Comment, error) {
	var comments []models.Comment
	for _, comment := range f.comments {
		if comment.SubmissionID == submissionID {
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func newCommentFixture() (*fakeCommentRepo, *fakeNotifier, CommentService) {
	comments := &fakeCommentRepo{}
	submissions := &fakeSubmissionRepo{rows: []models.Submission{
		{
			ID:           1,
			AssignmentID: 2,
			StudentID:    3,
			Status:       models.SubmissionStatusSubmitted,
			Assignment:   openAssignment(),
		},
	}}
	classes := &fakeClassRepo{classes: map[uint]models.Class{4: {ID: 4, TeacherID: 10, IsActive: true}}}
	notifier := &fakeNotifier{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewCommentService(comments, submissions, classes, validate, notifier, testLogger())

	return comments, notifier, svc
}

func TestCommentCreateStripsMarkup(t *testing.T) {
	comments, _, svc := newCommentFixture()

	comment, err := svc.Create(context.Background(), ActivityActor{ID: 3, Role: models.RoleStudent}, dto.CommentCreateRequest{
		SubmissionID: 1,
		Content:      "<b>looks</b> good<script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.Equal(t, "looks good", comment.Content)
	require.Equal(t, 1, comments.createCalls)
}

func TestCommentCreateRejectsMarkupOnly(t *testing.T) {
	comments, _, svc := newCommentFixture()

	_, err := svc.Create(context.Background(), ActivityActor{ID: 3, Role: models.RoleStudent}, dto.CommentCreateRequest{
		SubmissionID: 1,
		Content:      "<script>alert(1)</script>",
	})
	require.ErrorIs(t, err, ErrCommentEmpty)
	require.Equal(t, 0, comments.createCalls)
}

func TestCommentCreateStudentOwnSubmissionOnly(t *testing.T) {
	_, _, svc := newCommentFixture()

	_, err := svc.Create(context.Background(), ActivityActor{ID: 42, Role: models.RoleStudent}, dto.CommentCreateRequest{
		SubmissionID: 1,
		Content:      "sneaky",
	})
	require.ErrorIs(t, err, ErrSubmissionNotOwn)
}

func TestCommentFromStudentNotifiesTeachers(t *testing.T) {
	_, notifier, svc := newCommentFixture()

	_, err := svc.Create(context.Background(), ActivityActor{ID: 3, Role: models.RoleStudent}, dto.CommentCreateRequest{
		SubmissionID: 1,
		Content:      "question about part two",
	})
	require.NoError(t, err)
	require.Len(t, notifier.broadcast, 1)
	require.Contains(t, notifier.broadcast[0], uint(10))
	require.Equal(t, models.NotificationCommentReceived, notifier.types[0])
}

func TestCommentFromTeacherNotifiesStudent(t *testing.T) {
	_, notifier, svc := newCommentFixture()

	_, err := svc.Create(context.Background(), ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.CommentCreateRequest{
		SubmissionID: 1,
		Content:      "please expand the conclusion",
	})
	require.NoError(t, err)
	require.Equal(t, []uint{3}, notifier.notified)
	require.Empty(t, notifier.broadcast)
}

func TestCommentListStudentAccessControl(t *testing.T) {
	comments, _, svc := newCommentFixture()
	comments.comments = []models.Comment{
		{ID: 1, SubmissionID: 1, AuthorID: 10, Content: "nice work"},
	}

	_, err := svc.ListBySubmission(context.Background(), 1, ActivityActor{ID: 42, Role: models.RoleStudent}, 50, 0)
	require.ErrorIs(t, err, ErrSubmissionNotOwn)

	thread, err := svc.ListBySubmission(context.Background(), 1, ActivityActor{ID: 3, Role: models.RoleStudent}, 50, 0)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	require.Equal(t, "nice work", thread[0].Content)
}
