package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/klasse-app/klasse-api/internal/models"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func rosterOf(studentIDs ...uint) []models.Enrollment {
	enrollments := make([]models.Enrollment, 0, len(studentIDs))
	for _, id := range studentIDs {
		enrollments = append(enrollments, models.Enrollment{
			StudentID: id,
			ClassID:   4,
			Student:   models.User{ID: id, Username: "student", FirstName: "Student", Role: models.RoleStudent},
		})
	}
	return enrollments
}

func newReportFixture(t *testing.T, due *time.Time) (*fakeEnrollmentRepo, *fakeSubmissionRepo, *reportService) {
	t.Helper()

	assignment := openAssignment()
	assignment.DueDate = due

	assignments := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{2: assignment}}
	enrollments := &fakeEnrollmentRepo{}
	submissions := &fakeSubmissionRepo{}
	classes := &fakeClassRepo{classes: map[uint]models.Class{4: {ID: 4, TeacherID: 10, IsActive: true}}}

	svc := NewReportService(assignments, enrollments, submissions, classes, testRedis(t), time.Minute, testLogger()).(*reportService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }

	return enrollments, submissions, svc
}

func TestMissingSubmissionsAntiJoin(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	enrollments, submissions, svc := newReportFixture(t, &due)

	enrollments.roster = rosterOf(1, 2, 3, 4, 5)
	at := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	submissions.rows = []models.Submission{
		{ID: 1, AssignmentID: 2, StudentID: 2, Status: models.SubmissionStatusSubmitted, SubmittedAt: &at},
		{ID: 2, AssignmentID: 2, StudentID: 4, Status: models.SubmissionStatusGraded, SubmittedAt: &at},
	}

	report, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, uint(2), report.AssignmentID)
	require.Len(t, report.Missing, 3)

	var missingIDs []uint
	for _, entry := range report.Missing {
		missingIDs = append(missingIDs, entry.StudentID)
		require.NotNil(t, entry.DaysOverdue)
		require.Equal(t, 5, *entry.DaysOverdue)
	}
	require.Equal(t, []uint{1, 3, 5}, missingIDs)
}

func TestMissingSubmissionsDraftDoesNotCount(t *testing.T) {
	enrollments, submissions, svc := newReportFixture(t, nil)

	enrollments.roster = rosterOf(1)
	submissions.rows = []models.Submission{
		{ID: 1, AssignmentID: 2, StudentID: 1, Status: models.SubmissionStatusDraft},
	}

	report, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, report.Missing, 1)
	require.Nil(t, report.Missing[0].DaysOverdue)
}

func TestMissingSubmissionsFutureDueDate(t *testing.T) {
	due := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	enrollments, _, svc := newReportFixture(t, &due)
	enrollments.roster = rosterOf(1)

	report, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Len(t, report.Missing, 1)
	require.NotNil(t, report.Missing[0].DaysOverdue)
	require.Equal(t, 0, *report.Missing[0].DaysOverdue)
}

func TestMissingSubmissionsServedFromCache(t *testing.T) {
	enrollments, _, svc := newReportFixture(t, nil)
	enrollments.roster = rosterOf(1, 2)

	first, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 1, enrollments.listCalls)

	second, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.Equal(t, 1, enrollments.listCalls)
	require.Equal(t, first, second)
}

func TestMissingSubmissionsPermissionDenied(t *testing.T) {
	_, _, svc := newReportFixture(t, nil)

	_, err := svc.MissingSubmissions(context.Background(), 2, ActivityActor{ID: 55, Role: models.RoleTeacher})
	require.ErrorIs(t, err, ErrNotClassOwner)
}

func TestGradingSummaryCountsLatestPerPair(t *testing.T) {
	_, submissions, svc := newReportFixture(t, nil)

	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// Resolution order; the older graded attempt of (2,3) is superseded by
	// the newer ungraded one and must count as pending, not completed.
	submissions.rows = []models.Submission{
		{ID: 9, AssignmentID: 2, StudentID: 3, Status: models.SubmissionStatusSubmitted, SubmittedAt: &t2},
		{ID: 8, AssignmentID: 5, StudentID: 3, Status: models.SubmissionStatusGraded, SubmittedAt: &t2},
		{ID: 2, AssignmentID: 2, StudentID: 3, Status: models.SubmissionStatusGraded, SubmittedAt: &t1},
	}

	summary, err := svc.GradingSummary(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, summary.PendingGrades)
	require.Equal(t, 1, summary.CompletedGrades)
}

func TestGradingSummaryServedFromCache(t *testing.T) {
	_, submissions, svc := newReportFixture(t, nil)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	submissions.rows = []models.Submission{
		{ID: 1, AssignmentID: 2, StudentID: 3, Status: models.SubmissionStatusSubmitted, SubmittedAt: &at},
	}

	first, err := svc.GradingSummary(context.Background(), 10)
	require.NoError(t, err)

	submissions.rows = nil

	second, err := svc.GradingSummary(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, second.PendingGrades)
}
