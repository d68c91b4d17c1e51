package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
)

func newAssignmentFixture(classActive bool) (*fakeAssignmentRepo, *fakeEnrollmentRepo, *fakeNotifier, AssignmentService) {
	assignment := openAssignment()
	assignment.IsPublished = false
	assignment.Class.IsActive = classActive

	assignments := &fakeAssignmentRepo{assignments: map[uint]models.Assignment{2: assignment}}
	enrollments := &fakeEnrollmentRepo{roster: rosterOf(1, 2, 3)}
	classes := &fakeClassRepo{classes: map[uint]models.Class{4: {ID: 4, TeacherID: 10, IsActive: classActive}}}
	notifier := &fakeNotifier{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAssignmentService(assignments, classes, enrollments, validate, notifier, nil, testLogger())

	return assignments, enrollments, notifier, svc
}

func TestPublishFansOutToRoster(t *testing.T) {
	assignments, _, notifier, svc := newAssignmentFixture(true)

	result, err := svc.Publish(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher}, true)
	require.NoError(t, err)
	require.True(t, result.IsPublished)
	require.True(t, assignments.assignments[2].IsPublished)

	require.Len(t, notifier.broadcast, 1)
	require.Equal(t, []uint{1, 2, 3}, notifier.broadcast[0])
	require.Equal(t, models.NotificationNewAssignment, notifier.types[0])
}

func TestPublishBlockedWhileClassInactive(t *testing.T) {
	assignments, _, notifier, svc := newAssignmentFixture(false)

	_, err := svc.Publish(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher}, true)
	require.ErrorIs(t, err, ErrClassInactivePublish)
	require.False(t, assignments.assignments[2].IsPublished)
	require.Empty(t, notifier.broadcast)
}

func TestRepublishDoesNotFanOutAgain(t *testing.T) {
	assignments, _, notifier, svc := newAssignmentFixture(true)
	published := assignments.assignments[2]
	published.IsPublished = true
	assignments.assignments[2] = published

	_, err := svc.Publish(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher}, true)
	require.NoError(t, err)
	require.Empty(t, notifier.broadcast)
}

func TestUnpublishAllowedWhileClassInactive(t *testing.T) {
	assignments, _, _, svc := newAssignmentFixture(false)
	published := assignments.assignments[2]
	published.IsPublished = true
	assignments.assignments[2] = published

	result, err := svc.Publish(context.Background(), 2, ActivityActor{ID: 10, Role: models.RoleTeacher}, false)
	require.NoError(t, err)
	require.False(t, result.IsPublished)
}

func TestPublishDeniedForStranger(t *testing.T) {
	_, _, _, svc := newAssignmentFixture(true)

	_, err := svc.Publish(context.Background(), 2, ActivityActor{ID: 55, Role: models.RoleTeacher}, true)
	require.ErrorIs(t, err, ErrNotClassOwner)
}

func TestAssignmentCreateDefaults(t *testing.T) {
	assignments, _, _, svc := newAssignmentFixture(true)

	result, err := svc.Create(context.Background(), ActivityActor{ID: 10, Role: models.RoleTeacher}, dto.AssignmentCreateRequest{
		ClassID: 4,
		Title:   "Glacier retreat mapping",
	})
	require.NoError(t, err)
	require.Equal(t, models.AssignmentTypeText, result.Type)
	require.Equal(t, 100.0, result.MaxScore)
	require.False(t, result.IsPublished)
	require.True(t, result.IsActive)
	require.Equal(t, 0, assignments.updateCalls)
}
