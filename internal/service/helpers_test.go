package service

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakeClassRepo is shared by the service tests. Behavior is driven by the
// seeded maps; createErrs is consumed one error per Create call.
type fakeClassRepo struct {
	classes      map[uint]models.Class
	teaches      map[uint]bool
	coTeachers   map[uint][]uint
	createErrs   []error
	createCalls  int
	updateCalls  int
	updateErrs   []error
	cascadeErr   error
	cascadeCalls int
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) error {
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if class.ID == 0 {
		class.ID = uint(f.createCalls)
	}
	return nil
}

func (f *fakeClassRepo) GetByID(ctx context.Context, id uint) (models.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return models.Class{}, gorm.ErrRecordNotFound
	}
	return class, nil
}

func (f *fakeClassRepo) GetByCode(ctx context.Context, code string) (models.Class, error) {
	for _, class := range f.classes {
		if class.EnrollmentCode == code {
			return class, nil
		}
	}
	return models.Class{}, gorm.ErrRecordNotFound
}

func (f *fakeClassRepo) Update(ctx context.Context, class *models.Class) error {
	f.updateCalls++
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.classes != nil {
		f.classes[class.ID] = *class
	}
	return nil
}

func (f *fakeClassRepo) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error) {
	var classes []models.Class
	for _, class := range f.classes {
		if class.TeacherID == teacherID {
			classes = append(classes, class)
		}
	}
	return classes, nil
}

func (f *fakeClassRepo) AddCoTeacher(ctx context.Context, link *models.ClassTeacher) error {
	if f.coTeachers == nil {
		f.coTeachers = make(map[uint][]uint)
	}
	f.coTeachers[link.ClassID] = append(f.coTeachers[link.ClassID], link.TeacherID)
	return nil
}

func (f *fakeClassRepo) HasCoTeacher(ctx context.Context, classID, teacherID uint) (bool, error) {
	for _, id := range f.coTeachers[classID] {
		if id == teacherID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClassRepo) ListCoTeacherIDs(ctx context.Context, classID uint) ([]uint, error) {
	return f.coTeachers[classID], nil
}

func (f *fakeClassRepo) TeachesClass(ctx context.Context, classID, teacherID uint) (bool, error) {
	if class, ok := f.classes[classID]; ok && class.TeacherID == teacherID {
		return true, nil
	}
	if f.teaches[teacherID] {
		return true, nil
	}
	return f.HasCoTeacher(ctx, classID, teacherID)
}

func (f *fakeClassRepo) DeleteCascade(ctx context.Context, classID uint) error {
	f.cascadeCalls++
	return f.cascadeErr
}

type fakeNotifier struct {
	notified  []uint
	broadcast [][]uint
	types     []string
	messages  []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uint, eventType, message string) {
	f.notified = append(f.notified, userID)
	f.types = append(f.types, eventType)
	f.messages = append(f.messages, message)
}

func (f *fakeNotifier) NotifyAll(ctx context.Context, userIDs []uint, eventType, message string) {
	f.broadcast = append(f.broadcast, userIDs)
	f.types = append(f.types, eventType)
	f.messages = append(f.messages, message)
}
