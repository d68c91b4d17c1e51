package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/repository"
)

// ErrUnitNotFound indicates a unit could not be found.
var ErrUnitNotFound = errors.New("unit not found")

// UnitService manages ordered assignment groupings within a class.
type UnitService interface {
	Create(ctx context.Context, actor ActivityActor, payload dto.UnitCreateRequest) (dto.UnitResponse, error)
	Update(ctx context.Context, id uint, actor ActivityActor, payload dto.UnitUpdateRequest) (dto.UnitResponse, error)
	ListByClass(ctx context.Context, classID uint) ([]dto.UnitResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type unitService struct {
	units     repository.UnitRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUnitService constructs a UnitService instance.
func NewUnitService(unitRepo repository.UnitRepository, classRepo repository.ClassRepository, validate *validator.Validate, logger zerolog.Logger) UnitService {
	return &unitService{
		units:     unitRepo,
		classes:   classRepo,
		validator: validate,
		logger:    logger.With().Str("component", "unit_service").Logger(),
	}
}

func (s *unitService) Create(ctx context.Context, actor ActivityActor, payload dto.UnitCreateRequest) (dto.UnitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UnitResponse{}, err
	}

	if err := s.requireTeacher(ctx, payload.ClassID, actor); err != nil {
		return dto.UnitResponse{}, err
	}

	unit := models.Unit{
		ClassID:     payload.ClassID,
		Title:       payload.Title,
		Description: payload.Description,
		Order:       payload.Order,
	}

	if err := s.units.Create(ctx, &unit); err != nil {
		return dto.UnitResponse{}, err
	}

	return dto.NewUnitResponse(unit), nil
}

func (s *unitService) Update(ctx context.Context, id uint, actor ActivityActor, payload dto.UnitUpdateRequest) (dto.UnitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UnitResponse{}, err
	}

	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UnitResponse{}, ErrUnitNotFound
		}
		return dto.UnitResponse{}, err
	}

	if err := s.requireTeacher(ctx, unit.ClassID, actor); err != nil {
		return dto.UnitResponse{}, err
	}

	if payload.Title != nil {
		unit.Title = *payload.Title
	}
	if payload.Description != nil {
		unit.Description = *payload.Description
	}
	if payload.Order != nil {
		unit.Order = *payload.Order
	}

	if err := s.units.Update(ctx, &unit); err != nil {
		return dto.UnitResponse{}, err
	}

	return dto.NewUnitResponse(unit), nil
}

func (s *unitService) ListByClass(ctx context.Context, classID uint) ([]dto.UnitResponse, error) {
	units, err := s.units.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	return dto.NewUnitResponseSlice(units), nil
}

// Delete removes the unit; its assignments are reassigned to "no unit"
// inside the repository transaction, never deleted with it.
func (s *unitService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	unit, err := s.units.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		return err
	}

	if err := s.requireTeacher(ctx, unit.ClassID, actor); err != nil {
		return err
	}

	if err := s.units.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		return err
	}

	s.logger.Info().Uint("unit_id", id).Msg("unit deleted, assignments detached")

	return nil
}

func (s *unitService) requireTeacher(ctx context.Context, classID uint, actor ActivityActor) error {
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
