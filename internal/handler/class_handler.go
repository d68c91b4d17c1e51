package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/service"
	"github.com/klasse-app/klasse-api/internal/utils"
)

// ClassHandler wires class lifecycle HTTP routes.
type ClassHandler struct {
	classes service.ClassService
	units   service.UnitService
	logger  zerolog.Logger
}

// NewClassHandler constructs the handler.
func NewClassHandler(classes service.ClassService, units service.UnitService, logger zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		classes: classes,
		units:   units,
		logger:  logger.With().Str("component", "class_handler").Logger(),
	}
}

// Register attaches class endpoints to the router group.
func (h *ClassHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/code", h.regenerateCode)
	router.Get("/:id/units", h.listUnits)
}

func (h *ClassHandler) list(c *fiber.Ctx) error {
	classes, err := h.classes.ListByTeacher(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "classes retrieved", classes)
}

func (h *ClassHandler) create(c *fiber.Ctx) error {
	var payload dto.ClassCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	class, err := h.classes.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "class created", class)
}

func (h *ClassHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	class, err := h.classes.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "class retrieved", class)
}

func (h *ClassHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ClassUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	class, err := h.classes.Update(c.UserContext(), id, activityActorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "class updated", class)
}

func (h *ClassHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.classes.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		if errors.Is(err, service.ErrDeletionFailed) {
			requestLogger(h.logger, c).Error().Err(err).Uint("class_id", id).Msg("class deletion failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "class deletion failed, nothing was removed")
		}
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "class deleted", fiber.Map{"id": id})
}

func (h *ClassHandler) regenerateCode(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	class, err := h.classes.RegenerateCode(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "enrollment code regenerated", class)
}

func (h *ClassHandler) listUnits(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	units, err := h.units.ListByClass(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "units retrieved", units)
}

func (h *ClassHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "class not found")
	case errors.Is(err, service.ErrNotClassOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not a teacher of this class")
	case errors.Is(err, service.ErrCodeExhausted):
		return utils.SendError(c, fiber.StatusConflict, "could not mint a unique enrollment code")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *ClassHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
