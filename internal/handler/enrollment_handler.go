package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/models"
	"github.com/klasse-app/klasse-api/internal/service"
	"github.com/klasse-app/klasse-api/internal/utils"
)

// EnrollmentHandler wires enrollment-code redemption and roster routes.
type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  zerolog.Logger
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service service.EnrollmentService, logger zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger.With().Str("component", "enrollment_handler").Logger(),
	}
}

// Register attaches enrollment endpoints to the router group.
func (h *EnrollmentHandler) Register(router fiber.Router) {
	router.Post("/redeem", h.redeem)
	router.Get("/classes/:id/roster", h.roster)
	router.Delete("/classes/:id/enrollment", h.unenroll)
}

// redeem exchanges an enrollment code for class membership. Students join
// the roster; teachers become co-teachers of the class.
func (h *EnrollmentHandler) redeem(c *fiber.Ctx) error {
	var payload dto.RedeemCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := activityActorFromContext(c)
	if actor.Role == models.RoleTeacher || actor.Role == models.RoleAdmin {
		grant, err := h.service.RedeemForTeacher(c.UserContext(), actor.ID, payload)
		if err != nil {
			return h.handleError(c, err)
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "joined class as co-teacher", grant)
	}

	enrollment, err := h.service.RedeemForStudent(c.UserContext(), actor.ID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "enrolled in class", enrollment)
}

func (h *EnrollmentHandler) roster(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.Roster(c.UserContext(), classID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *EnrollmentHandler) unenroll(c *fiber.Ctx) error {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Unenroll(c.UserContext(), userIDFromContext(c), classID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "unenrolled from class", fiber.Map{"class_id": classID})
}

func (h *EnrollmentHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "class not found")
	case errors.Is(err, service.ErrClassInactive):
		return utils.SendError(c, fiber.StatusConflict, "class is not accepting enrollments")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return utils.SendError(c, fiber.StatusConflict, "already enrolled in this class")
	case errors.Is(err, service.ErrAlreadyPrimaryTeacher):
		return utils.SendError(c, fiber.StatusConflict, "already the primary teacher of this class")
	case errors.Is(err, service.ErrAlreadyCoTeacher):
		return utils.SendError(c, fiber.StatusConflict, "already a co-teacher of this class")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
