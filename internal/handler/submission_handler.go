package handler

import (
	"context"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/klasse-app/klasse-api/internal/dto"
	"github.com/klasse-app/klasse-api/internal/service"
	"github.com/klasse-app/klasse-api/internal/utils"
	"github.com/klasse-app/klasse-api/pkg/attachment"
)

// AttachmentStore abstracts where submission attachment bytes land.
type AttachmentStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmissionHandler wires submission ledger HTTP routes.
type SubmissionHandler struct {
	service     service.SubmissionService
	attachments AttachmentStore
	logger      zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, attachments AttachmentStore, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:     service,
		attachments: attachments,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches submission endpoints to the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.save)
	router.Post("/attachments", h.uploadAttachment)
	router.Get("/mine", h.listMine)
	router.Get("/queue", h.listQueue)
	router.Get("/assignment/:assignmentId", h.listByAssignment)
	router.Get("/:id", h.get)
}

// save stores a draft or finalizes a submission attempt, depending on the
// finalize flag in the payload.
func (h *SubmissionHandler) save(c *fiber.Ctx) error {
	var payload dto.SubmissionSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.SaveOrSubmit(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	status := fiber.StatusOK
	if payload.Finalize {
		status = fiber.StatusCreated
	}

	return utils.SendSuccessWithStatus(c, status, "submission saved", submission)
}

// uploadAttachment stores the file and returns an opaque reference the
// client includes in a later save.
func (h *SubmissionHandler) uploadAttachment(c *fiber.Ctx) error {
	if h.attachments == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "attachment storage not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	handle, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "unable to read file")
	}
	defer handle.Close()

	url, err := h.attachments.Upload(c.UserContext(), file.Filename, handle)
	if err != nil {
		switch {
		case errors.Is(err, attachment.ErrTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "attachment exceeds maximum allowed size")
		case errors.Is(err, attachment.ErrTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, "attachment type not allowed")
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attachment stored", fiber.Map{"url": url})
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

// listMine returns the calling student's latest attempt per assignment,
// drafts included.
func (h *SubmissionHandler) listMine(c *fiber.Ctx) error {
	submissions, err := h.service.LatestByStudent(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

// listQueue returns the latest finalized attempt per (assignment, student)
// across every class the calling teacher owns or co-teaches.
func (h *SubmissionHandler) listQueue(c *fiber.Ctx) error {
	submissions, err := h.service.LatestByTeacher(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) listByAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "assignmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.LatestByAssignment(c.UserContext(), assignmentID, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrContentRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "a written response or an attachment is required")
	case errors.Is(err, service.ErrAssignmentNotVisible):
		return utils.SendError(c, fiber.StatusForbidden, "assignment is not open for submissions")
	case errors.Is(err, service.ErrNotEnrolled):
		return utils.SendError(c, fiber.StatusForbidden, "not enrolled in this class")
	case errors.Is(err, service.ErrSubmissionNotOwn):
		return utils.SendError(c, fiber.StatusForbidden, "submission belongs to another student")
	case errors.Is(err, service.ErrNotClassOwner):
		return utils.SendError(c, fiber.StatusForbidden, "not a teacher of this class")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *SubmissionHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
