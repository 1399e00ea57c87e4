package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/response"
)

// ParseID reads a positive numeric route parameter
func ParseID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ServiceError maps a service error onto the response envelope. Unknown
// errors are logged and reported as 500 without their text.
func ServiceError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var dup *services.DuplicateDocumentError
	switch {
	case errors.As(err, &dup):
		return response.Conflict(c, "Document already uploaded", fiber.Map{"existing_id": dup.ExistingID})
	case errors.Is(err, services.ErrScheduleInputMissing):
		// Checked before not-found: a missing document is a missing schedule input here
		return response.Error(c, fiber.StatusBadRequest, err.Error(), "SCHEDULE_INPUT_MISSING")
	case errors.Is(err, services.ErrDocumentNotFound):
		return response.NotFound(c, "Document not found")
	case errors.Is(err, services.ErrLessonNotFound):
		return response.NotFound(c, "Lesson not found")
	case errors.Is(err, services.ErrEmptySchedule):
		return response.UnprocessableEntity(c, err.Error(), "EMPTY_SCHEDULE")
	case errors.Is(err, services.ErrScheduleRangeTooLong):
		return response.UnprocessableEntity(c, err.Error(), "SCHEDULE_RANGE_TOO_LONG")
	case errors.Is(err, services.ErrInvalidStatusTransition):
		return response.Error(c, fiber.StatusBadRequest, err.Error(), "INVALID_STATUS_TRANSITION")
	case errors.Is(err, services.ErrInvalidBackup):
		return response.Error(c, fiber.StatusBadRequest, err.Error(), "INVALID_BACKUP")
	case errors.Is(err, services.ErrTooManyPages):
		return response.UnprocessableEntity(c, err.Error(), "TOO_MANY_PAGES")
	case errors.Is(err, services.ErrEmptyDocument),
		errors.Is(err, services.ErrUnsupportedFileType):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUnreadableDocument):
		return response.UnprocessableEntity(c, err.Error(), "UNREADABLE_DOCUMENT")
	case errors.Is(err, services.ErrBlobNotFound):
		return response.Error(c, fiber.StatusGone, err.Error(), "BINARY_MISSING")
	}

	if log != nil {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return response.InternalServerError(c, "")
}
