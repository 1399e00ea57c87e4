package lesson

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/utils/auth"
	"github.com/sahilchouksey/lesson-planner/utils/response"
)

const calendarContentType = "text/calendar; charset=utf-8"

// DownloadCalendar handles GET /api/v1/documents/:id/calendar.ics
func (h *LessonHandler) DownloadCalendar(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	ics, err := h.lessonService.ExportCalendar(c.UserContext(), id, h.Now())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, calendarContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="lessons-%d.ics"`, id))
	return c.Send(ics)
}

// CreateCalendarToken handles POST /api/v1/documents/:id/calendar-token and
// returns a subscription URL calendar apps can poll
func (h *LessonHandler) CreateCalendarToken(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	// Fail with 404 rather than sign a token for a missing document
	if _, err := h.lessonService.ListLessons(c.UserContext(), id); err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	token, err := h.feedTokens.Generate(id)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSecret) {
			return response.ServiceUnavailable(c, "Calendar feeds are not configured")
		}
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Created(c, "Calendar feed created", fiber.Map{
		"token": token,
		"url":   strings.TrimRight(h.publicBaseURL, "/") + "/api/v1/calendar/" + token,
	})
}

// CalendarFeed handles GET /api/v1/calendar/:token
func (h *LessonHandler) CalendarFeed(c *fiber.Ctx) error {
	token := strings.TrimSuffix(c.Params("token"), ".ics")

	id, err := h.feedTokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSecret) {
			return response.ServiceUnavailable(c, "Calendar feeds are not configured")
		}
		return response.Unauthorized(c, "Invalid calendar token")
	}

	ics, err := h.lessonService.ExportCalendar(c.UserContext(), id, h.Now())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, calendarContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	return c.Send(ics)
}
