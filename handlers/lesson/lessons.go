package lesson

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
	"github.com/sahilchouksey/lesson-planner/utils/auth"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/response"
	"github.com/sahilchouksey/lesson-planner/utils/validation"
)

// LessonHandler handles schedule, progress and calendar requests
type LessonHandler struct {
	lessonService *services.LessonService
	synchronizer  *services.ProgressSynchronizer
	selector      *services.ActiveLessonSelector
	feedTokens    *auth.FeedTokenManager
	publicBaseURL string
	validator     *validation.Validator
	log           *logger.Logger

	// Now is the clock used for calendar stamps; tests replace it
	Now func() time.Time
}

// LessonHandlerOptions carries the collaborators of a LessonHandler
type LessonHandlerOptions struct {
	LessonService *services.LessonService
	Synchronizer  *services.ProgressSynchronizer
	Selector      *services.ActiveLessonSelector
	FeedTokens    *auth.FeedTokenManager
	PublicBaseURL string
	Log           *logger.Logger
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(opts LessonHandlerOptions) *LessonHandler {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &LessonHandler{
		lessonService: opts.LessonService,
		synchronizer:  opts.Synchronizer,
		selector:      opts.Selector,
		feedTokens:    opts.FeedTokens,
		publicBaseURL: opts.PublicBaseURL,
		validator:     validation.NewValidator(),
		log:           log.With("component", "lesson_handler"),
		Now:           time.Now,
	}
}

// GenerateScheduleRequest is the body of POST /documents/:id/schedule
type GenerateScheduleRequest struct {
	StartDate string   `json:"start_date" validate:"omitempty,date"`
	EndDate   string   `json:"end_date" validate:"omitempty,date"`
	Weekdays  []int    `json:"weekdays" validate:"dive,gte=0,lte=6"` // 0 = Sunday
	Holidays  []string `json:"holidays" validate:"dive,date"`
}

// SyncProgressRequest is the body of POST /documents/:id/sync
type SyncProgressRequest struct {
	LessonID uint `json:"lesson_id" validate:"required"`
}

// UpdateStatusRequest is the body of PATCH /lessons/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=planned completed skipped"`
}

// toConfig converts a validated request into a schedule configuration.
// Missing dates stay zero and are rejected by the service.
func (r GenerateScheduleRequest) toConfig() schedule.Config {
	cfg := schedule.Config{Weekdays: schedule.ParseWeekdays(r.Weekdays)}
	if r.StartDate != "" {
		cfg.StartDate, _ = schedule.ParseDate(r.StartDate)
	}
	if r.EndDate != "" {
		cfg.EndDate, _ = schedule.ParseDate(r.EndDate)
	}
	for _, h := range r.Holidays {
		if day, err := schedule.ParseDate(h); err == nil {
			cfg.Holidays = append(cfg.Holidays, day)
		}
	}
	return cfg
}

// GenerateSchedule handles POST /api/v1/documents/:id/schedule
func (h *LessonHandler) GenerateSchedule(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	var req GenerateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	lessons, err := h.lessonService.RegenerateSchedule(c.UserContext(), id, req.toConfig())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Created(c, "Schedule generated", lessons)
}

// ListLessons handles GET /api/v1/documents/:id/lessons
func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	lessons, err := h.lessonService.ListLessons(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, lessons)
}

// SyncProgress handles POST /api/v1/documents/:id/sync
func (h *LessonHandler) SyncProgress(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	var req SyncProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	result, err := h.synchronizer.Sync(c.UserContext(), id, req.LessonID)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, result)
}

// GetActiveLesson handles GET /api/v1/documents/:id/active-lesson
func (h *LessonHandler) GetActiveLesson(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	active, err := h.selector.Select(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	if active == nil {
		return response.Success(c, fiber.Map{"kind": "none", "lesson": nil})
	}
	return response.Success(c, active)
}

// UpdateLessonStatus handles PATCH /api/v1/lessons/:id/status
func (h *LessonHandler) UpdateLessonStatus(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	lesson, err := h.lessonService.UpdateStatus(c.UserContext(), id, model.LessonStatus(req.Status))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, lesson)
}
