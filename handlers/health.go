package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/utils/response"
)

// readinessTimeout bounds all dependency checks of one readiness request
const readinessTimeout = 10 * time.Second

// ReadinessCheck is an optional dependency the pipeline can run degraded without
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports process, database and dependency health
type HealthHandler struct {
	store  database.Storage
	checks []ReadinessCheck
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{store: store, checks: checks}
}

// Ping handles GET /ping
func (h *HealthHandler) Ping(c *fiber.Ctx) error {
	if err := h.store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unreachable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /ping/ready. Every configured dependency is checked and
// reported by name; any failure turns the answer into a 503.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	status := fiber.StatusOK
	results := fiber.Map{"database": "ok"}
	if err := h.store.HealthCheck(); err != nil {
		status = fiber.StatusServiceUnavailable
		results["database"] = err.Error()
	}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			status = fiber.StatusServiceUnavailable
			results[check.Name] = err.Error()
			continue
		}
		results[check.Name] = "ok"
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{"status": overall, "checks": results})
}
