package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"nexussync/internal/jobs"
	"nexussync/internal/queue"
	"nexussync/internal/sources"
	"nexussync/internal/store"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	table     store.Table
	queue     queue.Queue
	registry  *sources.Registry
	scheduler *jobs.JobScheduler
}

// NewHealthHandler creates a new health handler. scheduler may be nil.
func NewHealthHandler(table store.Table, q queue.Queue, registry *sources.Registry, scheduler *jobs.JobScheduler) *HealthHandler {
	return &HealthHandler{table: table, queue: q, registry: registry, scheduler: scheduler}
}

// Handle responds with pipeline health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"store": "ok", "queue": "ok"}
	healthy := true

	if err := h.table.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}
	if err := h.queue.Ping(ctx); err != nil {
		checks["queue"] = err.Error()
		healthy = false
	}

	body := fiber.Map{
		"status":    "healthy",
		"checks":    checks,
		"sources":   h.registry.Count(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		body["jobs"] = h.scheduler.GetStatus()
	}

	if !healthy {
		body["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}
