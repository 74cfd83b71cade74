package handlers

import (
	"github.com/gofiber/fiber/v2"

	"nexussync/internal/middleware"
)

// Handlers groups everything the HTTP surface serves
type Handlers struct {
	Stream  *StreamHandler
	Redrive *RedriveHandler
	Health  *HealthHandler
}

// Register mounts the pipeline routes on app
func Register(app *fiber.App, h Handlers, limits *middleware.RateLimitConfig) {
	app.Get("/health", h.Health.Handle)

	api := app.Group("/api")
	api.Get("/streams", h.Stream.ListSources)
	api.Post("/streams/:source/events", middleware.IngressRateLimiter(limits), h.Stream.Ingest)
	api.Post("/admin/redrive", middleware.RedriveRateLimiter(limits), h.Redrive.Trigger)
}
