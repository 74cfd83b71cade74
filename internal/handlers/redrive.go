package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"nexussync/internal/models"
)

// Redriver runs one redrive invocation
type Redriver interface {
	Run(ctx context.Context) (models.RedriveResult, error)
}

// RedriveHandler exposes the manual redrive trigger
type RedriveHandler struct {
	redriver Redriver
}

// NewRedriveHandler creates a new redrive handler
func NewRedriveHandler(redriver Redriver) *RedriveHandler {
	return &RedriveHandler{redriver: redriver}
}

// Trigger drains one batch from the dead-letter queue
// POST /api/admin/redrive
func (h *RedriveHandler) Trigger(c *fiber.Ctx) error {
	result, err := h.redriver.Run(c.UserContext())
	if err != nil {
		log.Printf("❌ [REDRIVE] Manual redrive failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "redrive failed",
			"result": result,
		})
	}

	log.Printf("🔁 [REDRIVE] Manual redrive: processed=%d succeeded=%d failed=%d requeued=%d",
		result.Processed, result.Succeeded, result.Failed, result.Requeued)
	return c.JSON(result)
}
