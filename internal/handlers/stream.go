package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"nexussync/internal/models"
	"nexussync/internal/services"
	"nexussync/internal/sources"
)

// StreamHandler accepts change-feed batches, one route per source
type StreamHandler struct {
	registry   *sources.Registry
	processors map[string]*services.StreamProcessor
}

// NewStreamHandler creates a new stream ingress handler
func NewStreamHandler(registry *sources.Registry, processors map[string]*services.StreamProcessor) *StreamHandler {
	return &StreamHandler{registry: registry, processors: processors}
}

// Ingest applies one batch of change events in order.
// POST /api/streams/:source/events, where :source is a source id or its table name.
//
// A batch that stops part way still answers 200; batchItemFailures names the event upstream
// must redeliver, together with every event after it.
func (h *StreamHandler) Ingest(c *fiber.Ctx) error {
	name := c.Params("source")
	t, ok := h.registry.Resolve(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown source: " + name})
	}
	processor, ok := h.processors[t.ID()]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no processor for source: " + t.ID()})
	}

	var batch models.StreamBatch
	if err := c.BodyParser(&batch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid batch body"})
	}

	result, err := processor.ProcessBatch(c.UserContext(), batch.Records)
	resp := models.StreamBatchResponse{
		Processed:         result.Processed,
		Skipped:           result.Skipped,
		Unrecoverable:     result.Unrecoverable,
		BatchItemFailures: []models.BatchItemFailure{},
	}

	if err != nil {
		var failure *services.BatchFailure
		if !errors.As(err, &failure) {
			log.Printf("❌ [STREAM] %s batch failed: %v", t.ID(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "batch failed"})
		}
		log.Printf("⚠️  [STREAM] %s batch stopped at event %d (%s): %v", t.ID(), failure.Index, failure.EventID, failure.Err)
		resp.BatchItemFailures = append(resp.BatchItemFailures, models.BatchItemFailure{ItemIdentifier: failure.EventID})
	}

	return c.JSON(resp)
}

// ListSources returns the registered sources
// GET /api/streams
func (h *StreamHandler) ListSources(c *fiber.Ctx) error {
	list := make([]fiber.Map, 0, h.registry.Count())
	for _, t := range h.registry.List() {
		list = append(list, fiber.Map{
			"id":            t.ID(),
			"table":         t.SourceName(),
			"source_type":   t.SourceType(),
			"record_type":   t.RecordType(),
			"delete_policy": t.DeletePolicy(),
		})
	}
	return c.JSON(fiber.Map{"sources": list})
}
