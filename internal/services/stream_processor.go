package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nexussync/internal/logging"
	"nexussync/internal/models"
	"nexussync/internal/sources"
	"nexussync/internal/store"
)

// BatchFailure identifies the event a batch stopped at. Upstream redelivers that event
// and every later one.
type BatchFailure struct {
	Index   int
	EventID string
	Err     error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("event %d (%s) failed: %v", e.Index, e.EventID, e.Err)
}

func (e *BatchFailure) Unwrap() error { return e.Err }

// BatchResult counts what a batch did
type BatchResult struct {
	Processed     int
	Skipped       int
	Unrecoverable int
}

type eventOutcome string

const (
	eventProcessed     eventOutcome = "processed"
	eventSkipped       eventOutcome = "skipped"
	eventUnrecoverable eventOutcome = "unrecoverable"
	eventFailed        eventOutcome = "failed"
)

// StreamProcessor applies one source's change events to the unified store
type StreamProcessor struct {
	transformer sources.Transformer
	builder     *RecordBuilder
	enrichment  *EnrichmentService
	gateway     *store.Gateway
	logger      *slog.Logger
	metrics     *Metrics
}

// NewStreamProcessor creates a processor for one source. enrichment may be nil.
func NewStreamProcessor(t sources.Transformer, builder *RecordBuilder, enrichment *EnrichmentService, gateway *store.Gateway) *StreamProcessor {
	return &StreamProcessor{
		transformer: t,
		builder:     builder,
		enrichment:  enrichment,
		gateway:     gateway,
		logger:      logging.WithSource(t.ID(), t.SourceName()),
		metrics:     GetMetrics(),
	}
}

// NewStreamProcessors builds one processor per registered source, keyed by source id
func NewStreamProcessors(registry *sources.Registry, builder *RecordBuilder, enrichment *EnrichmentService, gateway *store.Gateway) map[string]*StreamProcessor {
	processors := make(map[string]*StreamProcessor, registry.Count())
	for _, t := range registry.List() {
		processors[t.ID()] = NewStreamProcessor(t, builder, enrichment, gateway)
	}
	return processors
}

// Source returns the processor's transformer
func (p *StreamProcessor) Source() sources.Transformer {
	return p.transformer
}

// ProcessBatch handles events strictly in order. Skips and unresolvable deletes are
// counted and passed over; any other failure stops the batch with a *BatchFailure.
func (p *StreamProcessor) ProcessBatch(ctx context.Context, events []models.ChangeEvent) (BatchResult, error) {
	var result BatchResult
	start := time.Now()
	defer func() {
		p.metrics.RecordBatchDuration(p.transformer.ID(), time.Since(start).Seconds())
	}()

	for i, event := range events {
		if err := ctx.Err(); err != nil {
			return result, &BatchFailure{Index: i, EventID: event.EventID, Err: err}
		}

		outcome, err := p.processEvent(ctx, event)
		p.metrics.RecordStreamEvent(p.transformer.ID(), string(event.EventType), string(outcome))
		if err != nil {
			p.logger.Error("event failed, stopping batch",
				"event_id", event.EventID,
				"index", i,
				"event_type", event.EventType,
				"error", err,
			)
			return result, &BatchFailure{Index: i, EventID: event.EventID, Err: err}
		}

		switch outcome {
		case eventProcessed:
			result.Processed++
		case eventSkipped:
			result.Skipped++
		case eventUnrecoverable:
			result.Unrecoverable++
		}
	}

	p.logger.Info("batch processed",
		"events", len(events),
		"processed", result.Processed,
		"skipped", result.Skipped,
		"unrecoverable", result.Unrecoverable,
	)
	return result, nil
}

// processEvent handles a single change event
func (p *StreamProcessor) processEvent(ctx context.Context, event models.ChangeEvent) (eventOutcome, error) {
	logger := p.logger.With("event_id", event.EventID, "event_type", event.EventType)

	switch event.EventType {
	case models.EventRemove:
		return p.processRemove(ctx, logger, event)
	case models.EventInsert, models.EventModify:
		return p.processUpsert(ctx, logger, event)
	default:
		logger.Warn("skipping event with unknown type")
		return eventSkipped, nil
	}
}

func (p *StreamProcessor) processUpsert(ctx context.Context, logger *slog.Logger, event models.ChangeEvent) (eventOutcome, error) {
	if len(event.NewImage) == 0 {
		logger.Warn("skipping event without a new image")
		return eventSkipped, nil
	}

	record, err := p.builder.Build(p.transformer, event.NewImage, event.EventType)
	var skip *SkipError
	if errors.As(err, &skip) {
		logger.Info("skipping internal row", "reason", skip.Reason)
		return eventSkipped, nil
	}
	if err != nil {
		return eventFailed, err
	}

	if p.enrichment != nil {
		record, err = p.enrichment.Enrich(ctx, record)
		if err != nil {
			return eventFailed, err
		}
	}

	if err := p.gateway.Upsert(ctx, record); err != nil {
		return eventFailed, err
	}

	logger.Debug("record upserted", "partition_key", record.PartitionKey)
	return eventProcessed, nil
}

func (p *StreamProcessor) processRemove(ctx context.Context, logger *slog.Logger, event models.ChangeEvent) (eventOutcome, error) {
	res := p.builder.ResolveDeleteIdentity(p.transformer, event)
	switch res.Status {
	case sources.IdentitySkip:
		logger.Info("skipping deletion of internal row", "reason", res.Reason)
		return eventSkipped, nil
	case sources.IdentityError:
		logger.Error("deletion cannot be correlated to a record", "error", res.Err)
		return eventUnrecoverable, nil
	}

	pk, sk := DeleteKey(p.transformer, res.Identity)
	if err := p.gateway.Delete(ctx, p.transformer.DeletePolicy(), pk, sk); err != nil {
		return eventFailed, err
	}

	logger.Debug("record deleted", "partition_key", pk, "policy", p.transformer.DeletePolicy())
	return eventProcessed, nil
}
