package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nexussync/internal/models"
	"nexussync/internal/queue"
	"nexussync/internal/store"
)

// RedriveConfig bounds one redrive invocation
type RedriveConfig struct {
	BatchSize int
	MaxRetry  int
	// VisibilityTimeout hides received messages while they are being redriven
	VisibilityTimeout time.Duration
}

// DefaultRedriveConfig returns batches of 10 and a retry ceiling of 3
func DefaultRedriveConfig() RedriveConfig {
	return RedriveConfig{BatchSize: 10, MaxRetry: 3, VisibilityTimeout: 5 * time.Minute}
}

// RedriveService re-attempts enrichment for dead-lettered records
type RedriveService struct {
	queue       queue.Queue
	enrichment  *EnrichmentService
	gateway     *store.Gateway
	deadLetters *DeadLetterService
	cfg         RedriveConfig
	metrics     *Metrics
}

// NewRedriveService creates a redrive processor
func NewRedriveService(q queue.Queue, enrichment *EnrichmentService, gateway *store.Gateway, deadLetters *DeadLetterService, cfg RedriveConfig) *RedriveService {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	if cfg.MaxRetry < 1 {
		cfg.MaxRetry = 3
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 5 * time.Minute
	}
	return &RedriveService{
		queue:       q,
		enrichment:  enrichment,
		gateway:     gateway,
		deadLetters: deadLetters,
		cfg:         cfg,
		metrics:     GetMetrics(),
	}
}

type redriveOutcome int

const (
	outcomeSucceeded redriveOutcome = iota
	outcomeFailed
	outcomeRequeued
	// outcomeLeft leaves the message on the queue to reappear after its visibility timeout
	outcomeLeft
)

// Run processes one batch of dead-lettered messages. The counts are returned even when
// ctx is cancelled part way through.
func (s *RedriveService) Run(ctx context.Context) (models.RedriveResult, error) {
	var result models.RedriveResult
	logger := slog.With("redrive_run", uuid.New().String())

	messages, err := s.queue.Receive(ctx, s.cfg.BatchSize, s.cfg.VisibilityTimeout)
	if err != nil {
		return result, fmt.Errorf("failed to receive dead-letter messages: %w", err)
	}

	logger.Info("redrive started", "messages", len(messages))

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			logger.Warn("redrive interrupted", "error", err)
			return result, err
		}

		result.Processed++
		outcome, err := s.redriveOne(ctx, logger.With("message_id", msg.ID), msg)
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}

		switch outcome {
		case outcomeSucceeded:
			result.Succeeded++
		case outcomeFailed:
			result.Failed++
		case outcomeRequeued:
			result.Requeued++
		}
	}

	s.metrics.RecordRedrive("succeeded", result.Succeeded)
	s.metrics.RecordRedrive("failed", result.Failed)
	s.metrics.RecordRedrive("requeued", result.Requeued)

	logger.Info("redrive completed",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"requeued", result.Requeued,
	)
	return result, nil
}

func (s *RedriveService) redriveOne(ctx context.Context, logger *slog.Logger, msg queue.Message) (redriveOutcome, error) {
	dl, err := DecodeDeadLetter(msg.Body)
	if err != nil {
		// Redelivering an unreadable message can never succeed
		logger.Error("abandoning undecodable dead-letter message", "error", err)
		s.remove(ctx, logger, msg)
		return outcomeFailed, nil
	}

	logger = logger.With("partition_key", dl.Record.PartitionKey, "retry_count", dl.RetryCount)

	if dl.RetryCount >= s.cfg.MaxRetry {
		logger.Warn("abandoning record after reaching the retry ceiling", "error_type", dl.ErrorType)
		s.remove(ctx, logger, msg)
		return outcomeFailed, nil
	}

	queued, err := models.FromItem(dl.Record)
	if err != nil {
		logger.Error("abandoning dead-letter message with an invalid record", "error", err)
		s.remove(ctx, logger, msg)
		return outcomeFailed, nil
	}
	sortKey := queued.SortKey
	if sortKey == "" {
		sortKey = models.RecordSortKey
	}

	// Enrichment runs against the stored row, which later events may have changed
	record, err := s.gateway.Get(ctx, queued.PartitionKey, sortKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		logger.Info("record no longer exists, abandoning message")
		s.remove(ctx, logger, msg)
		return outcomeFailed, nil
	case err != nil:
		logger.Error("failed to read current record, leaving message", "error", err)
		return outcomeLeft, err
	case record.Deleted:
		logger.Info("record was deleted, abandoning message")
		s.remove(ctx, logger, msg)
		return outcomeFailed, nil
	case record.IsEnriched() && !record.HasFallbackEnrichment():
		logger.Info("record was enriched by a later event")
		s.remove(ctx, logger, msg)
		return outcomeSucceeded, nil
	}
	record.ClearEnrichment()

	enriched, err := s.enrichment.Attempt(ctx, record)
	if err == nil && !enriched.IsEnriched() {
		logger.Warn("enrichment is disabled, leaving message")
		return outcomeLeft, nil
	}
	if err == nil && !enriched.HasFallbackEnrichment() {
		err := s.gateway.ApplyEnrichment(ctx, enriched)
		if errors.Is(err, store.ErrStale) {
			logger.Info("record changed during redrive, leaving message", "reason", err)
			return outcomeLeft, nil
		}
		if err != nil {
			logger.Error("failed to write redriven enrichment, leaving message", "error", err)
			return outcomeLeft, err
		}
		s.remove(ctx, logger, msg)
		logger.Info("redriven record enriched")
		return outcomeSucceeded, nil
	}

	var ee *EnrichmentError
	if err != nil && !errors.As(err, &ee) {
		logger.Error("redrive attempt aborted, leaving message", "error", err)
		return outcomeLeft, err
	}

	errorType, errorMessage := models.ErrorTypeEnrichmentFailed, "enrichment returned fallback text"
	if ee != nil {
		errorType, errorMessage = ee.ErrorType, ee.Err.Error()
	}

	next := s.deadLetters.NewMessage(record, errorType, errorMessage, dl.RetryCount+1)
	if err := s.deadLetters.Publish(ctx, next); err != nil {
		logger.Error("failed to requeue record, leaving message", "error", err)
		return outcomeLeft, err
	}
	s.remove(ctx, logger, msg)
	logger.Info("record requeued", "next_retry_count", next.RetryCount, "error_type", errorType)
	return outcomeRequeued, nil
}

// remove deletes a handled message. A failed delete only means the message comes back
// and is handled again.
func (s *RedriveService) remove(ctx context.Context, logger *slog.Logger, msg queue.Message) {
	if err := s.queue.Delete(ctx, msg.Receipt); err != nil {
		logger.Warn("failed to delete dead-letter message", "error", err)
	}
}
