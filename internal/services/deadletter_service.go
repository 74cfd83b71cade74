package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"nexussync/internal/models"
	"nexussync/internal/queue"
)

// maxErrorMessageLength bounds the error text carried in a dead-letter message
const maxErrorMessageLength = 1000

// Message attribute names
const (
	AttrErrorType  = "error_type"
	AttrRecordType = "record_type"
	AttrRetryCount = "retry_count"
)

// DeadLetterService publishes records whose enrichment failed to the retry queue
type DeadLetterService struct {
	queue   queue.Queue
	now     func() time.Time
	metrics *Metrics
}

// NewDeadLetterService creates a dead-letter publisher
func NewDeadLetterService(q queue.Queue) *DeadLetterService {
	return &DeadLetterService{queue: q, now: time.Now, metrics: GetMetrics()}
}

// SetClock replaces the time source used for enqueued_at
func (s *DeadLetterService) SetClock(now func() time.Time) {
	s.now = now
}

// NewMessage builds the dead-letter message for a record. The record copy carries no
// enrichment fields.
func (s *DeadLetterService) NewMessage(record *models.CanonicalRecord, errorType models.ErrorType, message string, retryCount int) models.DeadLetterMessage {
	stripped := record.Clone()
	stripped.ClearEnrichment()
	return models.DeadLetterMessage{
		Record:       models.ToItem(stripped),
		ErrorType:    errorType,
		ErrorMessage: truncateMessage(message, maxErrorMessageLength),
		EnqueuedAt:   s.now().UTC(),
		RetryCount:   retryCount,
	}
}

// Send dead-letters a record. Failures are logged and swallowed so they never fail the
// event being processed.
func (s *DeadLetterService) Send(ctx context.Context, record *models.CanonicalRecord, errorType models.ErrorType, message string, retryCount int) {
	msg := s.NewMessage(record, errorType, message, retryCount)
	if err := s.Publish(ctx, msg); err != nil {
		slog.Error("failed to dead-letter record",
			"partition_key", record.PartitionKey,
			"error_type", errorType,
			"retry_count", retryCount,
			"error", err,
		)
	}
}

// Publish sends a prepared message and reports failure to the caller
func (s *DeadLetterService) Publish(ctx context.Context, msg models.DeadLetterMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		s.metrics.RecordDeadLetter(string(msg.ErrorType), "error")
		return fmt.Errorf("failed to encode dead-letter message: %w", err)
	}

	attrs := map[string]string{
		AttrErrorType:  string(msg.ErrorType),
		AttrRecordType: msg.Record.RecordType,
		AttrRetryCount: strconv.Itoa(msg.RetryCount),
	}
	if err := s.queue.Publish(ctx, body, attrs); err != nil {
		s.metrics.RecordDeadLetter(string(msg.ErrorType), "error")
		return fmt.Errorf("failed to publish dead-letter message: %w", err)
	}

	s.metrics.RecordDeadLetter(string(msg.ErrorType), "published")
	slog.Info("record dead-lettered",
		"partition_key", msg.Record.PartitionKey,
		"error_type", msg.ErrorType,
		"retry_count", msg.RetryCount,
	)
	return nil
}

// DecodeDeadLetter parses a queue message body
func DecodeDeadLetter(body []byte) (models.DeadLetterMessage, error) {
	var msg models.DeadLetterMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("failed to decode dead-letter message: %w", err)
	}
	if msg.Record.PartitionKey == "" {
		return msg, fmt.Errorf("dead-letter message has no record")
	}
	return msg, nil
}

// truncateMessage cuts s to at most n characters without splitting a rune
func truncateMessage(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
