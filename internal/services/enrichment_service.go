package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexussync/internal/llm"
	"nexussync/internal/logging"
	"nexussync/internal/models"
	"nexussync/internal/prompts"
	"nexussync/internal/retry"
)

// EnrichmentConfig bounds the enrichment retry loop
type EnrichmentConfig struct {
	Enabled     bool
	MaxAttempts int
	// ParseBackoff is used after a malformed response
	ParseBackoff retry.BackoffFunc
	// BackendBackoff is used after a transient backend failure
	BackendBackoff retry.BackoffFunc
	// AttemptTimeout bounds a single backend call; 0 leaves it to the backend client
	AttemptTimeout time.Duration
}

// DefaultEnrichmentConfig is three attempts with 500ms linear backoff for malformed
// responses and 1s exponential backoff, capped at 8s, for backend failures.
func DefaultEnrichmentConfig() EnrichmentConfig {
	return EnrichmentConfig{
		Enabled:        true,
		MaxAttempts:    3,
		ParseBackoff:   retry.Linear(500 * time.Millisecond),
		BackendBackoff: retry.Exponential(time.Second, 8*time.Second),
		AttemptTimeout: 30 * time.Second,
	}
}

// InvalidResponseError reports a completion that is not a usable {summary, insight}
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return "invalid enrichment response: " + e.Reason
}

// EnrichmentError reports enrichment that gave up
type EnrichmentError struct {
	ErrorType models.ErrorType
	Err       error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%s: %v", e.ErrorType, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// EnrichmentService adds a generated summary and insight to records
type EnrichmentService struct {
	generator   llm.Generator
	prompts     *prompts.Store
	deadLetters *DeadLetterService
	cfg         EnrichmentConfig
	metrics     *Metrics
}

// NewEnrichmentService creates an enrichment service
func NewEnrichmentService(generator llm.Generator, promptStore *prompts.Store, deadLetters *DeadLetterService, cfg EnrichmentConfig) *EnrichmentService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ParseBackoff == nil {
		cfg.ParseBackoff = retry.Linear(500 * time.Millisecond)
	}
	if cfg.BackendBackoff == nil {
		cfg.BackendBackoff = retry.Exponential(time.Second, 8*time.Second)
	}
	if promptStore == nil {
		promptStore = prompts.NewStore()
	}
	return &EnrichmentService{
		generator:   generator,
		prompts:     promptStore,
		deadLetters: deadLetters,
		cfg:         cfg,
		metrics:     GetMetrics(),
	}
}

// needsEnrichment is the idempotence guard
func (s *EnrichmentService) needsEnrichment(record *models.CanonicalRecord) bool {
	return s.cfg.Enabled && s.generator != nil && !record.Deleted && !record.IsEnriched()
}

// Attempt runs the bounded retry loop without side effects. A record that already has
// a summary and insight is returned as is. On giving up it returns an *EnrichmentError;
// cancellation of ctx is returned unwrapped.
func (s *EnrichmentService) Attempt(ctx context.Context, record *models.CanonicalRecord) (*models.CanonicalRecord, error) {
	if !s.needsEnrichment(record) {
		return record, nil
	}

	prompt, err := s.prompts.Render(record)
	if err != nil {
		return nil, &EnrichmentError{ErrorType: models.ErrorTypeEnrichmentFailed, Err: err}
	}

	logger := logging.WithRecord(slog.Default(), record.PartitionKey, string(record.RecordType))

	var result enrichmentResult
	policy := retry.Policy{
		MaxAttempts: s.cfg.MaxAttempts,
		Backoff: func(attempt int, err error) time.Duration {
			if isInvalidResponse(err) {
				return s.cfg.ParseBackoff(attempt, err)
			}
			return s.cfg.BackendBackoff(attempt, err)
		},
		Retryable: func(err error) bool {
			return isInvalidResponse(err) || llm.IsTransient(err)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("enrichment attempt failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	}

	err = retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		callCtx := ctx
		if s.cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
			defer cancel()
		}

		out, err := s.generator.Generate(callCtx, prompt)
		if err != nil {
			s.metrics.RecordEnrichmentAttempt("backend_error")
			return err
		}
		r, err := parseEnrichment(out)
		if err != nil {
			s.metrics.RecordEnrichmentAttempt("invalid_response")
			return err
		}
		s.metrics.RecordEnrichmentAttempt("ok")
		result = r
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &EnrichmentError{ErrorType: classifyEnrichmentError(err), Err: err}
	}

	enriched := record.Clone()
	enriched.Summary = result.Summary
	enriched.Insight = result.Insight
	return enriched, nil
}

// Enrich is Attempt for the event path: on failure the record is dead-lettered and
// returned with fallback text so it is still written. Only cancellation of ctx is
// returned as an error.
func (s *EnrichmentService) Enrich(ctx context.Context, record *models.CanonicalRecord) (*models.CanonicalRecord, error) {
	if !s.needsEnrichment(record) {
		s.metrics.RecordEnrichment(string(record.RecordType), "skipped")
		return record, nil
	}

	start := time.Now()
	enriched, err := s.Attempt(ctx, record)
	s.metrics.RecordEnrichmentLatency(time.Since(start).Seconds())
	if err == nil {
		s.metrics.RecordEnrichment(string(record.RecordType), "enriched")
		return enriched, nil
	}

	var ee *EnrichmentError
	if !errors.As(err, &ee) {
		return nil, err
	}

	s.metrics.RecordEnrichment(string(record.RecordType), "failed")
	slog.Error("enrichment failed, writing fallback",
		"partition_key", record.PartitionKey,
		"error_type", ee.ErrorType,
		"error", ee.Err,
	)

	if s.deadLetters != nil {
		s.deadLetters.Send(ctx, record, ee.ErrorType, ee.Err.Error(), 0)
	}

	fallback := record.Clone()
	fallback.ApplyFallback()
	return fallback, nil
}

func classifyEnrichmentError(err error) models.ErrorType {
	switch {
	case isInvalidResponse(err):
		return models.ErrorTypeInvalidResponse
	case llm.IsTransient(err):
		return models.ErrorTypeUpstreamAPI
	default:
		return models.ErrorTypeEnrichmentFailed
	}
}

func isInvalidResponse(err error) bool {
	var ire *InvalidResponseError
	return errors.As(err, &ire)
}

type enrichmentResult struct {
	Summary string `json:"summary"`
	Insight string `json:"insight"`
}

// parseEnrichment extracts {summary, insight} from a completion, tolerating code fences
// and prose around the JSON object.
func parseEnrichment(text string) (enrichmentResult, error) {
	var r enrichmentResult

	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return r, &InvalidResponseError{Reason: "empty response"}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return r, &InvalidResponseError{Reason: "no JSON object in response"}
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return r, &InvalidResponseError{Reason: err.Error()}
	}

	r.Summary = strings.TrimSpace(r.Summary)
	r.Insight = strings.TrimSpace(r.Insight)
	if r.Summary == "" || r.Insight == "" {
		return r, &InvalidResponseError{Reason: "summary and insight are both required"}
	}
	return r, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line, which may carry a language tag
	if nl := strings.Index(text, "\n"); nl != -1 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
