package models

import "time"

// ErrorType classifies why enrichment could not complete
type ErrorType string

const (
	ErrorTypeUpstreamAPI      ErrorType = "UPSTREAM_API_ERROR"
	ErrorTypeInvalidResponse  ErrorType = "INVALID_RESPONSE"
	ErrorTypeEnrichmentFailed ErrorType = "ENRICHMENT_FAILED"
)

// DeadLetterMessage is the durable retry-queue payload for a record whose enrichment failed
type DeadLetterMessage struct {
	Record       RecordItem `json:"record"`
	ErrorType    ErrorType  `json:"error_type"`
	ErrorMessage string     `json:"error_message"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	RetryCount   int        `json:"retry_count"`
}

// RedriveResult is the aggregate outcome of one redrive invocation
type RedriveResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Requeued  int `json:"requeued"`
}
