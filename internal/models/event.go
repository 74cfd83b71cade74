package models

import "time"

// Image is a source row as delivered by the change feed, keyed by source attribute name
type Image map[string]interface{}

// ChangeEvent is one entry of an upstream change-feed batch
type ChangeEvent struct {
	EventID              string     `json:"eventId"`
	EventType            EventType  `json:"eventType"`
	Keys                 Image      `json:"keys"`
	NewImage             Image      `json:"newImage,omitempty"`
	OldImage             Image      `json:"oldImage,omitempty"`
	ApproximateCreatedAt *time.Time `json:"approximateCreatedAt,omitempty"`
}

// StreamBatch is the request body accepted by the stream ingress
type StreamBatch struct {
	Records []ChangeEvent `json:"records"`
}

// BatchItemFailure identifies the first event upstream must redeliver
type BatchItemFailure struct {
	ItemIdentifier string `json:"itemIdentifier"`
}

// StreamBatchResponse reports the outcome of one ingress batch
type StreamBatchResponse struct {
	Processed         int                `json:"processed"`
	Skipped           int                `json:"skipped"`
	Unrecoverable     int                `json:"unrecoverable"`
	BatchItemFailures []BatchItemFailure `json:"batchItemFailures"`
}
