// Package queue is the dead-letter queue transport. Messages are at-least-once: a
// received message stays on the queue, invisible for the visibility timeout, until it is
// deleted by receipt.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownReceipt is returned when deleting a receipt the queue does not hold
var ErrUnknownReceipt = errors.New("unknown receipt")

// Message is a received queue message
type Message struct {
	ID         string
	Receipt    string
	Body       []byte
	Attributes map[string]string
	// ReceiveCount is how many times the message has been delivered, when the backend
	// tracks it.
	ReceiveCount int
}

// Queue is a visibility-timeout message queue
type Queue interface {
	Publish(ctx context.Context, body []byte, attrs map[string]string) error
	// Receive returns up to max messages and hides them for visibility.
	Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error)
	Delete(ctx context.Context, receipt string) error
	Ping(ctx context.Context) error
	Close() error
}
