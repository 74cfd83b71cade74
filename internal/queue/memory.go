package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	id           string
	body         []byte
	attrs        map[string]string
	receipt      string
	visibleAt    time.Time
	receiveCount int
}

// MemoryQueue is an in-process queue used for local runs and tests
type MemoryQueue struct {
	mu      sync.Mutex
	entries []*memoryEntry
	now     func() time.Time
}

// NewMemoryQueue creates an empty in-process queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{now: time.Now}
}

// SetClock replaces the queue's time source
func (q *MemoryQueue) SetClock(now func() time.Time) {
	q.mu.Lock()
	q.now = now
	q.mu.Unlock()
}

func (q *MemoryQueue) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, &memoryEntry{
		id:    uuid.New().String(),
		body:  append([]byte(nil), body...),
		attrs: copied,
	})
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var out []Message
	for _, e := range q.entries {
		if len(out) >= max {
			break
		}
		if now.Before(e.visibleAt) {
			continue
		}
		e.receipt = uuid.New().String()
		e.visibleAt = now.Add(visibility)
		e.receiveCount++

		attrs := make(map[string]string, len(e.attrs))
		for k, v := range e.attrs {
			attrs[k] = v
		}
		out = append(out, Message{
			ID:           e.id,
			Receipt:      e.receipt,
			Body:         append([]byte(nil), e.body...),
			Attributes:   attrs,
			ReceiveCount: e.receiveCount,
		})
	}
	return out, nil
}

// Delete removes a message. A receipt from an earlier delivery of a message that has
// since been received again is rejected.
func (q *MemoryQueue) Delete(ctx context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.receipt == receipt && receipt != "" {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownReceipt
}

// Len returns the number of messages held, visible or not
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *MemoryQueue) Ping(ctx context.Context) error { return ctx.Err() }

func (q *MemoryQueue) Close() error { return nil }
