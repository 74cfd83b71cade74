package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryQueue_VisibilityTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewMemoryQueue()
	q.SetClock(func() time.Time { return now })

	if err := q.Publish(ctx, []byte("a"), map[string]string{"error_type": "INVALID_RESPONSE"}); err != nil {
		t.Fatal(err)
	}

	first, _ := q.Receive(ctx, 10, 30*time.Second)
	if len(first) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(first))
	}
	if first[0].Attributes["error_type"] != "INVALID_RESPONSE" {
		t.Errorf("Expected attributes to round-trip, got %v", first[0].Attributes)
	}

	hidden, _ := q.Receive(ctx, 10, 30*time.Second)
	if len(hidden) != 0 {
		t.Errorf("Expected message to be invisible, got %d", len(hidden))
	}

	now = now.Add(31 * time.Second)
	again, _ := q.Receive(ctx, 10, 30*time.Second)
	if len(again) != 1 || again[0].ReceiveCount != 2 {
		t.Fatalf("Expected redelivery with receive count 2, got %+v", again)
	}

	if err := q.Delete(ctx, first[0].Receipt); !errors.Is(err, ErrUnknownReceipt) {
		t.Errorf("Expected stale receipt to be rejected, got %v", err)
	}
	if err := q.Delete(ctx, again[0].Receipt); err != nil {
		t.Errorf("Unexpected delete error: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestMemoryQueue_ReceiveHonoursMax(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	for i := 0; i < 15; i++ {
		_ = q.Publish(ctx, []byte{byte(i)}, nil)
	}

	batch, _ := q.Receive(ctx, 10, time.Minute)
	if len(batch) != 10 {
		t.Errorf("Expected 10 messages, got %d", len(batch))
	}
	rest, _ := q.Receive(ctx, 10, time.Minute)
	if len(rest) != 5 {
		t.Errorf("Expected remaining 5 messages, got %d", len(rest))
	}
	if batch[0].Body[0] != 0 || rest[0].Body[0] != 10 {
		t.Error("Expected FIFO order")
	}
}

func TestMemoryQueue_PublishCopiesBody(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	body := []byte("original")
	_ = q.Publish(ctx, body, nil)
	body[0] = 'X'

	msgs, _ := q.Receive(ctx, 1, time.Minute)
	if string(msgs[0].Body) != "original" {
		t.Errorf("Expected stored body to be independent, got %q", msgs[0].Body)
	}
}

func TestNew_Drivers(t *testing.T) {
	q, err := New(context.Background(), Config{Driver: "memory"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.(*MemoryQueue); !ok {
		t.Errorf("Expected memory queue, got %T", q)
	}

	if _, err := New(context.Background(), Config{Driver: "sqs"}, nil); err == nil {
		t.Error("Expected sqs without a url to fail")
	}
	if _, err := New(context.Background(), Config{Driver: "kafka"}, nil); err == nil {
		t.Error("Expected unknown driver to fail")
	}
}
