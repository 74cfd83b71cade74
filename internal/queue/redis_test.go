package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedisQueue_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL required")
	}

	ctx := context.Background()
	stream := "nexussync:test:" + uuid.New().String()
	q, err := NewRedisQueue(ctx, RedisConfig{URL: url, Stream: stream})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = q.client.Del(ctx, stream).Err()
		q.Close()
	}()

	if err := q.Publish(ctx, []byte("payload"), map[string]string{"retry_count": "1"}); err != nil {
		t.Fatal(err)
	}

	msgs, err := q.Receive(ctx, 10, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || string(msgs[0].Body) != "payload" || msgs[0].Attributes["retry_count"] != "1" {
		t.Fatalf("Unexpected messages %+v", msgs)
	}

	// Not deleted: reclaimed once the visibility timeout lapses
	time.Sleep(100 * time.Millisecond)
	again, err := q.Receive(ctx, 10, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0].ID != msgs[0].ID {
		t.Fatalf("Expected redelivery of %s, got %+v", msgs[0].ID, again)
	}

	if err := q.Delete(ctx, again[0].Receipt); err != nil {
		t.Fatal(err)
	}
	empty, _ := q.Receive(ctx, 10, 0)
	if len(empty) != 0 {
		t.Errorf("Expected empty stream, got %d", len(empty))
	}
}
