package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisBodyField  = "body"
	redisAttrPrefix = "attr:"
)

// RedisQueue is a queue on a Redis stream with a single consumer group. Pending entries
// idle longer than the visibility timeout are reclaimed on the next receive.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// RedisConfig configures a RedisQueue
type RedisConfig struct {
	URL      string
	Stream   string
	Group    string
	Consumer string
}

// NewRedisQueue connects to Redis and makes sure the consumer group exists
func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 5
	opts.MinIdleConns = 1
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	q := newRedisQueue(client, cfg)
	if err := q.ensureGroup(ctx); err != nil {
		client.Close()
		return nil, err
	}

	log.Printf("✅ [QUEUE] Connected to Redis stream %s (group %s)", q.stream, q.group)
	return q, nil
}

func newRedisQueue(client *redis.Client, cfg RedisConfig) *RedisQueue {
	q := &RedisQueue{client: client, stream: cfg.Stream, group: cfg.Group, consumer: cfg.Consumer}
	if q.stream == "" {
		q.stream = "nexussync:dlq"
	}
	if q.group == "" {
		q.group = "redrive"
	}
	if q.consumer == "" {
		q.consumer = "redrive-1"
	}
	return q
}

func (q *RedisQueue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (q *RedisQueue) Publish(ctx context.Context, body []byte, attrs map[string]string) error {
	values := map[string]interface{}{redisBodyField: string(body)}
	for k, v := range attrs {
		values[redisAttrPrefix+k] = v
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", q.stream, err)
	}
	return nil
}

// Receive first reclaims entries whose visibility has lapsed, then reads new ones.
func (q *RedisQueue) Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error) {
	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  visibility,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to reclaim pending entries: %w", err)
	}

	out := make([]Message, 0, max)
	for _, m := range claimed {
		out = append(out, toMessage(m, 2))
	}
	if len(out) >= max {
		return out, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(max - len(out)),
		Block:    -1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to read from %s: %w", q.stream, err)
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, toMessage(m, 1))
		}
	}
	return out, nil
}

func toMessage(m redis.XMessage, receiveCount int) Message {
	msg := Message{ID: m.ID, Receipt: m.ID, Attributes: map[string]string{}, ReceiveCount: receiveCount}
	for k, v := range m.Values {
		s, _ := v.(string)
		if k == redisBodyField {
			msg.Body = []byte(s)
		} else if strings.HasPrefix(k, redisAttrPrefix) {
			msg.Attributes[strings.TrimPrefix(k, redisAttrPrefix)] = s
		}
	}
	return msg
}

// Delete acknowledges the entry and removes it from the stream
func (q *RedisQueue) Delete(ctx context.Context, receipt string) error {
	acked, err := q.client.XAck(ctx, q.stream, q.group, receipt).Result()
	if err != nil {
		return fmt.Errorf("failed to ack %s: %w", receipt, err)
	}
	if err := q.client.XDel(ctx, q.stream, receipt).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", receipt, err)
	}
	if acked == 0 {
		return ErrUnknownReceipt
	}
	return nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
