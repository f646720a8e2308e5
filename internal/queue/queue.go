package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"scribe/internal/config"
)

// Queue is a two-level priority task queue backed by Redis lists. Producers
// push to the head and the consumer pops from the tail, so each list is FIFO;
// the high list is always drained before the low list is consulted.
type Queue struct {
	client  *redis.Client
	high    string
	low     string
	timeout time.Duration
}

// New connects to the Redis broker described by the config.
func New(cfg *config.Config) *Queue {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &Queue{
		client:  client,
		high:    cfg.Redis.QueueHigh,
		low:     cfg.Redis.QueueLow,
		timeout: time.Duration(cfg.Worker.DequeueTimeoutSeconds) * time.Second,
	}
}

// Ping verifies the broker connection.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (q *Queue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

// Enqueue serializes a task and pushes it onto the list for the given
// priority. It returns the envelope as written, including the generated
// correlation identifier.
func (q *Queue) Enqueue(ctx context.Context, priority Priority, stage Stage, args any) (*Envelope, error) {
	if !stage.Known() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal %s args: %w", stage, err)
	}

	envelope := &Envelope{
		ID:         uuid.NewString(),
		Stage:      stage,
		Priority:   priority,
		EnqueuedAt: time.Now().UTC(),
		Args:       rawArgs,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	key := q.low
	if priority == PriorityHigh {
		key = q.high
	}
	if err := q.client.LPush(ctx, key, payload).Err(); err != nil {
		return nil, fmt.Errorf("push task to %s: %w", key, err)
	}
	return envelope, nil
}

// Dequeue blocks for up to the configured timeout waiting for a task,
// checking the high-priority list before the low one. It returns nil without
// an error when the timeout elapses with both lists empty.
func (q *Queue) Dequeue(ctx context.Context) (*Envelope, error) {
	result, err := q.client.BRPop(ctx, q.timeout, q.high, q.low).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop task: %w", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(result))
	}

	var envelope Envelope
	if err := json.Unmarshal([]byte(result[1]), &envelope); err != nil {
		return nil, fmt.Errorf("decode task from %s: %w", result[0], err)
	}
	return &envelope, nil
}

// Depth returns the number of waiting tasks per priority.
func (q *Queue) Depth(ctx context.Context) (high, low int64, err error) {
	high, err = q.client.LLen(ctx, q.high).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("measure %s: %w", q.high, err)
	}
	low, err = q.client.LLen(ctx, q.low).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("measure %s: %w", q.low, err)
	}
	return high, low, nil
}

// Clear drops all waiting tasks from both lists.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.client.Del(ctx, q.high, q.low).Err(); err != nil {
		return fmt.Errorf("clear queues: %w", err)
	}
	return nil
}
