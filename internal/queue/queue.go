package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feedvault/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "queue:ingest"

// ErrEmpty is returned by Pop when no job arrived before the timeout.
var ErrEmpty = errors.New("queue is empty")

// Job is one parsed feed fetch waiting to be ingested.
type Job struct {
	ID         uuid.UUID    `json:"id"`
	FeedURL    string       `json:"feedUrl"`
	Items      []model.Item `json:"items"`
	EnqueuedAt time.Time    `json:"enqueuedAt"`
}

// Queue is a FIFO of ingestion jobs kept in a Redis list.
type Queue struct {
	rdb *redis.Client
	key string
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr string) (*Queue, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(rdb), nil
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, key: DefaultKey}
}

func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Push enqueues the items of one fetch of feedURL.
func (q *Queue) Push(ctx context.Context, feedURL string, items []model.Item) (Job, error) {
	job := Job{
		ID:         uuid.New(),
		FeedURL:    feedURL,
		Items:      items,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return Job{}, fmt.Errorf("push job: %w", err)
	}
	return job, nil
}

// Pop waits up to timeout for the oldest job. A zero timeout waits until ctx is done.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Job, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrEmpty
	}
	if err != nil {
		return Job{}, err
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
