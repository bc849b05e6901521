package queue

import (
	"context"
	"testing"
	"time"

	"feedvault/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	q := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func TestQueue_PushPopFIFO(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	first, err := q.Push(ctx, "http://a", []model.Item{{GUID: "g1", Title: "one"}})
	require.NoError(t, err)
	_, err = q.Push(ctx, "http://b", nil)
	require.NoError(t, err)

	// Check the raw list with miniredis
	list, err := mr.List(DefaultKey)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, job.ID)
	assert.Equal(t, "http://a", job.FeedURL)
	require.Len(t, job.Items, 1)
	assert.Equal(t, "one", job.Items[0].Title)

	job, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://b", job.FeedURL)
}

func TestQueue_PopCancelled(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx, 0)
	assert.Error(t, err)
}

func TestQueue_PopBadPayload(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(DefaultKey, "{not json")
	require.NoError(t, err)

	_, err = q.Pop(context.Background(), time.Second)
	assert.ErrorContains(t, err, "decode job")
}

func TestConnect_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Connect(context.Background(), addr)
	assert.Error(t, err)
}
