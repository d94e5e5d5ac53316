package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestQueue_PushPop_FIFO(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "payment_callbacks")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Push(ctx, &CallbackMessage{CallbackID: int64(i), ExternalID: "tx"}))
	}

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)

	for i := 1; i <= 3; i++ {
		msg, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, int64(i), msg.CallbackID)
	}
}

func TestQueue_PopTimeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "empty_queue")

	msg, err := q.Pop(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestQueue_PopInvalidJSON(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "bad_queue")
	require.NoError(t, client.LPush(ctx, "bad_queue", "not json").Err())

	msg, err := q.Pop(ctx, time.Second)
	assert.Error(t, err)
	assert.Nil(t, msg)
}

func TestQueue_KeepsAttempt(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "retry_queue")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &CallbackMessage{CallbackID: 9, Attempt: 2}))

	msg, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, 2, msg.Attempt)
}
