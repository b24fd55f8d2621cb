package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDelivers(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, q.Publish(ctx, NewDailyBatch(day)))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		got, err := ParseDailyBatch(msg, time.UTC)
		require.NoError(t, err)
		assert.True(t, got.Equal(day))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	_, open := <-msgs
	assert.False(t, open)
}

func TestInMemoryPublishHonoursContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "x"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "y"}), context.DeadlineExceeded)
}

func TestParseDailyBatch(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	day, err := ParseDailyBatch(Message{Type: TypeDailyBatch, Body: []byte(`{"date":"2024-02-29"}`)}, loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", day.Format("2006-01-02"))
	assert.Equal(t, loc, day.Location())

	_, err = ParseDailyBatch(Message{Type: "other", Body: []byte(`{}`)}, loc)
	assert.Error(t, err)
	_, err = ParseDailyBatch(Message{Type: TypeDailyBatch, Body: []byte(`{"date":"29/02/2024"}`)}, loc)
	assert.Error(t, err)
	_, err = ParseDailyBatch(Message{Type: TypeDailyBatch, Body: []byte(`nope`)}, loc)
	assert.Error(t, err)
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewRedisQueue(client, "root:queue:test")
	client.Del(ctx, "root:queue:test")
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, q.Publish(ctx, NewDailyBatch(day)))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.Equal(t, TypeDailyBatch, msg.Type)
	case <-time.After(6 * time.Second):
		t.Fatal("message not delivered")
	}
}
