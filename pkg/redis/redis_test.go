package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "mysql://localhost",
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

// Runs against a live server when REDIS_URL is set.
func TestLocker_TryLock(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: url, RetryAttempts: 1, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	locker := redis.NewLocker(client, "billingkit_test:lock:"+time.Now().Format("150405.000000")+":")

	unlock, ok, err := locker.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	require.NoError(t, unlock(ctx))

	unlock, ok, err = locker.TryLock(ctx, "sweep", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, unlock(ctx))
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	url := "redis://127.0.0.1:1/0"
	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 200 * time.Millisecond,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
}
