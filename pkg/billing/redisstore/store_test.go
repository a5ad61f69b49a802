package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/billing/redisstore"
	"github.com/dmitrymomot/billingkit/pkg/billing/storetest"
	"github.com/dmitrymomot/billingkit/pkg/redis"
)

// Runs against a live server when REDIS_URL is set.
func TestStore_Contract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := redis.Connect(ctx, redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	n := 0
	storetest.Run(t, func(t *testing.T) billing.Store {
		n++
		prefix := fmt.Sprintf("billingkit_test:%d:%d:", time.Now().UnixNano(), n)
		t.Cleanup(func() { cleanup(client, prefix) })
		return redisstore.New(client, redisstore.WithPrefix(prefix))
	})
}

func cleanup(client *goredis.Client, prefix string) {
	ctx := context.Background()
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}
