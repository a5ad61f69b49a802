package mongostore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/billing/mongostore"
	"github.com/dmitrymomot/billingkit/pkg/billing/storetest"
	"github.com/dmitrymomot/billingkit/pkg/mongo"
)

// Runs against a live server when MONGODB_URL is set.
func TestStore_Contract(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}

	ctx := context.Background()
	db, err := mongo.NewWithDatabase(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       "billingkit_test",
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  1,
		RetryWrites:    true,
		RetryReads:     true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(context.Background()) })

	n := 0
	storetest.Run(t, func(t *testing.T) billing.Store {
		n++
		name := fmt.Sprintf("accounts_%d_%d", time.Now().UnixNano(), n)
		store := mongostore.New(db, mongostore.WithCollection(name))
		require.NoError(t, store.EnsureIndexes(ctx))
		t.Cleanup(func() { _ = db.Collection(name).Drop(context.Background()) })
		return store
	})
}
