package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/mongo"
)

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := mongo.New(context.Background(), mongo.Config{})
	assert.ErrorIs(t, err, mongo.ErrEmptyConnectionURL)
}

func TestNew_CancelledBetweenRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := mongo.New(ctx, mongo.Config{
		ConnectionURL:  "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		ConnectTimeout: 50 * time.Millisecond,
		RetryAttempts:  5,
		RetryInterval:  time.Hour,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}

func TestNewWithDatabase_EmptyName(t *testing.T) {
	t.Parallel()

	_, err := mongo.NewWithDatabase(context.Background(), mongo.Config{ConnectionURL: "mongodb://127.0.0.1:1"})
	assert.ErrorIs(t, err, mongo.ErrEmptyDatabase)
}
