package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const appName = "billingd"

func clientOptions(cfg Config) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetAppName(appName).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetRetryReads(cfg.RetryReads).
		SetRetryWrites(cfg.RetryWrites)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	return opts
}

// New returns a client whose primary has answered a ping. Failed attempts
// are retried cfg.RetryInterval apart; ctx cancels the wait.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	var lastErr error
	for attempt := range max(cfg.RetryAttempts, 1) {
		if attempt > 0 {
			t := time.NewTimer(cfg.RetryInterval)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err(), lastErr)
			case <-t.C:
			}
		}

		var client *mongo.Client
		client, lastErr = mongo.Connect(clientOptions(cfg))
		if lastErr != nil {
			continue
		}
		if lastErr = Healthcheck(client)(ctx); lastErr == nil {
			return client, nil
		}
		_ = client.Disconnect(context.WithoutCancel(ctx))
	}
	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// NewWithDatabase is New followed by client.Database(cfg.Database).
func NewWithDatabase(ctx context.Context, cfg Config) (*mongo.Database, error) {
	if cfg.Database == "" {
		return nil, ErrEmptyDatabase
	}
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(cfg.Database), nil
}
