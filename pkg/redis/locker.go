package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker hands out short-lived exclusive leases backed by redsync.
// Replicas use it so a periodic job runs on one instance at a time.
type Locker struct {
	rs     *redsync.Redsync
	prefix string
}

func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
	}
}

// TryLock acquires key for ttl without waiting. ok is false when another
// holder owns the lease. The returned unlock releases it early.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error) {
	mu := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mu.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, false, nil
		}
		return nil, false, errors.Join(ErrLockFailed, err)
	}

	return func(ctx context.Context) error {
		if _, err := mu.UnlockContext(ctx); err != nil {
			return errors.Join(ErrLockFailed, fmt.Errorf("release %s: %w", key, err))
		}
		return nil
	}, true, nil
}
