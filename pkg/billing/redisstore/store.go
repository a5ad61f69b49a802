// Package redisstore implements billing.Store on Redis.
//
// Accounts are JSON strings. Secondary keys index order IDs, expiry times and
// accounts with pending orders. Save runs inside WATCH/MULTI on the account key,
// so a concurrent writer aborts the transaction and surfaces ErrVersionConflict.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "billing:"

// resetAttempts bounds retries of one account during ResetUsage.
const resetAttempts = 5

type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ billing.Store = (*Store)(nil)

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) accountKey(id string) string { return s.prefix + "account:" + id }
func (s *Store) orderKey(id string) string   { return s.prefix + "order:" + id }
func (s *Store) accountsKey() string         { return s.prefix + "accounts" }
func (s *Store) expiryKey() string           { return s.prefix + "expiry" }
func (s *Store) pendingKey() string          { return s.prefix + "pending" }

func (s *Store) FindByID(ctx context.Context, userID string) (*billing.Account, error) {
	raw, err := s.client.Get(ctx, s.accountKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, billing.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *Store) FindByOrderID(ctx context.Context, orderID string) (*billing.Account, error) {
	userID, err := s.client.Get(ctx, s.orderKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, billing.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	acc, err := s.FindByID(ctx, userID)
	if errors.Is(err, billing.ErrAccountNotFound) || (err == nil && acc.Order(orderID) == nil) {
		return nil, billing.ErrOrderNotFound
	}
	return acc, err
}

func (s *Store) FindByExpiryRange(ctx context.Context, start, end time.Time) ([]*billing.Account, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.expiryKey(), &redis.ZRangeBy{
		Min: score(start),
		Max: score(end),
	}).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids, func(a *billing.Account) bool {
		e := a.Subscription.Expiry
		return e != nil && !e.Before(start) && e.Before(end)
	})
}

func (s *Store) FindWithPendingOrders(ctx context.Context, createdBefore time.Time) ([]*billing.Account, error) {
	// The pending index scores each account by its oldest pending order.
	// Scores are whole milliseconds, so bounds are inclusive and refined below.
	ids, err := s.client.ZRangeByScore(ctx, s.pendingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: score(createdBefore),
	}).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids, func(a *billing.Account) bool {
		for _, o := range a.Orders {
			if o.Status == billing.OrderPending && o.CreatedAt.Before(createdBefore) {
				return true
			}
		}
		return false
	})
}

func (s *Store) Save(ctx context.Context, acc *billing.Account) error {
	key := s.accountKey(acc.ID)
	next := acc.Version + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if acc.Version != 0 {
				return billing.ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			stored, err := decode(current)
			if err != nil {
				return err
			}
			if acc.Version == 0 || stored.Version != acc.Version {
				return billing.ErrVersionConflict
			}
		}

		doc := acc.Clone()
		doc.Version = next
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			s.write(ctx, p, doc, raw)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return billing.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	acc.Version = next
	return nil
}

func (s *Store) write(ctx context.Context, p redis.Pipeliner, acc *billing.Account, raw []byte) {
	p.Set(ctx, s.accountKey(acc.ID), raw, 0)
	p.SAdd(ctx, s.accountsKey(), acc.ID)
	for _, o := range acc.Orders {
		p.Set(ctx, s.orderKey(o.OrderID), acc.ID, 0)
	}

	if e := acc.Subscription.Expiry; e != nil {
		p.ZAdd(ctx, s.expiryKey(), redis.Z{Score: millis(*e), Member: acc.ID})
	} else {
		p.ZRem(ctx, s.expiryKey(), acc.ID)
	}

	var oldest *time.Time
	for i := range acc.Orders {
		o := &acc.Orders[i]
		if o.Status == billing.OrderPending && (oldest == nil || o.CreatedAt.Before(*oldest)) {
			oldest = &o.CreatedAt
		}
	}
	if oldest != nil {
		p.ZAdd(ctx, s.pendingKey(), redis.Z{Score: millis(*oldest), Member: acc.ID})
	} else {
		p.ZRem(ctx, s.pendingKey(), acc.ID)
	}
}

// ResetUsage rewrites every account under the same WATCH protocol as Save.
func (s *Store) ResetUsage(ctx context.Context, at time.Time) (int64, error) {
	ids, err := s.client.SMembers(ctx, s.accountsKey()).Result()
	if err != nil {
		return 0, err
	}

	var n int64
	for _, id := range ids {
		for attempt := 0; ; attempt++ {
			acc, err := s.FindByID(ctx, id)
			if errors.Is(err, billing.ErrAccountNotFound) {
				break
			}
			if err != nil {
				return n, err
			}
			acc.Subscription.Usage = nil
			acc.Subscription.UsageResetAt = &at
			err = s.Save(ctx, acc)
			if err == nil {
				n++
				break
			}
			if !errors.Is(err, billing.ErrVersionConflict) || attempt+1 >= resetAttempts {
				return n, err
			}
		}
	}
	return n, nil
}

func (s *Store) load(ctx context.Context, ids []string, keep func(*billing.Account) bool) ([]*billing.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.accountKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*billing.Account, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // deleted between the index read and MGET
		}
		acc, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		if keep(acc) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func decode(raw []byte) (*billing.Account, error) {
	var acc billing.Account
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, errors.Join(errors.New("decode account"), err)
	}
	return &acc, nil
}

func millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
