// Package pgstore implements billing.Store on PostgreSQL.
//
// The account is stored as a JSONB document next to a version column used for
// compare-and-swap updates. Orders are mirrored into billing_orders so lookups by
// order ID and the pending-order sweep can use indexes.
package pgstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Tables lists the tables Migrations creates, for pg.Healthcheck.
var Tables = []string{"billing_accounts", "billing_orders"}

// Migrations holds the schema for pg.Migrate.
var Migrations fs.FS = mustSub(migrationsFS, "migrations")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

type Store struct {
	pool *pgxpool.Pool
}

var _ billing.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const selectAccount = `SELECT a.doc, a.version FROM billing_accounts a`

func (s *Store) FindByID(ctx context.Context, userID string) (*billing.Account, error) {
	return s.queryOne(ctx, billing.ErrAccountNotFound, selectAccount+` WHERE a.id = $1`, userID)
}

func (s *Store) FindByOrderID(ctx context.Context, orderID string) (*billing.Account, error) {
	return s.queryOne(ctx, billing.ErrOrderNotFound,
		selectAccount+` JOIN billing_orders o ON o.account_id = a.id WHERE o.order_id = $1`, orderID)
}

func (s *Store) FindByExpiryRange(ctx context.Context, start, end time.Time) ([]*billing.Account, error) {
	return s.query(ctx, selectAccount+` WHERE a.expiry >= $1 AND a.expiry < $2 ORDER BY a.id`, start, end)
}

func (s *Store) FindWithPendingOrders(ctx context.Context, createdBefore time.Time) ([]*billing.Account, error) {
	return s.query(ctx, selectAccount+` WHERE EXISTS (
		SELECT 1 FROM billing_orders o
		WHERE o.account_id = a.id AND o.status = $1 AND o.created_at < $2
	) ORDER BY a.id`, string(billing.OrderPending), createdBefore)
}

func (s *Store) Save(ctx context.Context, acc *billing.Account) error {
	next := acc.Version + 1
	doc, err := encode(acc, next)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			tag pgconn.CommandTag
			err error
		)
		if acc.Version == 0 {
			tag, err = tx.Exec(ctx, `
				INSERT INTO billing_accounts (id, version, expiry, doc, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO NOTHING`,
				acc.ID, next, acc.Subscription.Expiry, doc, acc.CreatedAt, acc.UpdatedAt)
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE billing_accounts
				SET version = $3, expiry = $4, doc = $5, updated_at = $6
				WHERE id = $1 AND version = $2`,
				acc.ID, acc.Version, next, acc.Subscription.Expiry, doc, acc.UpdatedAt)
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return billing.ErrVersionConflict
		}
		return syncOrders(ctx, tx, acc)
	})
	if err != nil {
		return err
	}
	acc.Version = next
	return nil
}

// syncOrders mirrors order status into billing_orders. An order ID owned by
// another account leaves the row untouched and fails the transaction.
func syncOrders(ctx context.Context, tx pgx.Tx, acc *billing.Account) error {
	if len(acc.Orders) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, o := range acc.Orders {
		batch.Queue(`
			INSERT INTO billing_orders (order_id, account_id, status, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (order_id) DO UPDATE SET status = EXCLUDED.status
			WHERE billing_orders.account_id = EXCLUDED.account_id`,
			o.OrderID, acc.ID, string(o.Status), o.CreatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	for _, o := range acc.Orders {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return err
		}
		if tag.RowsAffected() == 0 {
			_ = results.Close()
			return fmt.Errorf("order %s belongs to another account", o.OrderID)
		}
	}
	return results.Close()
}

func (s *Store) ResetUsage(ctx context.Context, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE billing_accounts
		SET doc = jsonb_set(doc #- '{subscription,usage}', '{subscription,usage_reset_at}', to_jsonb($1::timestamptz)),
		    version = version + 1,
		    updated_at = now()`, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) queryOne(ctx context.Context, notFound error, sql string, args ...any) (*billing.Account, error) {
	var (
		doc     []byte
		version int64
	)
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&doc, &version); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notFound
		}
		return nil, err
	}
	return decode(doc, version)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*billing.Account, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*billing.Account
	for rows.Next() {
		var (
			doc     []byte
			version int64
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		acc, err := decode(doc, version)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func encode(acc *billing.Account, version int64) ([]byte, error) {
	c := acc.Clone()
	c.Version = version
	return json.Marshal(c)
}

// decode trusts the version column over the document, since ResetUsage bumps only the column.
func decode(doc []byte, version int64) (*billing.Account, error) {
	var acc billing.Account
	if err := json.Unmarshal(doc, &acc); err != nil {
		return nil, errors.Join(errors.New("decode account document"), err)
	}
	acc.Version = version
	return &acc, nil
}
