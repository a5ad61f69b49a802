package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck pings the pool and checks that every table in tables exists,
// so an instance is not ready before its migrations have run.
func Healthcheck(pool *pgxpool.Pool, tables ...string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		for _, table := range tables {
			var exists bool
			if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists); err != nil {
				return errors.Join(ErrHealthcheckFailed, err)
			}
			if !exists {
				return errors.Join(ErrHealthcheckFailed, fmt.Errorf("%w: %s", ErrSchemaNotReady, table))
			}
		}
		return nil
	}
}
