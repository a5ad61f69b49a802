package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrEmptyConnectionString    = errors.New("pg: connection string is empty, set PG_CONN_URL")
	ErrFailedToParseDBConfig    = errors.New("pg: invalid connection string")
	ErrFailedToOpenDBConnection = errors.New("pg: database not reachable")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed")
	ErrSchemaNotReady           = errors.New("pg: required table missing, migrations not applied")
	ErrFailedToApplyMigrations  = errors.New("pg: migrations failed")
	ErrMigrationsNotProvided    = errors.New("pg: no migrations filesystem")
)

// IsNotFoundError reports a query that matched no row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
