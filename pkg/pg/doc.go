// Package pg connects to PostgreSQL with pgx/v5 and applies goose migrations.
//
// Config is populated from PG_* environment variables. Connect retries the
// initial pool creation and ping; Migrate runs migrations from an fs.FS,
// usually an embedded directory owned by the package that defines the schema.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, log); err != nil {
//		return err
//	}
//
// Healthcheck can also require tables, which keeps a replica unready until
// its migrations have run.
package pg
