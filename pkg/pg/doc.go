// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: connection pooling, migrations, health checks and error
// classification helpers.
//
//   - Config is populated from environment variables via
//     github.com/caarlos0/env and controls pool limits, health-check cadence
//     and migration settings.
//   - Connect opens a *pgxpool.Pool, retrying with linear back-off until the
//     database becomes available or ctx is done.
//   - Migrate runs goose migrations from a directory on disk; MigrateFS runs
//     migrations embedded in a package, which is how pgstore ships its schema.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//	    return err
//	}
//
//	health := pg.Healthcheck(pool)
//
// # Error Handling
//
// Helpers such as IsNotFoundError or IsDuplicateKeyError unwrap errors
// returned by pgx and *pgconn.PgError.
package pg
