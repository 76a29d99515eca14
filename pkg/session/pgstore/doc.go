// Package pgstore persists sessions in a PostgreSQL table.
//
// The schema ships with the package; apply it once at startup:
//
//	pool, _ := pg.Connect(ctx, cfg)
//	if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
//	    return err
//	}
//	store := pgstore.New(pool)
//
// Rows past their expires_at are invisible to every operation. PostgreSQL
// does not remove them on its own, so run session.RunJanitor with the store
// to delete them periodically.
package pgstore
