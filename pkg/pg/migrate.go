package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// Migrate applies the goose migrations found in cfg.MigrationsPath.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(ErrMigrationsDirNotFound, err)
		}
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return up(ctx, pool, os.DirFS(cfg.MigrationsPath), cfg, log)
}

// MigrateFS applies migrations embedded in fsys under dir, so a package can
// ship its schema with //go:embed.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, cfg Config, log *slog.Logger) error {
	if fsys == nil || dir == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}
	sub, err := fs.Sub(fsys, dir)
	if err == nil {
		_, err = fs.Stat(fsys, dir)
	}
	if err != nil {
		return errors.Join(ErrMigrationsDirNotFound, err)
	}
	return up(ctx, pool, sub, cfg, log)
}

// up runs a goose provider over fsys. Each call gets its own provider, so
// concurrent migrations of different schemas do not share goose globals.
func up(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	table := cfg.MigrationsTable
	if table == "" {
		table = "schema_migrations"
	}
	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	// goose speaks database/sql; this shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.WarnContext(ctx, "failed to close migration db handle", logger.Error(err))
		}
	}()

	provider, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			logger.Duration(r.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}
