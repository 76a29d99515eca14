package pg_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sessionkit/pkg/pg"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, pg.IsNotFoundError(fmt.Errorf("query: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("other")))

	dup := &pgconn.PgError{Code: "23505"}
	canceled := &pgconn.PgError{Code: "57014"}
	adminShutdown := &pgconn.PgError{Code: "08006"}

	assert.True(t, pg.IsDuplicateKeyError(fmt.Errorf("insert: %w", dup)))
	assert.False(t, pg.IsDuplicateKeyError(canceled))
	assert.False(t, pg.IsDuplicateKeyError(nil))

	assert.True(t, pg.IsQueryCanceledError(fmt.Errorf("select: %w", canceled)))
	assert.False(t, pg.IsQueryCanceledError(dup))

	assert.True(t, pg.IsConnectionError(adminShutdown))
	assert.True(t, pg.IsConnectionError(&pgconn.ConnectError{}))
	assert.False(t, pg.IsConnectionError(dup))
	assert.False(t, pg.IsConnectionError(nil))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthcheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, pg.Healthcheck(pinger{})(context.Background()))

	down := errors.New("connection refused")
	err := pg.Healthcheck(pinger{err: down})(context.Background())
	assert.ErrorIs(t, err, pg.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, down)
}

func TestConnect_EmptyConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestConnect_InvalidConnectionString(t *testing.T) {
	t.Parallel()

	_, err := pg.Connect(context.Background(), pg.Config{ConnectionString: "postgres://%zz"})
	assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
}

func TestMigrate_PathErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := slog.New(slog.DiscardHandler)

	err := pg.Migrate(ctx, nil, pg.Config{}, log)
	assert.ErrorIs(t, err, pg.ErrMigrationPathNotProvided)

	err = pg.Migrate(ctx, nil, pg.Config{MigrationsPath: "does/not/exist"}, log)
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = pg.MigrateFS(ctx, nil, nil, "migrations", pg.Config{}, log)
	assert.ErrorIs(t, err, pg.ErrMigrationPathNotProvided)

	fsys := fstest.MapFS{"other/001_init.sql": {Data: []byte("-- +goose Up\n")}}
	err = pg.MigrateFS(ctx, nil, fsys, "migrations", pg.Config{}, log)
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}
