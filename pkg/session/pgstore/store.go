package pgstore

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/sessionkit/pkg/pg"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Migrations holds the schema for the sessions table. Apply it with pg.MigrateFS.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool and pgx.Tx the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	// An expired row with the same ID may be replaced; a live one never is.
	insertQuery = `INSERT INTO sessions (id, data, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at
WHERE sessions.expires_at <= $4`

	selectQuery        = `SELECT data, expires_at FROM sessions WHERE id = $1 AND expires_at > $2`
	updateQuery        = `UPDATE sessions SET data = $2, expires_at = $3 WHERE id = $1 AND expires_at > $4`
	touchQuery         = `UPDATE sessions SET expires_at = $2 WHERE id = $1 AND expires_at > $3`
	deleteQuery        = `DELETE FROM sessions WHERE id = $1`
	deleteExpiredQuery = `DELETE FROM sessions WHERE expires_at <= $1`
)

// Store implements session.Store on PostgreSQL.
// Expired rows are invisible immediately and removed by DeleteExpired.
type Store struct {
	db    DB
	newID session.IDGenerator
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the ID source used by Create.
func WithIDGenerator(gen session.IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store using db, usually a *pgxpool.Pool.
func New(db DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		newID: session.NewID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, data []byte, expiresAt time.Time) (session.ID, error) {
	for range session.MaxCreateAttempts {
		id, err := s.newID()
		if err != nil {
			return session.ID{}, err
		}

		tag, err := s.db.Exec(ctx, insertQuery, id[:], data, expiresAt, s.now())
		if err != nil {
			return session.ID{}, backendError(err)
		}
		if tag.RowsAffected() == 1 {
			return id, nil
		}
	}
	return session.ID{}, session.ErrCollision
}

func (s *Store) Load(ctx context.Context, id session.ID) (*session.Record, error) {
	rec := &session.Record{ID: id}
	err := s.db.QueryRow(ctx, selectQuery, id[:], s.now()).Scan(&rec.Data, &rec.ExpiresAt)
	if pg.IsNotFoundError(err) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, backendError(err)
	}
	return rec, nil
}

func (s *Store) Update(ctx context.Context, id session.ID, data []byte, expiresAt time.Time) error {
	tag, err := s.db.Exec(ctx, updateQuery, id[:], data, expiresAt, s.now())
	return affected(tag, err)
}

func (s *Store) Touch(ctx context.Context, id session.ID, expiresAt time.Time) error {
	tag, err := s.db.Exec(ctx, touchQuery, id[:], expiresAt, s.now())
	return affected(tag, err)
}

func (s *Store) Delete(ctx context.Context, id session.ID) error {
	_, err := s.db.Exec(ctx, deleteQuery, id[:])
	return backendError(err)
}

// DeleteExpired removes every expired row and reports how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, deleteExpiredQuery, s.now())
	if err != nil {
		return 0, backendError(err)
	}
	return int(tag.RowsAffected()), nil
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return backendError(err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// backendError maps server-side statement cancellation to ErrTimeout before
// the generic classification.
func backendError(err error) error {
	if pg.IsQueryCanceledError(err) {
		return errors.Join(session.ErrTimeout, err)
	}
	return session.BackendError(err)
}
