package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("failed to open db connection")
	ErrEmptyConnectionString    = errors.New("empty postgres connection string, use PG_CONN_URL env var")
	ErrHealthcheckFailed        = errors.New("healthcheck failed, connection is not available")
	ErrFailedToParseDBConfig    = errors.New("failed to parse db config")
	ErrFailedToApplyMigrations  = errors.New("failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("migrations directory not found")
	ErrMigrationPathNotProvided = errors.New("migration path not provided")
)

// SQLSTATE codes the helpers below look for.
const (
	codeUniqueViolation = "23505"
	codeQueryCanceled   = "57014"
	classConnection     = "08"
)

// IsNotFoundError detects pgx.ErrNoRows for consistent "not found" handling across queries.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects PostgreSQL unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, func(code string) bool { return code == codeUniqueViolation })
}

// IsQueryCanceledError detects statements cancelled by the server, most often
// because statement_timeout elapsed (SQLSTATE 57014).
func IsQueryCanceledError(err error) bool {
	return hasCode(err, func(code string) bool { return code == codeQueryCanceled })
}

// IsConnectionError reports failures to reach the server: dial and
// authentication errors from pgconn and the SQLSTATE class 08 family.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return hasCode(err, func(code string) bool { return len(code) == 5 && code[:2] == classConnection })
}

func hasCode(err error, match func(string) bool) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && match(pgErr.Code)
}
