package pg

import "time"

// Config is read from PG_* variables. Only the connection URL is required.
type Config struct {
	ConnectionString string `env:"PG_CONN_URL,required"`

	// Pool sizing and connection recycling.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	// StatementTimeout is sent as the statement_timeout runtime parameter.
	// Zero leaves the server default in place.
	StatementTimeout time.Duration `env:"PG_STATEMENT_TIMEOUT" envDefault:"5s"`

	// Connect retries the initial ping this many times, RetryInterval apart.
	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`

	// MigrationsPath is only used by Migrate; MigrateFS takes embedded files.
	MigrationsPath  string `env:"PG_MIGRATIONS_PATH"`
	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}
