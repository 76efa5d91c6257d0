package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"sync"
	"time"

	identity "github.com/elimuconnect/go-identity"
	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

const migrationsDir = "data/sql/migrations"

// Config describes the database connection
type Config struct {
	DSN            string        `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	Debug          bool          `env:"DATABASE_DEBUG"`
	PingTimeout    time.Duration `env:"DATABASE_PING_TIMEOUT" envDefault:"5s"`
	OtelIdentifier string        `env:"DATABASE_OTEL_IDENTIFIER"`
}

func (c Config) GetDebug() bool { return c.Debug }

func (c Config) GetDriver() string {
	if isPostgres(c.DSN) {
		return "pgx"
	}
	return sqliteshim.ShimName
}

func (c Config) GetServer() string { return c.DSN }

func (c Config) GetDSN() string { return c.DSN }

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c Config) GetOtelIdentifier() string { return c.OtelIdentifier }

var registerModels sync.Once

// Open connects to PostgreSQL for postgres:// DSNs and to SQLite otherwise,
// then runs the schema migrations.
func Open(ctx context.Context, dsn string) (*bun.DB, error) {
	return OpenConfig(ctx, Config{DSN: dsn})
}

// OpenConfig is Open with full connection settings
func OpenConfig(ctx context.Context, cfg Config) (*bun.DB, error) {
	sqldb, err := sql.Open(cfg.GetDriver(), cfg.DSN)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open database").
			WithMetadata(map[string]any{"driver": cfg.GetDriver()})
	}

	var dialect schema.Dialect = sqlitedialect.New()
	if isPostgres(cfg.DSN) {
		dialect = pgdialect.New()
	} else {
		// in-memory databases live as long as their single connection
		sqldb.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "database is not reachable")
	}

	registerModels.Do(func() {
		persistence.RegisterModel((*identity.Account)(nil))
	})

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), migrationsDir)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsDir),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "accounts migrations are incomplete")
	}

	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate accounts schema")
	}

	return client.DB(), nil
}

func isPostgres(dsn string) bool {
	dsn = strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
