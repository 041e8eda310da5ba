package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config describes a database connection.
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogQueries installs a query hook logging every statement at debug level.
	LogQueries bool `mapstructure:"log_queries"`
}

// Validate checks the driver and DSN.
func (c Config) Validate() error {
	switch normalizeDriver(c.Driver) {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetime < 0 {
		return fmt.Errorf("database pool settings must be non-negative")
	}
	return nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	case "mysql":
		return DriverMySQL
	default:
		return driver
	}
}

// OpenDB opens the database, verifies it with a ping and wraps it in a bun.DB
// using the dialect matching the driver.
func OpenDB(ctx context.Context, cfg Config, logger zerolog.Logger) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver := normalizeDriver(cfg.Driver)
	start := time.Now()

	sqldb, dialect, err := openSQL(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	db := bun.NewDB(sqldb, dialect)
	if cfg.LogQueries {
		db.AddQueryHook(NewQueryHook(logger))
	}

	logger.Info().
		Str("driver", driver).
		Dur("latency", time.Since(start)).
		Msg("database connected")

	return db, nil
}

func openSQL(driver, dsn string) (*sql.DB, schema.Dialect, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqldb, sqlitedialect.New(), nil

	case DriverPostgres:
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return stdlib.OpenDB(*connConfig), pgdialect.New(), nil

	case DriverMySQL:
		mysqlConfig, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		mysqlConfig.ParseTime = true
		sqldb, err := sql.Open("mysql", mysqlConfig.FormatDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		return sqldb, mysqldialect.New(), nil
	}

	return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
}
