package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // SQLite driver for local mode
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB bundles the database/sql handle with the pgx pool when Postgres is in
// use. Pool is nil in SQLite mode.
type DB struct {
	SQL  *sql.DB
	Pool *pgxpool.Pool
}

// Open connects to the card store. A postgres:// DSN gets a pgx pool
// wrapped for database/sql; anything else is treated as a SQLite path.
// Placeholders are $N throughout, which both drivers accept, so the
// stores share one implementation.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if isPostgresDSN(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg, logger)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "cardscan"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "sqlite", "path", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite database", "error", err)
		return nil, err
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return &DB{SQL: db}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			logger.Error("failed to close sql handle", "error", err)
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.SQL.PingContext(ctx)
}

// timeLayout is how timestamps are stored; TEXT keeps the schema portable
// across both drivers.
const timeLayout = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cards (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		job_title  TEXT NOT NULL,
		company    TEXT NOT NULL,
		email      TEXT NOT NULL,
		phone      TEXT NOT NULL,
		address    TEXT NOT NULL,
		website    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS card_files (
		id           TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    BIGINT NOT NULL,
		content_hash TEXT NOT NULL UNIQUE,
		uploaded_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scan_jobs (
		id             TEXT PRIMARY KEY,
		file_id        TEXT NOT NULL REFERENCES card_files(id),
		card_id        TEXT,
		started_at     TEXT NOT NULL,
		finished_at    TEXT,
		status         TEXT NOT NULL,
		error_message  TEXT,
		ocr_text       TEXT,
		confidence     REAL NOT NULL DEFAULT 0,
		needs_review   BOOLEAN NOT NULL DEFAULT FALSE,
		extracted_json TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_jobs_file ON scan_jobs(file_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_jobs_status ON scan_jobs(status, started_at)`,
}

// Migrate creates the schema when missing. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
