package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	Driver string // "sqlite" | "postgres"
	Path   string // sqlite file, e.g. "./data/tagwarden.db"
	DSN    string // postgres connection string
	Env    string // "dev" | "prod"

	MaxOpenConns int // postgres only; sqlite always uses one connection
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	d := DialectFor(cfg.Driver)
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	var dsn string
	switch d {
	case Postgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		dsn = cfg.DSN
	default:
		if cfg.Path == "" {
			cfg.Path = "./data/tagwarden.db"
		}
		// Ensure DB parent directory exists.
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = SQLiteDSN(cfg.Path)
	}

	conn, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	// Validate connection early.
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	// Apply migrations.
	if err := Migrate(ctx, conn, d); err != nil {
		_ = conn.Close()
		return nil, err
	}

	ApplyPool(conn, d, cfg.MaxOpenConns)
	return conn, nil
}

// SQLiteDSN builds a modernc.org/sqlite DSN with per-connection PRAGMAs:
// foreign keys on, WAL, synchronous NORMAL and a busy timeout.
func SQLiteDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)
}

// ApplyPool sets connection limits. SQLite gets a single connection.
func ApplyPool(conn *sql.DB, d Dialect, maxOpen int) {
	if d == SQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		return
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen / 2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(10 * time.Minute)
}
