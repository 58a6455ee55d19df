package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration for the dialect.
func Migrate(ctx context.Context, conn *sql.DB, d Dialect) error {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+d.Name)
	if err != nil {
		return fmt.Errorf("migrations dir %s: %w", d.Name, err)
	}

	provider, err := goose.NewProvider(d.gooseDialect(), conn, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
