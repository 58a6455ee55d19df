package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Fixed identifiers for the dev fixture so a re-run is a no-op.
const (
	DevScannerID = "scanner-dev-01"
	DevRootID    = "00000000-0000-0000-0000-000000000001"
	DevUserID    = "00000000-0000-0000-0000-000000000002"
	DevTokenID   = "00000000-0000-0000-0000-000000000003"
	DevGrantID   = "00000000-0000-0000-0000-000000000004"
	DevTokenUID  = "A1B2C3D4"
)

// SeedDev inserts a scanner, a root operator, one user with one token and a
// grant for that user on the scanner. Existing rows are left alone.
func SeedDev(ctx context.Context, conn *sql.DB, d Dialect) error {
	now := time.Now().UTC().UnixMilli()

	stmts := []struct {
		name  string
		query string
		args  []any
	}{
		{"scanner", `
INSERT INTO scanners(scanner_id, name, location, description, direction, is_active, created_at_ms, updated_at_ms)
VALUES (?, 'Main Entrance', 'Dev', 'seeded dev scanner', 'both', ?, ?, ?)
ON CONFLICT DO NOTHING`, []any{DevScannerID, true, now, now}},
		{"root user", `
INSERT INTO users(user_id, email, role, display_name, is_active, created_at_ms, updated_at_ms)
VALUES (?, 'root@tagwarden.local', 'root', 'Root', ?, ?, ?)
ON CONFLICT DO NOTHING`, []any{DevRootID, true, now, now}},
		{"user", `
INSERT INTO users(user_id, email, role, display_name, is_active, created_at_ms, updated_at_ms)
VALUES (?, 'dev@tagwarden.local', 'user', 'Dev User', ?, ?, ?)
ON CONFLICT DO NOTHING`, []any{DevUserID, true, now, now}},
		{"token", `
INSERT INTO tokens(token_id, uid, user_id, name, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 'dev badge', ?, ?, ?)
ON CONFLICT DO NOTHING`, []any{DevTokenID, DevTokenUID, DevUserID, true, now, now}},
		{"grant", `
INSERT INTO access_grants(grant_id, user_id, scanner_id, granted_by, granted_at_ms, is_active, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`, []any{DevGrantID, DevUserID, DevScannerID, DevRootID, now, true, now}},
	}

	for _, s := range stmts {
		if _, err := conn.ExecContext(ctx, d.Rebind(s.query), s.args...); err != nil {
			return fmt.Errorf("seed %s: %w", s.name, err)
		}
	}
	return nil
}
