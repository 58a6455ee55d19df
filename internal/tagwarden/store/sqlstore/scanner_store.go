package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

func (r *txRepos) GetScanner(ctx context.Context, id string) (store.Scanner, error) {
	var (
		sc        store.Scanner
		direction string
		lastSeen  sql.NullInt64
		createdMs int64
		updatedMs int64
	)
	err := r.queryRow(ctx, `
SELECT scanner_id, name, location, description, direction, is_active,
       last_seen_at_ms, created_at_ms, updated_at_ms
FROM scanners
WHERE scanner_id = ?`, id).Scan(
		&sc.ID, &sc.Name, &sc.Location, &sc.Description, &direction, &sc.Active,
		&lastSeen, &createdMs, &updatedMs,
	)
	if err != nil {
		return store.Scanner{}, mapReadErr(err)
	}
	sc.Direction = types.Direction(direction)
	sc.LastSeenAt = fromNullMs(lastSeen)
	sc.CreatedAt = fromMs(createdMs)
	sc.UpdatedAt = fromMs(updatedMs)
	return sc, nil
}

func (r *txRepos) CreateScanner(ctx context.Context, sc store.Scanner) error {
	if sc.Direction == "" {
		sc.Direction = types.DirectionBoth
	}
	created := toMs(sc.CreatedAt)
	updated := created
	if !sc.UpdatedAt.IsZero() {
		updated = toMs(sc.UpdatedAt)
	}
	_, err := r.exec(ctx, `
INSERT INTO scanners(
  scanner_id, name, location, description, direction, is_active,
  last_seen_at_ms, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Location, sc.Description, string(sc.Direction), sc.Active,
		nullMs(sc.LastSeenAt), created, updated,
	)
	return mapWriteErr("insert scanner "+sc.ID, err)
}

func (r *txRepos) SetScannerActive(ctx context.Context, id string, active bool, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE scanners SET is_active = ?, updated_at_ms = ? WHERE scanner_id = ?`,
		active, toMs(at), id,
	))
}

func (r *txRepos) MarkScannerSeen(ctx context.Context, id string, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE scanners SET last_seen_at_ms = ? WHERE scanner_id = ?`,
		toMs(at), id,
	))
}
