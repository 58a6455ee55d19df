package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (r *txRepos) GetGrant(ctx context.Context, userID, scannerID string) (store.Grant, error) {
	var (
		g         store.Grant
		grantedMs int64
		expiresMs sql.NullInt64
		updatedMs int64
	)
	err := r.queryRow(ctx, `
SELECT grant_id, user_id, scanner_id, granted_by, granted_at_ms, expires_at_ms, is_active, updated_at_ms
FROM access_grants
WHERE user_id = ? AND scanner_id = ?`, userID, scannerID).Scan(
		&g.ID, &g.UserID, &g.ScannerID, &g.GrantedBy, &grantedMs, &expiresMs, &g.Active, &updatedMs,
	)
	if err != nil {
		return store.Grant{}, mapReadErr(err)
	}
	g.GrantedAt = fromMs(grantedMs)
	g.ExpiresAt = fromNullMs(expiresMs)
	g.UpdatedAt = fromMs(updatedMs)
	return g, nil
}

func (r *txRepos) CreateGrant(ctx context.Context, g store.Grant) error {
	granted := toMs(g.GrantedAt)
	updated := granted
	if !g.UpdatedAt.IsZero() {
		updated = toMs(g.UpdatedAt)
	}
	_, err := r.exec(ctx, `
INSERT INTO access_grants(
  grant_id, user_id, scanner_id, granted_by, granted_at_ms, expires_at_ms, is_active, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.ScannerID, g.GrantedBy, granted, nullMs(g.ExpiresAt), g.Active, updated,
	)
	return mapWriteErr("insert grant "+g.UserID+"/"+g.ScannerID, err)
}

func (r *txRepos) SetGrantActive(ctx context.Context, id string, active bool, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE access_grants SET is_active = ?, updated_at_ms = ? WHERE grant_id = ?`,
		active, toMs(at), id,
	))
}
