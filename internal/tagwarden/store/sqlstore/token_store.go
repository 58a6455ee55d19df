package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (r *txRepos) GetTokenByUID(ctx context.Context, uid string) (store.Token, error) {
	var (
		t         store.Token
		lastUsed  sql.NullInt64
		createdMs int64
		updatedMs int64
	)
	err := r.queryRow(ctx, `
SELECT token_id, uid, user_id, name, is_active, last_used_at_ms, created_at_ms, updated_at_ms
FROM tokens
WHERE uid = ?`, uid).Scan(
		&t.ID, &t.UID, &t.UserID, &t.Name, &t.Active, &lastUsed, &createdMs, &updatedMs,
	)
	if err != nil {
		return store.Token{}, mapReadErr(err)
	}
	t.LastUsedAt = fromNullMs(lastUsed)
	t.CreatedAt = fromMs(createdMs)
	t.UpdatedAt = fromMs(updatedMs)
	return t, nil
}

func (r *txRepos) CreateToken(ctx context.Context, t store.Token) error {
	created := toMs(t.CreatedAt)
	updated := created
	if !t.UpdatedAt.IsZero() {
		updated = toMs(t.UpdatedAt)
	}
	_, err := r.exec(ctx, `
INSERT INTO tokens(token_id, uid, user_id, name, is_active, last_used_at_ms, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UID, t.UserID, t.Name, t.Active, nullMs(t.LastUsedAt), created, updated,
	)
	return mapWriteErr("insert token "+t.UID, err)
}

func (r *txRepos) SetTokenActive(ctx context.Context, id string, active bool, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE tokens SET is_active = ?, updated_at_ms = ? WHERE token_id = ?`,
		active, toMs(at), id,
	))
}

func (r *txRepos) TouchTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE tokens SET last_used_at_ms = ? WHERE token_id = ?`,
		toMs(at), id,
	))
}
