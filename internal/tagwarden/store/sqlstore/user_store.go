package sqlstore

import (
	"context"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

func (r *txRepos) GetUser(ctx context.Context, id string) (store.User, error) {
	var (
		u         store.User
		role      string
		createdMs int64
		updatedMs int64
	)
	err := r.queryRow(ctx, `
SELECT user_id, email, role, display_name, is_active, created_at_ms, updated_at_ms
FROM users
WHERE user_id = ?`, id).Scan(
		&u.ID, &u.Email, &role, &u.DisplayName, &u.Active, &createdMs, &updatedMs,
	)
	if err != nil {
		return store.User{}, mapReadErr(err)
	}
	u.Role = types.Role(role)
	u.CreatedAt = fromMs(createdMs)
	u.UpdatedAt = fromMs(updatedMs)
	return u, nil
}

func (r *txRepos) CreateUser(ctx context.Context, u store.User) error {
	created := toMs(u.CreatedAt)
	updated := created
	if !u.UpdatedAt.IsZero() {
		updated = toMs(u.UpdatedAt)
	}
	_, err := r.exec(ctx, `
INSERT INTO users(user_id, email, role, display_name, is_active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, string(u.Role), u.DisplayName, u.Active, created, updated,
	)
	return mapWriteErr("insert user "+u.Email, err)
}

func (r *txRepos) SetUserActive(ctx context.Context, id string, active bool, at time.Time) error {
	return requireOne(r.exec(ctx,
		`UPDATE users SET is_active = ?, updated_at_ms = ? WHERE user_id = ?`,
		active, toMs(at), id,
	))
}
