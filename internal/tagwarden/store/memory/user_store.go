package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) GetUser(_ context.Context, id string) (store.User, error) {
	v.count()
	u, ok := v.s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (v *txView) CreateUser(_ context.Context, u store.User) error {
	v.count()
	for _, existing := range v.s.users {
		if existing.ID == u.ID || strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("user %s: %w", u.Email, store.ErrConflict)
		}
	}
	v.s.users[u.ID] = u
	return nil
}

func (v *txView) SetUserActive(_ context.Context, id string, active bool, at time.Time) error {
	v.count()
	u, ok := v.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = at
	v.s.users[id] = u
	return nil
}

// PutUser inserts or replaces a user outside of any transaction. Test-only helper.
func (s *Store) PutUser(u store.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}
