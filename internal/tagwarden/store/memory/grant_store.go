package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) GetGrant(_ context.Context, userID, scannerID string) (store.Grant, error) {
	v.count()
	for _, g := range v.s.grants {
		if g.UserID == userID && g.ScannerID == scannerID {
			return g, nil
		}
	}
	return store.Grant{}, store.ErrNotFound
}

func (v *txView) CreateGrant(_ context.Context, g store.Grant) error {
	v.count()
	if _, ok := v.s.users[g.UserID]; !ok {
		return fmt.Errorf("grant user %s: %w", g.UserID, store.ErrNotFound)
	}
	if _, ok := v.s.scanners[g.ScannerID]; !ok {
		return fmt.Errorf("grant scanner %s: %w", g.ScannerID, store.ErrNotFound)
	}
	for _, existing := range v.s.grants {
		if existing.ID == g.ID || (existing.UserID == g.UserID && existing.ScannerID == g.ScannerID) {
			return fmt.Errorf("grant %s/%s: %w", g.UserID, g.ScannerID, store.ErrConflict)
		}
	}
	v.s.grants[g.ID] = g
	return nil
}

func (v *txView) SetGrantActive(_ context.Context, id string, active bool, at time.Time) error {
	v.count()
	g, ok := v.s.grants[id]
	if !ok {
		return store.ErrNotFound
	}
	g.Active = active
	g.UpdatedAt = at
	v.s.grants[id] = g
	return nil
}

// PutGrant inserts or replaces a grant outside of any transaction. Test-only helper.
func (s *Store) PutGrant(g store.Grant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.ID] = g
}
