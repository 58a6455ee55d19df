package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) GetTokenByUID(_ context.Context, uid string) (store.Token, error) {
	v.count()
	for _, t := range v.s.tokens {
		if t.UID == uid {
			return t, nil
		}
	}
	return store.Token{}, store.ErrNotFound
}

func (v *txView) CreateToken(_ context.Context, t store.Token) error {
	v.count()
	if _, ok := v.s.users[t.UserID]; !ok {
		return fmt.Errorf("token owner %s: %w", t.UserID, store.ErrNotFound)
	}
	for _, existing := range v.s.tokens {
		if existing.ID == t.ID || existing.UID == t.UID {
			return fmt.Errorf("token %s: %w", t.UID, store.ErrConflict)
		}
	}
	v.s.tokens[t.ID] = t
	return nil
}

func (v *txView) SetTokenActive(_ context.Context, id string, active bool, at time.Time) error {
	v.count()
	t, ok := v.s.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Active = active
	t.UpdatedAt = at
	v.s.tokens[id] = t
	return nil
}

func (v *txView) TouchTokenLastUsed(_ context.Context, id string, at time.Time) error {
	v.count()
	if v.s.failTouch != nil {
		return v.s.failTouch
	}
	t, ok := v.s.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	used := at
	t.LastUsedAt = &used
	v.s.tokens[id] = t
	return nil
}

// PutToken inserts or replaces a token outside of any transaction. The owner
// is not checked, so tests can build orphaned tokens. Test-only helper.
func (s *Store) PutToken(t store.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = t
}

// Token returns the current state of a token. Test-only helper.
func (s *Store) Token(id string) (store.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	return t, ok
}
