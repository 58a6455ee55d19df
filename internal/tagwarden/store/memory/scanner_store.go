package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) GetScanner(_ context.Context, id string) (store.Scanner, error) {
	v.count()
	sc, ok := v.s.scanners[id]
	if !ok {
		return store.Scanner{}, store.ErrNotFound
	}
	return sc, nil
}

func (v *txView) CreateScanner(_ context.Context, sc store.Scanner) error {
	v.count()
	if _, ok := v.s.scanners[sc.ID]; ok {
		return fmt.Errorf("scanner %s: %w", sc.ID, store.ErrConflict)
	}
	v.s.scanners[sc.ID] = sc
	return nil
}

func (v *txView) SetScannerActive(_ context.Context, id string, active bool, at time.Time) error {
	v.count()
	sc, ok := v.s.scanners[id]
	if !ok {
		return store.ErrNotFound
	}
	sc.Active = active
	sc.UpdatedAt = at
	v.s.scanners[id] = sc
	return nil
}

func (v *txView) MarkScannerSeen(_ context.Context, id string, at time.Time) error {
	v.count()
	sc, ok := v.s.scanners[id]
	if !ok {
		return store.ErrNotFound
	}
	t := at
	sc.LastSeenAt = &t
	v.s.scanners[id] = sc
	return nil
}

// PutScanner inserts or replaces a scanner outside of any transaction.
// Test-only helper.
func (s *Store) PutScanner(sc store.Scanner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanners[sc.ID] = sc
}

// Scanner returns the current state of a scanner. Test-only helper.
func (s *Store) Scanner(id string) (store.Scanner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scanners[id]
	return sc, ok
}
