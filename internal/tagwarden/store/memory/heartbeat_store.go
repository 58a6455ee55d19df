package memory

import (
	"context"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) InsertHeartbeat(_ context.Context, rec store.HeartbeatRecord) error {
	v.count()
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	v.s.heartbeats = append(v.s.heartbeats, rec)
	return nil
}

func (s *Store) PruneHeartbeatsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.heartbeats[:0]
	var deleted int64
	for _, rec := range s.heartbeats {
		if rec.ReceivedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.heartbeats = kept
	return deleted, nil
}

// PutHeartbeat appends a heartbeat outside of any transaction. Test-only helper.
func (s *Store) PutHeartbeat(rec store.HeartbeatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats = append(s.heartbeats, rec)
}

// Heartbeats returns a copy of all stored heartbeats. Test-only helper.
func (s *Store) Heartbeats() []store.HeartbeatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.HeartbeatRecord, len(s.heartbeats))
	copy(out, s.heartbeats)
	return out
}
