package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (v *txView) AppendAccessLog(_ context.Context, rec store.AccessLogRecord) error {
	v.count()
	if v.s.failAppend != nil {
		return v.s.failAppend
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	v.s.logs = append(v.s.logs, rec)
	return nil
}

func (s *Store) ListAccessLog(_ context.Context, f store.AccessLogFilter) ([]store.AccessLogRecord, error) {
	s.calls.Add(1)
	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultAccessLogLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.AccessLogRecord, 0, min(limit, len(s.logs)))
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.logs[i]
		if f.ScannerID != "" && rec.ScannerID != f.ScannerID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// AccessLog returns a copy of all recorded entries in insertion order.
// Test-only helper.
func (s *Store) AccessLog() []store.AccessLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogRecord, len(s.logs))
	copy(out, s.logs)
	return out
}
