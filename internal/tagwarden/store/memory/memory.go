// Package memory is an in-process implementation of the store interfaces,
// intended for tests and dev environments. Transactions are serialised by a
// single mutex and rolled back by restoring a snapshot.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

type Store struct {
	mu         sync.Mutex
	users      map[string]store.User
	scanners   map[string]store.Scanner
	tokens     map[string]store.Token
	grants     map[string]store.Grant
	logs       []store.AccessLogRecord
	heartbeats []store.HeartbeatRecord

	calls atomic.Int64

	failAppend error
	failTouch  error
	failCommit error
}

func New() *Store {
	return &Store{
		users:    make(map[string]store.User),
		scanners: make(map[string]store.Scanner),
		tokens:   make(map[string]store.Token),
		grants:   make(map[string]store.Grant),
	}
}

type snapshot struct {
	users      map[string]store.User
	scanners   map[string]store.Scanner
	tokens     map[string]store.Token
	grants     map[string]store.Grant
	logs       []store.AccessLogRecord
	heartbeats []store.HeartbeatRecord
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:      maps.Clone(s.users),
		scanners:   maps.Clone(s.scanners),
		tokens:     maps.Clone(s.tokens),
		grants:     maps.Clone(s.grants),
		logs:       slices.Clone(s.logs),
		heartbeats: slices.Clone(s.heartbeats),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.scanners = snap.scanners
	s.tokens = snap.tokens
	s.grants = snap.grants
	s.logs = snap.logs
	s.heartbeats = snap.heartbeats
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.calls.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	v := &txView{s: s}
	err := fn(ctx, store.Tx{
		Scanners:   v,
		Tokens:     v,
		Users:      v,
		Grants:     v,
		AuditLog:   v,
		Heartbeats: v,
	})
	if err == nil && s.failCommit != nil {
		err = s.failCommit
	}
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Calls returns how many datastore operations have been issued. Test-only helper.
func (s *Store) Calls() int64 { return s.calls.Load() }

// FailAuditWrites makes every AppendAccessLog return err. Test-only helper.
func (s *Store) FailAuditWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = err
}

// FailTokenTouch makes every TouchTokenLastUsed return err. Test-only helper.
func (s *Store) FailTokenTouch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTouch = err
}

// FailCommit makes every otherwise-successful transaction roll back with err.
// Test-only helper.
func (s *Store) FailCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

// txView is the transaction-bound face of Store. Its methods run with s.mu
// already held by InTx.
type txView struct {
	s *Store
}

func (v *txView) count() { v.s.calls.Add(1) }

var (
	_ store.TxRunner            = (*Store)(nil)
	_ store.AuditLogReader      = (*Store)(nil)
	_ store.HeartbeatPruneStore = (*Store)(nil)
	_ store.Pinger              = (*Store)(nil)
)
