package store

import (
	"context"
	"errors"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/types"
)

var (
	// ErrNotFound is returned by lookups when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert would violate a uniqueness rule.
	ErrConflict = errors.New("already exists")
)

// Tx bundles the repositories bound to one datastore transaction.
type Tx struct {
	Scanners   ScannerRepository
	Tokens     TokenRepository
	Users      UserRepository
	Grants     GrantRepository
	AuditLog   AuditLogWriter
	Heartbeats HeartbeatWriter
}

// TxRunner runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise; a commit failure is returned.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type HeartbeatRecord struct {
	ScannerID  string
	ReceivedAt time.Time
	Request    types.HeartbeatRequest
}

// HeartbeatWriter appends scanner heartbeats.
type HeartbeatWriter interface {
	InsertHeartbeat(ctx context.Context, rec HeartbeatRecord) error
}

// HeartbeatPruneStore deletes old heartbeats outside of any caller transaction.
type HeartbeatPruneStore interface {
	PruneHeartbeatsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pinger exposes the datastore health check.
type Pinger interface {
	Ping(ctx context.Context) error
}
