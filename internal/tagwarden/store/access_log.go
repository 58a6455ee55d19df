package store

import (
	"context"
	"time"
)

// AccessLogRecord captures a single access attempt for the audit log.
// TokenID is empty when the presented uid matched no token.
type AccessLogRecord struct {
	ID           string
	TokenID      string
	ScannerID    string
	Granted      bool
	RawUID       string
	DenialReason string
	CreatedAt    time.Time
}

// AuditLogWriter persists access decisions as an append-only audit log.
type AuditLogWriter interface {
	AppendAccessLog(ctx context.Context, rec AccessLogRecord) error
}

type AccessLogFilter struct {
	ScannerID string // empty = all scanners
	Limit     int    // <= 0 means DefaultAccessLogLimit
}

const DefaultAccessLogLimit = 50

// AuditLogReader lists recent audit entries, newest first.
type AuditLogReader interface {
	ListAccessLog(ctx context.Context, f AccessLogFilter) ([]AccessLogRecord, error)
}
