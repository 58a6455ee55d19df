package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (r *txRepos) AppendAccessLog(ctx context.Context, rec store.AccessLogRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.exec(ctx, `
INSERT INTO access_logs(log_id, token_id, scanner_id, access_granted, raw_uid, denial_reason, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		nullString(rec.TokenID),
		rec.ScannerID,
		rec.Granted,
		rec.RawUID,
		nullString(rec.DenialReason),
		toMs(rec.CreatedAt),
	)
	return mapWriteErr("insert access log", err)
}

// ListAccessLog reads straight from the pool, newest first.
func (s *Store) ListAccessLog(ctx context.Context, f store.AccessLogFilter) ([]store.AccessLogRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultAccessLogLimit
	}

	query := `
SELECT log_id, token_id, scanner_id, access_granted, raw_uid, denial_reason, created_at_ms
FROM access_logs`
	args := []any{}
	if f.ScannerID != "" {
		query += ` WHERE scanner_id = ?`
		args = append(args, f.ScannerID)
	}
	query += ` ORDER BY created_at_ms DESC, log_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list access log: %w", err)
	}
	defer rows.Close()

	var out []store.AccessLogRecord
	for rows.Next() {
		var (
			rec       store.AccessLogRecord
			tokenID   sql.NullString
			reason    sql.NullString
			createdMs int64
		)
		if err := rows.Scan(&rec.ID, &tokenID, &rec.ScannerID, &rec.Granted, &rec.RawUID, &reason, &createdMs); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		rec.TokenID = tokenID.String
		rec.DenialReason = reason.String
		rec.CreatedAt = fromMs(createdMs)
		out = append(out, rec)
	}
	return out, rows.Err()
}
