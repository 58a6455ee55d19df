package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

func (r *txRepos) InsertHeartbeat(ctx context.Context, rec store.HeartbeatRecord) error {
	var rssi sql.NullInt64
	if rec.Request.RSSIDbm != nil {
		rssi = sql.NullInt64{Int64: int64(*rec.Request.RSSIDbm), Valid: true}
	}
	_, err := r.exec(ctx, `
INSERT INTO scanner_heartbeats(heartbeat_id, scanner_id, received_at_ms, uptime_ms, fw_version, wifi_rssi, ip)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.ScannerID,
		toMs(rec.ReceivedAt),
		int64(rec.Request.UptimeSeconds)*1000,
		rec.Request.FirmwareVersion,
		rssi,
		rec.Request.IP,
	)
	return mapWriteErr("insert heartbeat", err)
}

// PruneHeartbeatsBefore deletes heartbeats received strictly before cutoff.
func (s *Store) PruneHeartbeatsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.dialect.Rebind(`DELETE FROM scanner_heartbeats WHERE received_at_ms < ?`),
			cutoff.UTC().UnixMilli(),
		)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune heartbeats: %w", err)
	}
	return deleted, nil
}
