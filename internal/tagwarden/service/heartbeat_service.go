package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

var ErrScannerNotFound = apperr.New(apperr.CodeNotFound, "scanner not found")

// HeartbeatService records scanner liveness reports. Heartbeats are
// append-only; the scanner row only keeps last_seen_at.
type HeartbeatService struct {
	tx store.TxRunner
	options
}

func NewHeartbeatService(tx store.TxRunner, opts ...Option) *HeartbeatService {
	return &HeartbeatService{tx: tx, options: buildOptions(opts)}
}

func (s *HeartbeatService) Record(ctx context.Context, req types.HeartbeatRequest) (types.HeartbeatResponse, error) {
	scannerID := strings.TrimSpace(req.Scanner)
	if scannerID == "" {
		return types.HeartbeatResponse{}, ErrMissingScanner
	}
	req.Scanner = scannerID

	now := s.now().UTC()
	ctx = s.log.WithScannerID(ctx, scannerID)

	var scanner store.Scanner
	err := s.tx.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		scanner, err = tx.Scanners.GetScanner(ctx, scannerID)
		if err != nil {
			return err
		}
		if err := tx.Heartbeats.InsertHeartbeat(ctx, store.HeartbeatRecord{
			ScannerID:  scannerID,
			ReceivedAt: now,
			Request:    req,
		}); err != nil {
			return err
		}
		return tx.Scanners.MarkScannerSeen(ctx, scannerID, now)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.metrics.IncHeartbeat(false)
		s.log.Warn(ctx, "heartbeat.unknown_scanner")
		return types.HeartbeatResponse{}, ErrScannerNotFound
	case err != nil:
		s.log.Error(s.log.WithFields(ctx, apperr.Dump(err).Fields()), "heartbeat.record_failed", err)
		return types.HeartbeatResponse{}, apperr.Wrap(apperr.CodeInternal, err, "record heartbeat")
	}

	s.metrics.IncHeartbeat(true)
	s.log.Debug(s.log.WithFields(ctx, map[string]any{
		"firmware": req.FirmwareVersion,
		"uptime_s": req.UptimeSeconds,
	}), "heartbeat.recorded")

	return types.HeartbeatResponse{
		OK:         true,
		Active:     scanner.Active,
		Scanner:    scannerID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}
