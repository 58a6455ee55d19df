package service

import (
	"context"
	"sync"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
)

// HeartbeatPruner periodically deletes heartbeat records older than a
// configurable retention period. The audit log is never pruned.
//
// A retention of 0 disables pruning entirely.
type HeartbeatPruner struct {
	store     store.HeartbeatPruneStore
	retention time.Duration
	interval  time.Duration
	options

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// PrunerConfig holds the parameters for NewHeartbeatPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of heartbeat history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewHeartbeatPruner creates a pruner but does not start it.
func NewHeartbeatPruner(s store.HeartbeatPruneStore, cfg PrunerConfig, opts ...Option) *HeartbeatPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &HeartbeatPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		options:   buildOptions(opts),
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *HeartbeatPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.log.Info(ctx, "heartbeat.pruner_disabled")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.log.Info(p.log.WithFields(ctx, map[string]any{
		"retention_days": int(p.retention.Hours() / 24),
		"interval_hours": int(p.interval.Hours()),
	}), "heartbeat.pruner_started")
}

// Stop signals the pruner to exit and waits for it to finish. Safe to call
// more than once.
func (p *HeartbeatPruner) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

func (p *HeartbeatPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PruneOnce(ctx)
		}
	}
}

// PruneOnce deletes everything received before now minus the retention and
// returns the number of rows removed.
func (p *HeartbeatPruner) PruneOnce(ctx context.Context) int64 {
	cutoff := p.now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneHeartbeatsBefore(ctx, cutoff)
	if err != nil {
		p.log.Error(ctx, "heartbeat.prune_failed", err)
		return 0
	}
	p.metrics.AddPruned(deleted)
	if deleted > 0 {
		p.log.Info(p.log.WithFields(ctx, map[string]any{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}), "heartbeat.pruned")
	}
	return deleted
}
