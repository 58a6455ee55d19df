package store

import (
	"context"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/types"
)

type Scanner struct {
	ID          string
	Name        string
	Location    string
	Description string
	Direction   types.Direction
	Active      bool
	LastSeenAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ScannerRepository interface {
	GetScanner(ctx context.Context, id string) (Scanner, error)
	CreateScanner(ctx context.Context, s Scanner) error
	SetScannerActive(ctx context.Context, id string, active bool, at time.Time) error
	MarkScannerSeen(ctx context.Context, id string, at time.Time) error
}
