package store

import (
	"context"
	"time"
)

// Grant authorises one user at one scanner. At most one grant exists per
// (UserID, ScannerID); ExpiresAt nil means permanent.
type Grant struct {
	ID        string
	UserID    string
	ScannerID string
	GrantedBy string
	GrantedAt time.Time
	ExpiresAt *time.Time
	Active    bool
	UpdatedAt time.Time
}

// Expired reports whether the grant's expiry is strictly before now.
func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}

type GrantRepository interface {
	GetGrant(ctx context.Context, userID, scannerID string) (Grant, error)
	CreateGrant(ctx context.Context, g Grant) error
	SetGrantActive(ctx context.Context, id string, active bool, at time.Time) error
}
