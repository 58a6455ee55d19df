package store

import (
	"context"
	"time"
)

// Token is one physical card or fob. UID is stored upper-cased.
type Token struct {
	ID         string
	UID        string
	UserID     string
	Name       string
	Active     bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TokenRepository interface {
	GetTokenByUID(ctx context.Context, uid string) (Token, error)
	CreateToken(ctx context.Context, t Token) error
	SetTokenActive(ctx context.Context, id string, active bool, at time.Time) error
	TouchTokenLastUsed(ctx context.Context, id string, at time.Time) error
}
