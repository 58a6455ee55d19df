package store

import (
	"context"
	"time"

	"github.com/tagwarden/server/internal/tagwarden/types"
)

type User struct {
	ID          string
	Email       string
	Role        types.Role
	DisplayName string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, u User) error
	SetUserActive(ctx context.Context, id string, active bool, at time.Time) error
}
