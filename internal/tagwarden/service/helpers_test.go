package service_test

import (
	"time"

	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/store/memory"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

var now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

const (
	scannerID = "front-door"
	adminID   = "admin-1"
	userID    = "user-1"
	tokenID   = "token-1"
	grantID   = "grant-1"
	tokenUID  = "A1B2C3D4"
)

// newWorld returns a memory store holding one active scanner, an admin, a
// user with one token, and an active permanent grant for that user.
func newWorld() *memory.Store {
	st := memory.New()
	st.PutScanner(store.Scanner{ID: scannerID, Name: "Front door", Direction: types.DirectionBoth, Active: true, CreatedAt: now})
	st.PutUser(store.User{ID: adminID, Email: "admin@example.com", Role: types.RoleAdmin, Active: true, CreatedAt: now})
	st.PutUser(store.User{ID: userID, Email: "alice@example.com", Role: types.RoleUser, Active: true, CreatedAt: now})
	st.PutToken(store.Token{ID: tokenID, UID: tokenUID, UserID: userID, Active: true, CreatedAt: now})
	st.PutGrant(store.Grant{ID: grantID, UserID: userID, ScannerID: scannerID, GrantedBy: adminID, GrantedAt: now, Active: true})
	return st
}
