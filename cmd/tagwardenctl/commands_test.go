package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwarden/server/internal/apperr"
	"github.com/tagwarden/server/internal/tagwarden/service"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/store/memory"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

var now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestCLI(t *testing.T) (*cli, *memory.Store, *bytes.Buffer) {
	t.Helper()
	st := memory.New()
	st.PutUser(store.User{ID: "admin-1", Email: "admin@example.com", Role: types.RoleAdmin, Active: true})
	st.PutUser(store.User{ID: "user-1", Email: "alice@example.com", Role: types.RoleUser, Active: true})

	admin := service.NewAdminService(st, st, service.WithClock(func() time.Time { return now }))
	var out bytes.Buffer
	return newCLI(admin, &out), st, &out
}

func TestUserAdd(t *testing.T) {
	c, _, out := newTestCLI(t)

	err := c.run(context.Background(), []string{"user", "add", "--email", "bob@example.com", "--role", "admin", "--name", "Bob"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "bob@example.com")
	assert.Contains(t, lines[1], "admin")

	err = c.run(context.Background(), []string{"user", "add", "--email", "BOB@example.com"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	err = c.run(context.Background(), []string{"user", "add", "--email", "not-an-email"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestScannerAddAndToggle(t *testing.T) {
	c, st, out := newTestCLI(t)
	ctx := context.Background()

	require.NoError(t, c.run(ctx, []string{"scanner", "add", "--id", "front-door", "--name", "Front door", "--direction", "entry"}))
	assert.Contains(t, out.String(), "front-door")

	sc, ok := st.Scanner("front-door")
	require.True(t, ok)
	assert.True(t, sc.Active)
	assert.Equal(t, types.DirectionEntry, sc.Direction)

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"scanner", "disable", "front-door"}))
	assert.Equal(t, "front-door disabled\n", out.String())
	sc, _ = st.Scanner("front-door")
	assert.False(t, sc.Active)

	require.NoError(t, c.run(ctx, []string{"scanner", "enable", "front-door"}))
	sc, _ = st.Scanner("front-door")
	assert.True(t, sc.Active)

	err := c.run(ctx, []string{"scanner", "disable", "nope"})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	err = c.run(ctx, []string{"scanner", "add", "--name", "Side", "--direction", "sideways"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestTokenAddNormalisesUID(t *testing.T) {
	c, _, out := newTestCLI(t)

	require.NoError(t, c.run(context.Background(), []string{"token", "add", "--uid", "a1:b2:c3:d4", "--user", "user-1", "--name", "blue fob"}))
	assert.Contains(t, out.String(), "A1B2C3D4")

	err := c.run(context.Background(), []string{"token", "add", "--uid", "zz", "--user", "user-1"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = c.run(context.Background(), []string{"token", "add", "--uid", "FF", "--user", "ghost"})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestGrantAdd(t *testing.T) {
	c, st, out := newTestCLI(t)
	ctx := context.Background()
	st.PutScanner(store.Scanner{ID: "front-door", Name: "Front door", Active: true})

	require.NoError(t, c.run(ctx, []string{
		"grant", "add", "--user", "user-1", "--scanner", "front-door", "--by", "admin-1",
		"--expires", "2026-06-01T00:00:00Z",
	}))
	assert.Contains(t, out.String(), "2026-06-01T00:00:00Z")

	err := c.run(ctx, []string{"grant", "add", "--user", "user-1", "--scanner", "front-door", "--by", "admin-1"})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	err = c.run(ctx, []string{"grant", "add", "--user", "admin-1", "--scanner", "front-door", "--by", "user-1"})
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	err = c.run(ctx, []string{"grant", "add", "--user", "user-1", "--scanner", "front-door", "--by", "admin-1", "--expires", "tomorrow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--expires")
}

func TestLogListsNewestFirst(t *testing.T) {
	c, st, out := newTestCLI(t)
	ctx := context.Background()
	st.PutScanner(store.Scanner{ID: "front-door", Name: "Front door", Active: true})
	st.PutScanner(store.Scanner{ID: "back-door", Name: "Back door", Active: true})
	st.PutToken(store.Token{ID: "token-1", UID: "A1B2C3D4", UserID: "user-1", Active: true})
	st.PutGrant(store.Grant{ID: "grant-1", UserID: "user-1", ScannerID: "front-door", GrantedBy: "admin-1", Active: true})

	tick := now
	decider := service.NewDecisionService(st, service.WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))
	for _, tap := range [][2]string{
		{"front-door", "A1B2C3D4"},
		{"front-door", "DEADBEEF"},
		{"back-door", "A1B2C3D4"},
	} {
		_, err := decider.Decide(ctx, tap[0], tap[1])
		require.NoError(t, err)
	}

	require.NoError(t, c.run(ctx, []string{"log", "--scanner", "front-door"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "token not found")
	assert.Contains(t, lines[2], "granted")

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"log", "--limit", "1"}))
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "back-door")
	assert.Contains(t, lines[1], "no access")
}

func TestUsageErrors(t *testing.T) {
	c, _, _ := newTestCLI(t)
	ctx := context.Background()

	for _, args := range [][]string{
		nil,
		{"door"},
		{"user"},
		{"user", "remove", "x"},
		{"token", "disable"},
		{"grant", "enable", "a", "b"},
	} {
		assert.ErrorIs(t, c.run(ctx, args), errUsage, "%v", args)
	}
}
