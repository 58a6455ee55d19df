package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwarden/server/internal/db"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

// ── Round trips ──

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	checkRoundTrip(t, s, newFixture(""))
}

// checkRoundTrip is shared with the Postgres test.
func checkRoundTrip(t *testing.T, s interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
}, f fixture) {
	t.Helper()
	ctx := context.Background()

	var (
		sc  store.Scanner
		u   store.User
		tok store.Token
		g   store.Grant
	)
	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if sc, err = tx.Scanners.GetScanner(ctx, f.scanner.ID); err != nil {
			return err
		}
		if u, err = tx.Users.GetUser(ctx, f.user.ID); err != nil {
			return err
		}
		if tok, err = tx.Tokens.GetTokenByUID(ctx, f.token.UID); err != nil {
			return err
		}
		g, err = tx.Grants.GetGrant(ctx, f.user.ID, f.scanner.ID)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, f.scanner.Name, sc.Name)
	assert.Equal(t, types.DirectionEntry, sc.Direction)
	assert.True(t, sc.Active)
	assert.Nil(t, sc.LastSeenAt)
	assert.True(t, sc.CreatedAt.Equal(t0))

	assert.Equal(t, f.user.Email, u.Email)
	assert.Equal(t, types.RoleUser, u.Role)
	assert.Equal(t, "Alice", u.DisplayName)

	assert.Equal(t, f.token.ID, tok.ID)
	assert.Equal(t, f.user.ID, tok.UserID)
	assert.Nil(t, tok.LastUsedAt)

	assert.Equal(t, f.grant.ID, g.ID)
	assert.Equal(t, f.admin.ID, g.GrantedBy)
	assert.Nil(t, g.ExpiresAt)
	assert.True(t, g.Active)
}

func TestStore_GetMissingRowsReturnErrNotFound(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)

	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Scanners.GetScanner(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Tokens.GetTokenByUID(ctx, "DEADBEEF")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Users.GetUser(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.Grants.GetGrant(ctx, "nope", "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, tx.Tokens.SetTokenActive(ctx, "nope", false, t0), store.ErrNotFound)
		assert.ErrorIs(t, tx.Scanners.MarkScannerSeen(ctx, "nope", t0), store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

// ── Constraints ──

func TestStore_DuplicatesMapToErrConflict(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	f := newFixture("")
	seedFixture(t, s, f)
	ctx := context.Background()

	dupToken := f.token
	dupToken.ID = "token-2"
	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Tokens.CreateToken(ctx, dupToken)
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	dupGrant := f.grant
	dupGrant.ID = "grant-2"
	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Grants.CreateGrant(ctx, dupGrant)
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	dupUser := f.user
	dupUser.ID = "user-2"
	dupUser.Email = "ALICE@example.com"
	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Users.CreateUser(ctx, dupUser)
	})
	assert.ErrorIs(t, err, store.ErrConflict, "email uniqueness ignores case")
}

func TestStore_TokenForUnknownUserIsErrNotFound(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)

	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Tokens.CreateToken(ctx, store.Token{ID: "t", UID: "AA", UserID: "ghost", Active: true})
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ── Transactions ──

func TestStore_InTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	f := newFixture("")
	seedFixture(t, s, f)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.AuditLog.AppendAccessLog(ctx, store.AccessLogRecord{
			ScannerID: f.scanner.ID, RawUID: "X", CreatedAt: t0,
		}); err != nil {
			return err
		}
		if err := tx.Tokens.TouchTokenLastUsed(ctx, f.token.ID, t0); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	logs, err := s.ListAccessLog(ctx, store.AccessLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)

	var tok store.Token
	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		tok, err = tx.Tokens.GetTokenByUID(ctx, f.token.UID)
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, tok.LastUsedAt)
}

func TestStore_ActiveFlagsAndTimestamps(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	f := newFixture("")
	seedFixture(t, s, f)
	ctx := context.Background()
	later := t0.Add(time.Hour)
	expires := t0.Add(24 * time.Hour)

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		steps := []func() error{
			func() error { return tx.Scanners.SetScannerActive(ctx, f.scanner.ID, false, later) },
			func() error { return tx.Scanners.MarkScannerSeen(ctx, f.scanner.ID, later) },
			func() error { return tx.Users.SetUserActive(ctx, f.user.ID, false, later) },
			func() error { return tx.Tokens.SetTokenActive(ctx, f.token.ID, false, later) },
			func() error { return tx.Tokens.TouchTokenLastUsed(ctx, f.token.ID, later) },
			func() error { return tx.Grants.SetGrantActive(ctx, f.grant.ID, false, later) },
			func() error {
				return tx.Grants.CreateGrant(ctx, store.Grant{
					ID: "grant-exp", UserID: f.admin.ID, ScannerID: f.scanner.ID,
					GrantedBy: f.admin.ID, GrantedAt: t0, ExpiresAt: &expires, Active: true,
				})
			},
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	}))

	var (
		sc    store.Scanner
		u     store.User
		tok   store.Token
		g, eg store.Grant
	)
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if sc, err = tx.Scanners.GetScanner(ctx, f.scanner.ID); err != nil {
			return err
		}
		if u, err = tx.Users.GetUser(ctx, f.user.ID); err != nil {
			return err
		}
		if tok, err = tx.Tokens.GetTokenByUID(ctx, f.token.UID); err != nil {
			return err
		}
		if g, err = tx.Grants.GetGrant(ctx, f.user.ID, f.scanner.ID); err != nil {
			return err
		}
		eg, err = tx.Grants.GetGrant(ctx, f.admin.ID, f.scanner.ID)
		return err
	}))

	assert.False(t, sc.Active)
	require.NotNil(t, sc.LastSeenAt)
	assert.True(t, sc.LastSeenAt.Equal(later))
	assert.True(t, sc.UpdatedAt.Equal(later))

	assert.False(t, u.Active)

	assert.False(t, tok.Active)
	require.NotNil(t, tok.LastUsedAt)
	assert.True(t, tok.LastUsedAt.Equal(later))

	assert.False(t, g.Active)

	require.NotNil(t, eg.ExpiresAt)
	assert.True(t, eg.ExpiresAt.Equal(expires))
	assert.True(t, eg.Expired(expires.Add(time.Millisecond)))
	assert.False(t, eg.Expired(expires))
}

// ── Access log ──

func TestStore_AccessLog_NewestFirstWithFilterAndLimit(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	f := newFixture("")
	seedFixture(t, s, f)
	ctx := context.Background()

	other := store.Scanner{ID: "scanner-2", Name: "Back door", Active: true, CreatedAt: t0}
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Scanners.CreateScanner(ctx, other); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			if err := tx.AuditLog.AppendAccessLog(ctx, store.AccessLogRecord{
				TokenID: f.token.ID, ScannerID: f.scanner.ID, Granted: true,
				RawUID: f.token.UID, CreatedAt: t0.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return tx.AuditLog.AppendAccessLog(ctx, store.AccessLogRecord{
			ScannerID: other.ID, RawUID: "FFFF", DenialReason: "token not found",
			CreatedAt: t0.Add(10 * time.Second),
		})
	}))

	all, err := s.ListAccessLog(ctx, store.AccessLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, other.ID, all[0].ScannerID)
	assert.Empty(t, all[0].TokenID, "unknown uid logs a null token")
	assert.Equal(t, "token not found", all[0].DenialReason)
	assert.False(t, all[0].Granted)
	assert.NotEmpty(t, all[0].ID)

	filtered, err := s.ListAccessLog(ctx, store.AccessLogFilter{ScannerID: f.scanner.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.True(t, filtered[0].CreatedAt.Equal(t0.Add(2*time.Second)))
	assert.True(t, filtered[1].CreatedAt.Equal(t0.Add(time.Second)))
	assert.True(t, filtered[0].Granted)
	assert.Empty(t, filtered[0].DenialReason)
}

// ── Heartbeats ──

func TestStore_Heartbeats_InsertAndPrune(t *testing.T) {
	conn := openTestDB(t)
	s := newTestStore(t, conn, db.SQLite)
	f := newFixture("")
	seedFixture(t, s, f)
	ctx := context.Background()
	rssi := -61

	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i, at := range []time.Time{t0.Add(-48 * time.Hour), t0.Add(-time.Hour), t0} {
			err := tx.Heartbeats.InsertHeartbeat(ctx, store.HeartbeatRecord{
				ScannerID:  f.scanner.ID,
				ReceivedAt: at,
				Request: types.HeartbeatRequest{
					Scanner: f.scanner.ID, FirmwareVersion: "1.4.0",
					UptimeSeconds: uint64(i + 1), RSSIDbm: &rssi, IP: "10.0.0.7",
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	var (
		uptimeMs int64
		fw       string
		gotRSSI  int
	)
	require.NoError(t, conn.QueryRow(
		`SELECT uptime_ms, fw_version, wifi_rssi FROM scanner_heartbeats ORDER BY received_at_ms DESC LIMIT 1`,
	).Scan(&uptimeMs, &fw, &gotRSSI))
	assert.Equal(t, int64(3000), uptimeMs)
	assert.Equal(t, "1.4.0", fw)
	assert.Equal(t, -61, gotRSSI)

	deleted, err := s.PruneHeartbeatsBefore(ctx, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM scanner_heartbeats`).Scan(&remaining))
	assert.Equal(t, 2, remaining)
}

// ── Seed ──

func TestSeedDev_IsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	s := newTestStore(t, conn, db.SQLite)
	ctx := context.Background()

	require.NoError(t, db.SeedDev(ctx, conn, db.SQLite))
	require.NoError(t, db.SeedDev(ctx, conn, db.SQLite))

	var (
		tok store.Token
		g   store.Grant
	)
	require.NoError(t, s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if tok, err = tx.Tokens.GetTokenByUID(ctx, db.DevTokenUID); err != nil {
			return err
		}
		g, err = tx.Grants.GetGrant(ctx, db.DevUserID, db.DevScannerID)
		return err
	}))
	assert.Equal(t, db.DevUserID, tok.UserID)
	assert.True(t, g.Active)
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t, openTestDB(t), db.SQLite)
	assert.NoError(t, s.Ping(context.Background()))
}
