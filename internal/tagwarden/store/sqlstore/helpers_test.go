package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tagwarden/server/internal/db"
	"github.com/tagwarden/server/internal/tagwarden/store"
	"github.com/tagwarden/server/internal/tagwarden/store/sqlstore"
	"github.com/tagwarden/server/internal/tagwarden/types"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production. The connection is closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the database alive while the pool holds a conn.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.Ping())
	require.NoError(t, db.Migrate(context.Background(), conn, db.SQLite))
	db.ApplyPool(conn, db.SQLite, 0)
	return conn
}

// newTestStore wires a Store over conn with a single-writer worker.
func newTestStore(t *testing.T, conn *sql.DB, d db.Dialect) *sqlstore.Store {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return sqlstore.New(conn, w, d)
}

var t0 = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	scanner store.Scanner
	admin   store.User
	user    store.User
	token   store.Token
	grant   store.Grant
}

func newFixture(prefix string) fixture {
	return fixture{
		scanner: store.Scanner{
			ID: prefix + "scanner-1", Name: "Front door", Direction: types.DirectionEntry,
			Active: true, CreatedAt: t0, UpdatedAt: t0,
		},
		admin: store.User{
			ID: prefix + "admin-1", Email: prefix + "admin@example.com", Role: types.RoleAdmin,
			Active: true, CreatedAt: t0, UpdatedAt: t0,
		},
		user: store.User{
			ID: prefix + "user-1", Email: prefix + "alice@example.com", Role: types.RoleUser,
			DisplayName: "Alice", Active: true, CreatedAt: t0, UpdatedAt: t0,
		},
		token: store.Token{
			ID: prefix + "token-1", UID: strings.ToUpper(prefix) + "A1B2C3D4", UserID: prefix + "user-1",
			Name: "blue fob", Active: true, CreatedAt: t0, UpdatedAt: t0,
		},
		grant: store.Grant{
			ID: prefix + "grant-1", UserID: prefix + "user-1", ScannerID: prefix + "scanner-1",
			GrantedBy: prefix + "admin-1", GrantedAt: t0, Active: true, UpdatedAt: t0,
		},
	}
}

func seedFixture(t *testing.T, s *sqlstore.Store, f fixture) {
	t.Helper()

	err := s.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.Scanners.CreateScanner(ctx, f.scanner); err != nil {
			return err
		}
		if err := tx.Users.CreateUser(ctx, f.admin); err != nil {
			return err
		}
		if err := tx.Users.CreateUser(ctx, f.user); err != nil {
			return err
		}
		if err := tx.Tokens.CreateToken(ctx, f.token); err != nil {
			return err
		}
		return tx.Grants.CreateGrant(ctx, f.grant)
	})
	require.NoError(t, err)
}
