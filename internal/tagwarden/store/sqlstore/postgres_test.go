package sqlstore_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tagwarden/server/internal/db"
)

// TestPostgres_RoundTrip runs against a live server when
// TAGWARDEN_TEST_PG_DSN is set.
func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TAGWARDEN_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TAGWARDEN_TEST_PG_DSN not set")
	}

	conn, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ctx := context.Background()
	require.NoError(t, conn.PingContext(ctx))
	require.NoError(t, db.Migrate(ctx, conn, db.Postgres))

	s := newTestStore(t, conn, db.Postgres)
	f := newFixture(uuid.NewString()[:8] + "-")
	seedFixture(t, s, f)
	checkRoundTrip(t, s, f)
}
