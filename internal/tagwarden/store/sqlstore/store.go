// Package sqlstore implements the store interfaces on database/sql. The same
// queries run on SQLite and Postgres; placeholders are rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/tagwarden/server/internal/db"
	"github.com/tagwarden/server/internal/tagwarden/store"
)

type Store struct {
	db      *sql.DB
	writer  *dbpkg.Worker
	dialect dbpkg.Dialect
}

func New(db *sql.DB, writer *dbpkg.Worker, dialect dbpkg.Dialect) *Store {
	return &Store{db: db, writer: writer, dialect: dialect}
}

// InTx runs fn on the writer pool. Every repository in the store.Tx shares
// the same *sql.Tx.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.writer.Do(ctx, func(ctx context.Context, sqlTx *sql.Tx) error {
		r := &txRepos{tx: sqlTx, d: s.dialect}
		return fn(ctx, store.Tx{
			Scanners:   r,
			Tokens:     r,
			Users:      r,
			Grants:     r,
			AuditLog:   r,
			Heartbeats: r,
		})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// txRepos is the set of repositories bound to one transaction.
type txRepos struct {
	tx *sql.Tx
	d  dbpkg.Dialect
}

func (r *txRepos) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.tx.ExecContext(ctx, r.d.Rebind(query), args...)
}

func (r *txRepos) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.tx.QueryRowContext(ctx, r.d.Rebind(query), args...)
}

// requireOne maps a zero-row UPDATE to store.ErrNotFound.
func requireOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// mapWriteErr turns driver constraint errors into store sentinels.
func mapWriteErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case dbpkg.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	case dbpkg.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func mapReadErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func toMs(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixMilli()
}

func fromMs(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMs(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}

func fromNullMs(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMs(n.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ store.TxRunner            = (*Store)(nil)
	_ store.AuditLogReader      = (*Store)(nil)
	_ store.HeartbeatPruneStore = (*Store)(nil)
	_ store.Pinger              = (*Store)(nil)

	_ store.ScannerRepository = (*txRepos)(nil)
	_ store.TokenRepository   = (*txRepos)(nil)
	_ store.UserRepository    = (*txRepos)(nil)
	_ store.GrantRepository   = (*txRepos)(nil)
	_ store.AuditLogWriter    = (*txRepos)(nil)
	_ store.HeartbeatWriter   = (*txRepos)(nil)
)
