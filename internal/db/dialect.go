package db

import (
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
)

// Dialect captures the few places where SQLite and Postgres differ for the
// queries this server issues.
type Dialect struct {
	Name string // "sqlite" | "postgres"
}

var (
	SQLite   = Dialect{Name: "sqlite"}
	Postgres = Dialect{Name: "postgres"}
)

func DialectFor(driver string) Dialect {
	if strings.EqualFold(driver, Postgres.Name) {
		return Postgres
	}
	return SQLite
}

// Rebind rewrites '?' placeholders to '$n' for Postgres. Queries must not
// contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres.Name {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Dialect) driverName() string {
	if d.Name == Postgres.Name {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() goose.Dialect {
	if d.Name == Postgres.Name {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}
