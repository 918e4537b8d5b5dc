// Package persistence owns the SQL connection, schema migrations and the
// user repository.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// Database is a *sql.DB that remembers which dialect it speaks.
type Database struct {
	*sql.DB
	dialect goose.Dialect
}

// Open connects to postgres:// and postgresql:// URLs through pgx and treats
// anything else as a SQLite path, with an optional sqlite:// prefix.
func Open(ctx context.Context, databaseURL string) (*Database, error) {
	driver, dsn, dialect := parseURL(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == goose.DialectSQLite3 {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return &Database{DB: db, dialect: dialect}, nil
}

func parseURL(databaseURL string) (driver, dsn string, dialect goose.Dialect) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL, goose.DialectPostgres
	default:
		path := strings.TrimPrefix(databaseURL, "sqlite:///")
		if path == databaseURL {
			path = strings.TrimPrefix(databaseURL, "sqlite://")
		}
		if path == "" {
			path = ":memory:"
		}
		return "sqlite", path, goose.DialectSQLite3
	}
}

// Dialect reports the goose dialect of the connection.
func (d *Database) Dialect() goose.Dialect {
	return d.dialect
}

// Migrate applies every pending migration for the connection's dialect.
func (d *Database) Migrate(ctx context.Context) ([]string, error) {
	dir := "migrations/sqlite"
	if d.dialect == goose.DialectPostgres {
		dir = "migrations/postgres"
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(d.dialect, d.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	applied := make([]string, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Path)
	}
	return applied, nil
}

// Rebind rewrites ? placeholders into $n for postgres.
func (d *Database) Rebind(query string) string {
	if d.dialect != goose.DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
