package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) dsn(dsn string) string {
	if d != SQLite || strings.Contains(dsn, "_pragma") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// Store is the ledger's SQL repository. Reads go through the embedded
// Queries; multi-step writes go through InTx.
type Store struct {
	*Queries
	db      *sql.DB
	dialect Dialect
}

// Open connects to the backend, runs migrations and returns a Store.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dialect == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.driverName(), dialect.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer at a time; concurrent callers queue on the pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "Storage ready", "dialect", string(dialect))

	return &Store{Queries: New(db), db: db, dialect: dialect}, nil
}

// OpenSQLite opens a SQLite database file at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	return Open(ctx, SQLite, path)
}

// OpenPostgres opens a PostgreSQL database through pgx.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	return Open(ctx, Postgres, dsn)
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return mapError("ping", "", 0, err)
	}
	return nil
}

// InTx runs fn inside one SQL transaction. Any error returned by fn rolls
// the transaction back; fn must only use the Queries it is given.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", "", 0, err)
	}
	if err := fn(s.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", "", 0, err)
	}
	return nil
}
