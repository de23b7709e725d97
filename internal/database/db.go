package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL engine behind a DB
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrUnsupportedURL is returned for database URLs with an unknown scheme
var ErrUnsupportedURL = errors.New("unsupported database url")

// DB wraps a connection pool and rewrites queries for the active dialect.
// Queries are written with $N placeholders.
type DB struct {
	*sql.DB
	dialect Dialect
}

// New opens the database named by url and applies the schema.
// postgres:// and postgresql:// use lib/pq; sqlite://path uses an embedded SQLite file.
func New(ctx context.Context, url string) (*DB, error) {
	var (
		db  *DB
		err error
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err = openPostgres(url)
	case strings.HasPrefix(url, "sqlite://"):
		db, err = openSQLite(strings.TrimPrefix(url, "sqlite://"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redactURL(url))
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.initSchema(ctx); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func openPostgres(url string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return &DB{DB: sqlDB, dialect: DialectPostgres}, nil
}

func openSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedURL)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return &DB{DB: sqlDB, dialect: DialectSQLite}, nil
}

// Dialect returns the engine behind db
func (db *DB) Dialect() Dialect {
	return db.dialect
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Rebind rewrites $N placeholders into the form the dialect expects
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectSQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?$1")
}

// ExecContext executes a query after rebinding its placeholders
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.DB.ExecContext(ctx, db.Rebind(query), args...)
}

// QueryContext runs a query after rebinding its placeholders
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.DB.QueryContext(ctx, db.Rebind(query), args...)
}

// QueryRowContext runs a single-row query after rebinding its placeholders
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Rebind(query), args...)
}

// Close closes the underlying pool
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *DB) initSchema(ctx context.Context) error {
	idType, jsonType := "UUID", "JSONB"
	if db.dialect == DialectSQLite {
		idType, jsonType = "TEXT", "TEXT"
		if _, err := db.DB.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
			return fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS profiles (
			user_id %[1]s PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			linkedin TEXT NOT NULL DEFAULT '',
			portfolio TEXT NOT NULL DEFAULT '',
			base_resume_text TEXT NOT NULL DEFAULT '',
			daily_availability INTEGER NOT NULL DEFAULT 0,
			voice_id TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL
		)`, idType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sessions (
			id %[1]s PRIMARY KEY,
			user_id %[1]s NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			messages %[2]s NOT NULL,
			job_description TEXT,
			final_resume TEXT,
			career_goal_data %[2]s,
			last_updated BIGINT NOT NULL
		)`, idType, jsonType),
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_updated ON sessions (user_id, last_updated DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// redactURL drops credentials so a bad URL can be logged safely
func redactURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
