// ABOUTME: SQLite backend using modernc.org/sqlite, one row per collection document
// ABOUTME: Provides automatic schema creation and atomic single-row document replacement

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores collection documents in a SQLite database.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteBackend opens (or creates) the database at path.
// Parent directories are created if needed.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	logger := slog.Default().With("component", "store.sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps pragmas in effect and, for :memory:,
	// keeps every caller on the same database.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	b := &SQLiteBackend{db: db, logger: logger}
	if err := b.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite backend initialized", "path", path)
	return b, nil
}

func (b *SQLiteBackend) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			document   TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	var doc string
	err := b.db.QueryRowContext(ctx,
		`SELECT document FROM collections WHERE name = ?`, string(c),
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c, err)
	}
	return []byte(doc), nil
}

func (b *SQLiteBackend) Save(ctx context.Context, c Collection, doc []byte) error {
	query := `
		INSERT INTO collections (name, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	_, err := b.db.ExecContext(ctx, query,
		string(c),
		string(doc),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", c, err)
	}

	b.logger.Debug("saved collection", "collection", c, "bytes", len(doc))
	return nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	b.logger.Info("closing SQLite backend")
	return b.db.Close()
}

var _ Backend = (*SQLiteBackend)(nil)
