package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// sqliteBusyTimeoutMS is how long SQLite waits for the writer lock
// before returning SQLITE_BUSY. Paired with WAL mode below.
const sqliteBusyTimeoutMS = 10000

// openSQLite opens the history database and applies the durability
// pragmas. WAL mode lets readers (list/decode/stats) proceed without
// blocking on the single writer; synchronous=FULL trades some commit
// latency for not losing committed clipboard history on power loss.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("open store: path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, classifyOpenError(err)
	}

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return db, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
		PRAGMA mmap_size = 268435456;
		PRAGMA cache_size = -20000;
		PRAGMA temp_store = MEMORY;
		PRAGMA foreign_keys = OFF;
	`, sqliteBusyTimeoutMS))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	return nil
}

// ensureSchema creates the entries table and its indexes if they are
// missing. Schema absent is the expected state on first open, not an
// error.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			mime TEXT NOT NULL,
			payload BLOB NOT NULL,
			preview TEXT NOT NULL,
			source_app TEXT,
			ttl_seconds INTEGER,
			is_expired INTEGER NOT NULL DEFAULT 0,
			content_hash BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_expired_id
			ON entries(is_expired, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_content_hash
			ON entries(content_hash)`,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure schema: begin: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: statement %d: %w", i+1, classifySQLiteError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure schema: commit: %w", err)
	}

	committed = true

	return nil
}

// classifyOpenError maps a failed open/ping into the store's own error
// kinds so callers never need to know about sqlite3.Error directly.
func classifyOpenError(err error) error {
	msg := err.Error()

	switch {
	case containsAny(msg, "malformed", "not a database", "file is encrypted or is not a database", "database disk image is malformed"):
		return fmt.Errorf("open store: %w: %w", ErrStoreCorrupt, err)
	case containsAny(msg, "disk I/O error", "no space left"):
		return fmt.Errorf("open store: %w: %w", ErrStoreFull, err)
	default:
		return fmt.Errorf("open store: %w", err)
	}
}

// classifySQLiteError maps a write-time sqlite error into the store's
// own error kinds. The driver reports these as plain strings rather
// than typed sentinels, so classification is substring-based; this is
// intentionally narrow (see go-sqlite3's Error.Error() formatting).
func classifySQLiteError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()

	switch {
	case containsAny(msg, "no space left", "disk full"):
		return fmt.Errorf("%w: %w", ErrStoreFull, err)
	case containsAny(msg, "database is locked", "busy"):
		return fmt.Errorf("%w: %w", ErrStoreBusy, err)
	case containsAny(msg, "malformed", "database disk image is malformed"):
		return fmt.Errorf("%w: %w", ErrStoreCorrupt, err)
	default:
		return err
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
