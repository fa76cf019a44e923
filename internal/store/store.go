// Package store implements stash's durable clipboard history: schema,
// dedup, trim, expiry, and the transactional CRUD surface every other
// component builds on. See spec §4.1.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/NotAShelf/stash/internal/fs"
)

// lockTimeout bounds how long each mutating operation waits for the
// write lock described on Store below.
const lockTimeout = 10 * time.Second

// Store wires a SQLite connection to a write lock: every mutating
// operation first takes an exclusive flock on "<db path>.lock" via
// [fs.Locker], waiting up to lockTimeout and failing with
// [ErrStoreBusy] on timeout. Because flock is per open file, the lock
// serializes writers both within this process and across stash
// processes sharing the same database path, in front of SQLite's own
// file locking (spec §3 invariant 6).
type Store struct {
	db       *sql.DB
	opts     Options
	locker   *fs.Locker
	lockPath string
}

// Open creates the database file and schema if missing, or opens the
// existing one. Corruption detected at this point fails with
// [ErrStoreCorrupt]; Stash never attempts repair (spec §4.1).
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}

	if path == "" {
		return nil, errors.New("open store: path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	realFS := fs.NewReal()

	return &Store{
		db:       db,
		opts:     opts,
		locker:   fs.NewLocker(realFS),
		lockPath: path + ".lock",
	}, nil
}

// Close releases the database handle. Safe to call on a nil Store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	return err
}

// withWriteLock runs fn while holding the "<db path>.lock" flock, which
// serializes mutating operations within and across stash processes.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock, err := s.locker.LockWithTimeout(s.lockPath, lockTimeout)
	if err != nil {
		if errors.Is(err, fs.ErrWouldBlock) {
			return fmt.Errorf("%w: %w", ErrStoreBusy, err)
		}

		return fmt.Errorf("acquire write lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	return fn()
}

// Insert hashes the candidate's payload, rejects it as a duplicate if
// a match exists within the dedup window (spec §4.1, invariant 2), and
// otherwise commits it and trims the oldest active rows back under
// MaxItems in the same transaction (invariant 5).
func (s *Store) Insert(ctx context.Context, candidate Candidate) (InsertResult, error) {
	if s == nil || s.db == nil {
		return InsertResult{}, errors.New("insert: store is not open")
	}

	var result InsertResult

	err := s.withWriteLock(ctx, func() error {
		hash := ContentHash(candidate.Payload)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("insert: begin: %w", classifySQLiteError(err))
		}

		committed := false

		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		if s.opts.MaxDedupeSearch > 0 {
			dupID, found, err := findDuplicate(ctx, tx, hash, s.opts.MaxDedupeSearch)
			if err != nil {
				return err
			}

			if found {
				result = InsertResult{Duplicate: true, DuplicateID: dupID}

				return tx.Commit()
			}
		}

		id, err := insertRow(ctx, tx, candidate, hash)
		if err != nil {
			return err
		}

		if s.opts.MaxItems > 0 {
			if _, err := trimToLocked(ctx, tx, s.opts.MaxItems); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("insert: commit: %w", classifySQLiteError(err))
		}

		committed = true
		result = InsertResult{ID: id}

		return nil
	})
	if err != nil {
		return InsertResult{}, err
	}

	return result, nil
}

func findDuplicate(ctx context.Context, tx *sql.Tx, hash []byte, window int) (int64, bool, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, content_hash FROM entries
		WHERE is_expired = 0
		ORDER BY id DESC
		LIMIT ?`, window)
	if err != nil {
		return 0, false, fmt.Errorf("insert: dedup probe: %w", classifySQLiteError(err))
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id           int64
			existingHash []byte
		)

		if err := rows.Scan(&id, &existingHash); err != nil {
			return 0, false, fmt.Errorf("insert: dedup scan: %w", err)
		}

		if bytes.Equal(existingHash, hash) {
			return id, true, nil
		}
	}

	if err := rows.Err(); err != nil {
		return 0, false, fmt.Errorf("insert: dedup rows: %w", err)
	}

	return 0, false, nil
}

func insertRow(ctx context.Context, tx *sql.Tx, candidate Candidate, hash []byte) (int64, error) {
	var ttl sql.NullInt64
	if candidate.TTLSeconds != nil {
		ttl = sql.NullInt64{Int64: *candidate.TTLSeconds, Valid: true}
	}

	var sourceApp sql.NullString
	if candidate.SourceApp != "" {
		sourceApp = sql.NullString{String: candidate.SourceApp, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO entries (created_at, mime, payload, preview, source_app, ttl_seconds, is_expired, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		time.Now().Unix(), candidate.Mime, candidate.Payload, candidate.Preview, sourceApp, ttl, hash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", classifySQLiteError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert: last insert id: %w", err)
	}

	return id, nil
}

// Get reads a single entry by id.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, errors.New("get: store is not open")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, mime, payload, preview, source_app, ttl_seconds, is_expired, content_hash
		FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("get %d: %w", id, ErrNotFound)
		}

		return Entry{}, fmt.Errorf("get %d: %w", id, classifySQLiteError(err))
	}

	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry      Entry
		sourceApp  sql.NullString
		ttl        sql.NullInt64
		isExpired  int
		createdAt  int64
	)

	err := row.Scan(
		&entry.ID, &createdAt, &entry.Mime, &entry.Payload, &entry.Preview,
		&sourceApp, &ttl, &isExpired, &entry.ContentHash,
	)
	if err != nil {
		return Entry{}, err
	}

	entry.CreatedAt = time.Unix(createdAt, 0).UTC()
	entry.IsExpired = isExpired != 0

	if sourceApp.Valid {
		entry.SourceApp = sourceApp.String
	}

	if ttl.Valid {
		v := ttl.Int64
		entry.TTLSeconds = &v
	}

	return entry, nil
}
