package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
)

// List returns a lazy sequence of entries matching filter, newest
// first. The sequence stops early if the consumer's yield returns
// false, and surfaces a scan/query error as its second value exactly
// once before stopping.
func (s *Store) List(ctx context.Context, filter ListFilter) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if s == nil || s.db == nil {
			yield(Entry{}, errors.New("list: store is not open"))

			return
		}

		clauses := make([]string, 0, 2)
		args := make([]any, 0, 2)

		if !filter.IncludeExpired {
			clauses = append(clauses, "is_expired = 0")
		}

		if filter.PreviewSubstring != "" {
			clauses = append(clauses, "preview LIKE ?")
			args = append(args, "%"+filter.PreviewSubstring+"%")
		}

		query := strings.Builder{}
		query.WriteString(`
			SELECT id, created_at, mime, payload, preview, source_app, ttl_seconds, is_expired, content_hash
			FROM entries`)

		if len(clauses) > 0 {
			query.WriteString(" WHERE ")
			query.WriteString(strings.Join(clauses, " AND "))
		}

		query.WriteString(" ORDER BY id DESC")

		if filter.Limit > 0 {
			query.WriteString(" LIMIT ?")

			args = append(args, filter.Limit)
		}

		rows, err := s.db.QueryContext(ctx, query.String(), args...)
		if err != nil {
			yield(Entry{}, fmt.Errorf("list: %w", classifySQLiteError(err)))

			return
		}

		defer func() { _ = rows.Close() }()

		for rows.Next() {
			entry, err := scanEntry(rows)
			if err != nil {
				yield(Entry{}, fmt.Errorf("list: scan: %w", err))

				return
			}

			if !yield(entry, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("list: rows: %w", err))
		}
	}
}

// DeleteByID removes a single row. Reports whether a row was removed.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("delete: store is not open")
	}

	var removed bool

	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete %d: %w", id, classifySQLiteError(err))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete %d: rows affected: %w", id, err)
		}

		removed = n > 0

		return nil
	})

	return removed, err
}

// DeleteByQuery removes every row whose preview contains substring,
// returning the number removed.
func (s *Store) DeleteByQuery(ctx context.Context, substring string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("delete: store is not open")
	}

	var count int64

	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE preview LIKE ?", "%"+substring+"%")
		if err != nil {
			return fmt.Errorf("delete query %q: %w", substring, classifySQLiteError(err))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete query %q: rows affected: %w", substring, err)
		}

		count = n

		return nil
	})

	return count, err
}

// Wipe deletes all rows (scope=false) or only expired rows
// (scope=true), returning the number removed.
func (s *Store) Wipe(ctx context.Context, expiredOnly bool) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("wipe: store is not open")
	}

	query := "DELETE FROM entries"
	if expiredOnly {
		query = "DELETE FROM entries WHERE is_expired = 1"
	}

	var count int64

	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("wipe: %w", classifySQLiteError(err))
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("wipe: rows affected: %w", err)
		}

		count = n

		return nil
	})

	return count, err
}

// MarkExpired flips is_expired for every active row whose ttl has
// elapsed as of now, in one transaction, and returns the affected ids
// ordered by id ascending (the order the reaper must check against the
// live selection, per spec §4.7).
func (s *Store) MarkExpired(ctx context.Context, now int64) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("mark expired: store is not open")
	}

	var ids []int64

	err := s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("mark expired: begin: %w", classifySQLiteError(err))
		}

		committed := false

		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM entries
			WHERE ttl_seconds IS NOT NULL AND is_expired = 0 AND created_at + ttl_seconds <= ?
			ORDER BY id ASC`, now)
		if err != nil {
			return fmt.Errorf("mark expired: select: %w", classifySQLiteError(err))
		}

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()

				return fmt.Errorf("mark expired: scan: %w", err)
			}

			ids = append(ids, id)
		}

		rowsErr := rows.Err()

		_ = rows.Close()

		if rowsErr != nil {
			return fmt.Errorf("mark expired: rows: %w", rowsErr)
		}

		if len(ids) > 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE entries SET is_expired = 1
				WHERE ttl_seconds IS NOT NULL AND is_expired = 0 AND created_at + ttl_seconds <= ?`, now); err != nil {
				return fmt.Errorf("mark expired: update: %w", classifySQLiteError(err))
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("mark expired: commit: %w", classifySQLiteError(err))
		}

		committed = true

		return nil
	})

	return ids, err
}

// TrimTo deletes the oldest active rows until the active count is at
// most maxItems, returning the removed ids. Expired rows are never
// touched (spec §4.1 trim policy).
func (s *Store) TrimTo(ctx context.Context, maxItems int) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("trim: store is not open")
	}

	var ids []int64

	err := s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("trim: begin: %w", classifySQLiteError(err))
		}

		committed := false

		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()

		ids, err = trimToLocked(ctx, tx, maxItems)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("trim: commit: %w", classifySQLiteError(err))
		}

		committed = true

		return nil
	})

	return ids, err
}

func trimToLocked(ctx context.Context, tx *sql.Tx, maxItems int) ([]int64, error) {
	if maxItems <= 0 {
		return nil, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM entries
		WHERE is_expired = 0
		ORDER BY id ASC
		LIMIT MAX(0, (SELECT COUNT(*) FROM entries WHERE is_expired = 0) - ?)`, maxItems)
	if err != nil {
		return nil, fmt.Errorf("trim: select: %w", classifySQLiteError(err))
	}

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()

			return nil, fmt.Errorf("trim: scan: %w", err)
		}

		ids = append(ids, id)
	}

	rowsErr := rows.Err()

	_ = rows.Close()

	if rowsErr != nil {
		return nil, fmt.Errorf("trim: rows: %w", rowsErr)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))

	for i, id := range ids {
		args[i] = id
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id IN ("+placeholders+")", args...); err != nil {
		return nil, fmt.Errorf("trim: delete: %w", classifySQLiteError(err))
	}

	return ids, nil
}
