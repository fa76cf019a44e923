package store

import (
	"context"
	"errors"
	"fmt"
)

// Stats reports row counts, the history's byte footprint, and the
// database's page count (for "db stats").
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s == nil || s.db == nil {
		return Stats{}, errors.New("stats: store is not open")
	}

	var stats Stats

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_expired = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_expired = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(payload)), 0)
		FROM entries`)

	if err := row.Scan(&stats.Total, &stats.Active, &stats.Expired, &stats.Bytes); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", classifySQLiteError(err))
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&stats.Pages); err != nil {
		return Stats{}, fmt.Errorf("stats: page count: %w", classifySQLiteError(err))
	}

	return stats, nil
}

// Vacuum rebuilds the database file, reclaiming space left by deleted
// and trimmed rows.
func (s *Store) Vacuum(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("vacuum: store is not open")
	}

	return s.withWriteLock(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("vacuum: %w", classifySQLiteError(err))
		}

		return nil
	})
}
