// Package reaper implements the expiry reaper (C7): periodically
// flips expired rows and clears the live selection if it still holds
// one of them. See spec §4.7, property P5/P6.
package reaper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/clipboard"
	"github.com/NotAShelf/stash/internal/store"
)

// DefaultPeriod is the reaper's default tick interval (spec §4.7/P5).
const DefaultPeriod = 30 * time.Second

// Reaper ties the store's expiry bookkeeping to the live clipboard
// selection.
type Reaper struct {
	log   *zap.Logger
	store *store.Store
	gw    *clipboard.Gateway
}

// New returns a Reaper. gw may be nil, in which case Tick only marks
// rows expired and never attempts to clear a selection (used by the
// tests, which run without a live compositor connection).
func New(log *zap.Logger, s *store.Store, gw *clipboard.Gateway) *Reaper {
	return &Reaper{log: log, store: s, gw: gw}
}

// Tick marks every row whose ttl has elapsed as of now as expired,
// then — if any were — checks whether the live selection's content
// hash matches one of them, clearing it on the first match (spec §4.7:
// at most one clear per cycle, since the selection can only hold one
// value).
func (r *Reaper) Tick(ctx context.Context, now time.Time) error {
	ids, err := r.store.MarkExpired(ctx, now.Unix())
	if err != nil {
		return fmt.Errorf("reaper: mark expired: %w", err)
	}

	if len(ids) == 0 || r.gw == nil {
		return nil
	}

	_, payload, err := r.gw.Read(ctx, clipboard.PreferenceAny)
	if err != nil {
		if errors.Is(err, clipboard.ErrNoOffer) || errors.Is(err, clipboard.ErrReadTimeout) {
			return nil
		}

		return fmt.Errorf("reaper: read live selection: %w", err)
	}

	liveHash := store.ContentHash(payload)

	for _, id := range ids {
		entry, err := r.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}

			return fmt.Errorf("reaper: get %d: %w", id, err)
		}

		if bytes.Equal(entry.ContentHash, liveHash) {
			if err := r.gw.Clear(); err != nil {
				return fmt.Errorf("reaper: clear selection: %w", err)
			}

			r.log.Info("expired entry cleared from live selection", zap.Int64("id", id))

			return nil
		}
	}

	return nil
}
