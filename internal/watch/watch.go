// Package watch implements the watch loop (C6): the single cooperative
// daemon task that ties the focus oracle (C4), clipboard gateway (C5),
// filter (C3), and store (C1) together, and drives the expiry reaper
// (C7) off a timer. See spec §4.6.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/clipboard"
	"github.com/NotAShelf/stash/internal/filter"
	"github.com/NotAShelf/stash/internal/focus"
	"github.com/NotAShelf/stash/internal/reaper"
	"github.com/NotAShelf/stash/internal/store"
)

// maxPreviewRunes bounds the single-line preview stored alongside a
// textual entry (spec §3 "preview").
const maxPreviewRunes = 200

// ClipboardState mirrors the predecessor tool's STASH_CLIPBOARD_STATE
// values (spec §6). DESIGN.md records the resolution of the open
// question around "clear"'s exact scope.
type ClipboardState string

// ClipboardState values.
const (
	ClipboardStateNone      ClipboardState = ""
	ClipboardStateSensitive ClipboardState = "sensitive"
	ClipboardStateClear     ClipboardState = "clear"
)

// Config configures a Watch loop.
type Config struct {
	FilterConfig   filter.Config
	Preference     clipboard.Preference
	ExpireAfter    time.Duration // zero means entries never expire
	ReaperPeriod   time.Duration // zero uses reaper.DefaultPeriod
	ClipboardState ClipboardState
}

// Watch is the running daemon's single cooperative loop.
type Watch struct {
	log    *zap.Logger
	store  *store.Store
	oracle *focus.Oracle
	gw     *clipboard.Gateway
	reaper *reaper.Reaper

	cfg Config

	refuseCapture bool
}

// New builds a Watch loop. If cfg.ClipboardState is ClipboardStateClear,
// the store is wiped once, here, before the loop ever runs — "before
// the next capture" per spec §6.
func New(ctx context.Context, log *zap.Logger, s *store.Store, oracle *focus.Oracle, gw *clipboard.Gateway, cfg Config) (*Watch, error) {
	if cfg.ReaperPeriod <= 0 {
		cfg.ReaperPeriod = reaper.DefaultPeriod
	}

	if cfg.ClipboardState == ClipboardStateClear {
		if _, err := s.Wipe(ctx, false); err != nil {
			return nil, fmt.Errorf("watch: clipboard-state clear wipe: %w", err)
		}
	}

	return &Watch{
		log:           log,
		store:         s,
		oracle:        oracle,
		gw:            gw,
		reaper:        reaper.New(log, s, gw),
		cfg:           cfg,
		refuseCapture: cfg.ClipboardState == ClipboardStateSensitive,
	}, nil
}

// Run drives the loop until ctx is cancelled. It returns nil on a
// clean shutdown; the caller is responsible for closing the store
// after Run returns (spec §4.6: flush, close, exit 0).
func (w *Watch) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.ReaperPeriod)
	defer ticker.Stop()

	changed := w.gw.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if err := w.handleSelectionChanged(ctx); err != nil {
				w.log.Error("capture failed", zap.Error(err))
			}
		case tick := <-ticker.C:
			if err := w.reaper.Tick(ctx, tick); err != nil {
				w.log.Error("reaper tick failed", zap.Error(err))
			}
		}
	}
}

func (w *Watch) handleSelectionChanged(ctx context.Context) error {
	if w.refuseCapture {
		w.log.Info("capture refused", zap.String("reason", "clipboard_state_sensitive"))

		return nil
	}

	sourceApp, _ := w.oracle.Current()

	mime, payload, err := w.gw.Read(ctx, w.cfg.Preference)
	if err != nil {
		if errors.Is(err, clipboard.ErrNoOffer) || errors.Is(err, clipboard.ErrReadTimeout) {
			return nil
		}

		return fmt.Errorf("read selection: %w", err)
	}

	if len(payload) == 0 {
		return nil // invariant 3: empty payloads never reach the store
	}

	reason := filter.Admit(w.cfg.FilterConfig, filter.Candidate{Payload: payload, Mime: mime, SourceApp: sourceApp})
	if reason != filter.ReasonNone {
		w.log.Warn("capture rejected",
			zap.String("reason", string(reason)),
			zap.String("mime", mime),
			zap.Int("size", len(payload)),
		)

		return nil
	}

	candidate := store.Candidate{
		Mime:      mime,
		Payload:   payload,
		Preview:   BuildPreview(mime, payload),
		SourceApp: sourceApp,
	}

	if w.cfg.ExpireAfter > 0 {
		secs := int64(w.cfg.ExpireAfter.Seconds())
		candidate.TTLSeconds = &secs
	}

	// A busy store is retried up to maxStoreBusyRetries more times
	// before the capture is given up.
	const maxStoreBusyRetries = 3

	result, err := w.store.Insert(ctx, candidate)
	for retry := 0; retry < maxStoreBusyRetries && errors.Is(err, store.ErrStoreBusy); retry++ {
		w.log.Warn("store busy, retrying insert", zap.Int("retry", retry+1))

		result, err = w.store.Insert(ctx, candidate)
	}

	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}

	if result.Duplicate {
		w.log.Info("capture skipped",
			zap.String("decision", "duplicate"),
			zap.Int64("duplicate_of", result.DuplicateID),
			zap.String("mime", mime),
			zap.Int("size", len(payload)),
		)

		return nil
	}

	w.log.Info("capture stored",
		zap.String("decision", "inserted"),
		zap.Int64("id", result.ID),
		zap.String("mime", mime),
		zap.Int("size", len(payload)),
		zap.String("source_app", sourceApp),
	)

	return nil
}

// BuildPreview derives the bounded, single-line preview committed
// alongside a payload (spec §3). Textual, valid-UTF-8 payloads are
// truncated and have newlines, carriage returns and tabs replaced by
// spaces; anything else gets a human summary of its size and subtype.
// Exported so the "store" CLI command, which bypasses the watch loop,
// builds the same preview shape.
func BuildPreview(mime string, payload []byte) string {
	if strings.HasPrefix(mime, "text/") && utf8.Valid(payload) {
		return truncateRunes(collapseWhitespace(string(payload)), maxPreviewRunes)
	}

	return fmt.Sprintf("[[ binary data %s %s ]]", humanSize(len(payload)), subtype(mime))
}

func collapseWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		default:
			return r
		}
	}, s)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}

func subtype(mime string) string {
	_, sub, found := strings.Cut(mime, "/")
	if !found {
		return mime
	}

	sub, _, _ = strings.Cut(sub, ";")

	return sub
}

func humanSize(n int) string {
	const unit = 1024

	if n < unit {
		return strconv.Itoa(n) + " B"
	}

	div, exp := int64(unit), 0

	for v := int64(n) / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	units := "KMGTPE"

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), units[exp])
}
