// Package query implements the read/mutate surface every CLI command
// other than "store" and "watch" is built from (C8): list, decode,
// delete, wipe, stats. See spec §4.8.
package query

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"

	"github.com/NotAShelf/stash/internal/store"
	"github.com/NotAShelf/stash/internal/tsv"
)

// Format selects list's output rendering.
type Format string

// Formats list understands (spec §6 grammar, SPEC_FULL §6 supplement).
const (
	FormatTSV   Format = "tsv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ResolveFormat applies the auto-selection rule: an explicit format
// always wins; otherwise table when stdout is a terminal, tsv when it
// is not (SPEC_FULL §6).
func ResolveFormat(explicit string, isTerminal bool) Format {
	switch Format(explicit) {
	case FormatTSV, FormatJSON, FormatTable:
		return Format(explicit)
	}

	if isTerminal {
		return FormatTable
	}

	return FormatTSV
}

// ListOptions configures List.
type ListOptions struct {
	Format         Format
	IncludeExpired bool
	Limit          int
	PreviewWidth   int
}

// entryJSON is the ndjson wire shape for --format json; it omits the
// raw payload so listing large blobs of clipboard history doesn't dump
// megabytes of base64 to a log pipeline (SPEC_FULL §6).
type entryJSON struct {
	ID         int64  `json:"id"`
	CreatedAt  int64  `json:"created_at"`
	Mime       string `json:"mime"`
	Preview    string `json:"preview"`
	SourceApp  string `json:"source_app,omitempty"`
	TTLSeconds *int64 `json:"ttl_seconds,omitempty"`
	IsExpired  bool   `json:"is_expired"`
	Bytes      int    `json:"bytes"`
}

// List writes entries matching opts to w in the requested format.
func List(ctx context.Context, s *store.Store, w io.Writer, opts ListOptions) error {
	filter := store.ListFilter{IncludeExpired: opts.IncludeExpired, Limit: opts.Limit}

	switch opts.Format {
	case FormatJSON:
		return listJSON(ctx, s, w, filter)
	case FormatTable:
		return listTable(ctx, s, w, filter, opts.PreviewWidth)
	default:
		return tsv.Encode(w, s.List(ctx, filter))
	}
}

func listJSON(ctx context.Context, s *store.Store, w io.Writer, filter store.ListFilter) error {
	enc := json.NewEncoder(w)

	for entry, err := range s.List(ctx, filter) {
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		rec := entryJSON{
			ID:         entry.ID,
			CreatedAt:  entry.CreatedAt.Unix(),
			Mime:       entry.Mime,
			Preview:    entry.Preview,
			SourceApp:  entry.SourceApp,
			TTLSeconds: entry.TTLSeconds,
			IsExpired:  entry.IsExpired,
			Bytes:      len(entry.Payload),
		}

		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("list: encode: %w", err)
		}
	}

	return nil
}

func listTable(ctx context.Context, s *store.Store, w io.Writer, filter store.ListFilter, previewWidth int) error {
	if previewWidth <= 0 {
		previewWidth = 80
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tCREATED\tMIME\tAPP\tPREVIEW")

	for entry, err := range s.List(ctx, filter) {
		if err != nil {
			_ = tw.Flush()

			return fmt.Errorf("list: %w", err)
		}

		app := entry.SourceApp
		if app == "" {
			app = "-"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			entry.ID,
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.Mime,
			app,
			truncate(entry.Preview, previewWidth),
		)
	}

	return tw.Flush()
}

// truncate bounds s to width terminal columns, not rune count, so a
// preview full of wide (e.g. CJK) characters doesn't blow past
// --preview-width and misalign the table.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}

	if width <= 1 {
		return truncateToWidth(s, width)
	}

	return truncateToWidth(s, width-1) + "…"
}

func truncateToWidth(s string, width int) string {
	var b strings.Builder

	w := 0

	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}

		b.WriteRune(r)
		w += rw
	}

	return b.String()
}

// Decode writes an entry's raw payload to w, byte-exact (spec §4.8).
func Decode(ctx context.Context, s *store.Store, w io.Writer, id int64) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(entry.Payload); err != nil {
		return fmt.Errorf("decode %d: %w", id, err)
	}

	return bw.Flush()
}

// TypeHint disambiguates Delete's argument interpretation.
type TypeHint string

// TypeHint values (spec §4.8/§6 --type flag).
const (
	TypeAuto  TypeHint = ""
	TypeID    TypeHint = "id"
	TypeQuery TypeHint = "query"
)

// Delete interprets arg as a row id when hint is TypeID or (under
// TypeAuto) arg parses unambiguously as an integer; otherwise as a
// preview substring query. It returns the number of rows removed.
func Delete(ctx context.Context, s *store.Store, arg string, hint TypeHint) (int64, error) {
	id, parseErr := strconv.ParseInt(arg, 10, 64)
	numeric := parseErr == nil

	useID := hint == TypeID || (hint == TypeAuto && numeric)
	if hint == TypeQuery {
		useID = false
	}

	if useID {
		removed, err := s.DeleteByID(ctx, id)
		if err != nil {
			return 0, err
		}

		if !removed {
			return 0, nil
		}

		return 1, nil
	}

	return s.DeleteByQuery(ctx, arg)
}

// Wipe deletes all rows, or only expired ones, returning the count
// removed (spec §4.8).
func Wipe(ctx context.Context, s *store.Store, expiredOnly bool) (int64, error) {
	return s.Wipe(ctx, expiredOnly)
}

// PrintStats renders store.Stats as the small table "db stats" prints
// (SPEC_FULL §6).
func PrintStats(w io.Writer, stats store.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "total\t%d\n", stats.Total)
	fmt.Fprintf(tw, "active\t%d\n", stats.Active)
	fmt.Fprintf(tw, "expired\t%d\n", stats.Expired)
	fmt.Fprintf(tw, "bytes\t%d\n", stats.Bytes)
	fmt.Fprintf(tw, "pages\t%d\n", stats.Pages)

	return tw.Flush()
}
