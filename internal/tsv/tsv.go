// Package tsv implements the line-oriented preview/payload interchange
// format used by "list --format tsv" and "import --type tsv". See
// spec §4.2.
package tsv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/NotAShelf/stash/internal/store"
)

// ErrMalformedLine is returned by Decode/Import when a line does not
// split into exactly an id and a preview on the first unescaped tab.
var ErrMalformedLine = errors.New("tsv: malformed line")

// ErrUnsupportedEntry is returned when an entry cannot be represented
// in TSV: a non-text mime, or a payload that is not valid UTF-8.
var ErrUnsupportedEntry = errors.New("tsv: unsupported entry")

// Row is one decoded TSV line, before it has been offered to the
// store.
type Row struct {
	ID      int64
	Preview string
}

// Encode writes one line per entry in seq, in the order the sequence
// yields them: `<id>\t<preview>\n`, with `\n`, `\r`, `\t`, `\\` in the
// preview escaped with a leading backslash. The caller controls
// ordering and expired-entry inclusion via the store.ListFilter passed
// to Store.List (spec: newest first, non-expired only, by default).
func Encode(w io.Writer, seq iter.Seq2[store.Entry, error]) error {
	bw := bufio.NewWriter(w)

	for entry, err := range seq {
		if err != nil {
			return fmt.Errorf("tsv encode: %w", err)
		}

		if _, err := fmt.Fprintf(bw, "%d\t%s\n", entry.ID, escape(entry.Preview)); err != nil {
			return fmt.Errorf("tsv encode: write: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("tsv encode: flush: %w", err)
	}

	return nil
}

// EncodeEntry renders a single entry's preview, without its id, in the
// TSV escaping convention.
func EncodeEntry(entry store.Entry) string {
	return escape(entry.Preview)
}

// Decode parses every line from r into a Row, in file order. It does
// not touch the store; Import builds on top of it so a malformed line
// aborts the whole import transaction instead of leaving it half-applied.
func Decode(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var rows []Row

	line := 0

	for scanner.Scan() {
		line++

		text := scanner.Text()
		if text == "" {
			continue
		}

		id, preview, err := decodeLine(text)
		if err != nil {
			return nil, fmt.Errorf("tsv decode: line %d: %w", line, err)
		}

		if !utf8.ValidString(preview) {
			return nil, fmt.Errorf("tsv decode: line %d: %w", line, ErrUnsupportedEntry)
		}

		rows = append(rows, Row{ID: id, Preview: preview})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tsv decode: %w", err)
	}

	return rows, nil
}

// ImportResult summarizes the outcome of Import.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// Import reads stdin-style TSV, inserting each row's preview as a
// text/plain payload (TSV carries no payload column; the preview
// stands in for it, per spec §4.2). Every line is parsed before any
// row is committed, so a malformed line leaves the store untouched.
// Duplicates (per the store's own dedup window) are counted as
// skipped, not as errors.
func Import(ctx context.Context, s *store.Store, r io.Reader) (ImportResult, error) {
	rows, err := Decode(r)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult

	for _, row := range rows {
		res, err := s.Insert(ctx, store.Candidate{
			Mime:    "text/plain;charset=utf-8",
			Payload: []byte(row.Preview),
			Preview: row.Preview,
		})
		if err != nil {
			return result, fmt.Errorf("tsv import: insert: %w", err)
		}

		if res.Duplicate {
			result.Skipped++

			continue
		}

		result.Inserted++
	}

	return result, nil
}

func decodeLine(line string) (int64, string, error) {
	idPart, previewPart, ok := cutUnescapedTab(line)
	if !ok {
		return 0, "", ErrMalformedLine
	}

	var id int64

	if _, err := fmt.Sscanf(idPart, "%d", &id); err != nil {
		return 0, "", fmt.Errorf("%w: id %q", ErrMalformedLine, idPart)
	}

	return id, unescape(previewPart), nil
}

// cutUnescapedTab splits at the first tab not preceded by an
// odd number of backslashes, so an escaped "\t" inside the preview
// never looks like the column separator.
func cutUnescapedTab(line string) (string, string, bool) {
	backslashes := 0

	for i, r := range line {
		if r == '\\' {
			backslashes++

			continue
		}

		if r == '\t' && backslashes%2 == 0 {
			return line[:i], line[i+1:], true
		}

		backslashes = 0
	}

	return "", "", false
}

func escape(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func unescape(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	escaped := false

	for _, r := range s {
		if escaped {
			switch r {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteRune(r)
			}

			escaped = false

			continue
		}

		if r == '\\' {
			escaped = true

			continue
		}

		b.WriteRune(r)
	}

	if escaped {
		b.WriteByte('\\')
	}

	return b.String()
}
