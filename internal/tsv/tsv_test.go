package tsv

import (
	"context"
	"iter"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/NotAShelf/stash/internal/store"
)

func seqFrom(entries ...store.Entry) iter.Seq2[store.Entry, error] {
	return func(yield func(store.Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func TestEncodeEscapesControlCharacters(t *testing.T) {
	var buf strings.Builder

	err := Encode(&buf, seqFrom(store.Entry{ID: 1, Preview: "a\tb\nc\\d"}))
	require.NoError(t, err)
	require.Equal(t, "1\ta\\tb\\nc\\\\d\n", buf.String())
}

func TestDecodeRoundTripsEncode(t *testing.T) {
	entries := []store.Entry{
		{ID: 2, Preview: "hello"},
		{ID: 1, Preview: "tab\there"},
	}

	var buf strings.Builder

	require.NoError(t, Encode(&buf, seqFrom(entries...)))

	rows, err := Decode(strings.NewReader(buf.String()))
	require.NoError(t, err)

	want := []Row{{ID: 2, Preview: "hello"}, {ID: 1, Preview: "tab\there"}}
	require.Empty(t, cmp.Diff(want, rows))
}

func TestDecodeRejectsMalformedLine(t *testing.T) {
	_, err := Decode(strings.NewReader("not-a-valid-line\n"))
	require.ErrorIs(t, err, ErrMalformedLine)
}

func TestDecodeRejectsNonUTF8Preview(t *testing.T) {
	_, err := Decode(strings.NewReader("1\t\xff\xfe\n"))
	require.ErrorIs(t, err, ErrUnsupportedEntry)
}

func TestImportInsertsAndSkipsDuplicates(t *testing.T) {
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "stash.db"), store.Options{MaxDedupeSearch: 5})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	result, err := Import(context.Background(), s, strings.NewReader("1\thello\n2\tworld\n3\thello\n"))
	require.NoError(t, err)
	require.Equal(t, ImportResult{Inserted: 2, Skipped: 1}, result)
}

func TestImportAbortsEntirelyOnMalformedLine(t *testing.T) {
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "stash.db"), store.Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	_, err = Import(context.Background(), s, strings.NewReader("1\thello\nbroken-line\n"))
	require.ErrorIs(t, err, ErrMalformedLine)

	count := 0

	for _, err := range s.List(context.Background(), store.ListFilter{}) {
		require.NoError(t, err)
		count++
	}

	require.Zero(t, count)
}
