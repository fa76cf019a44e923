package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stash.db")

	s, err := Open(context.Background(), path, opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestInsertIsIdempotentWithinDedupeWindow(t *testing.T) {
	s := openTestStore(t, Options{MaxDedupeSearch: 5})
	ctx := context.Background()

	first, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("hello"), Preview: "hello"})
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("hello"), Preview: "hello"})
	require.NoError(t, err)
	require.True(t, second.Duplicate)
	require.Equal(t, first.ID, second.DuplicateID)

	var count int
	entries := 0

	for entry, err := range s.List(ctx, ListFilter{}) {
		require.NoError(t, err)
		require.Equal(t, "hello", entry.Preview)
		entries++
	}

	count = entries
	require.Equal(t, 1, count)
}

func TestInsertDisablesDedupeWhenWindowNonPositive(t *testing.T) {
	s := openTestStore(t, Options{MaxDedupeSearch: 0})
	ctx := context.Background()

	_, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("x"), Preview: "x"})
	require.NoError(t, err)

	second, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("x"), Preview: "x"})
	require.NoError(t, err)
	require.False(t, second.Duplicate)
}

func TestTrimToMaxItemsBoundsActiveCount(t *testing.T) {
	s := openTestStore(t, Options{MaxItems: 2})
	ctx := context.Background()

	var ids []int64

	for _, payload := range []string{"a", "b", "c"} {
		res, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte(payload), Preview: payload})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	var previews []string

	for entry, err := range s.List(ctx, ListFilter{}) {
		require.NoError(t, err)
		previews = append(previews, entry.Preview)
	}

	require.Equal(t, []string{"c", "b"}, previews)

	_, err := s.Get(ctx, ids[0])
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t, Options{})

	_, err := s.Get(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByIDAndByQuery(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	a, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("alpha"), Preview: "alpha"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("beta"), Preview: "beta"})
	require.NoError(t, err)

	removed, err := s.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = s.DeleteByID(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, removed)

	n, err := s.DeleteByQuery(ctx, "bet")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestWipeAllAndExpiredOnly(t *testing.T) {
	s := openTestStore(t, Options{})
	ctx := context.Background()

	ttl := int64(0)

	_, err := s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("live"), Preview: "live"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, Candidate{Mime: "text/plain", Payload: []byte("dead"), Preview: "dead", TTLSeconds: &ttl})
	require.NoError(t, err)

	expired, err := s.MarkExpired(ctx, timeNowUnixForTest())
	require.NoError(t, err)
	require.Len(t, expired, 1)

	n, err := s.Wipe(ctx, true)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Total)

	n, err = s.Wipe(ctx, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func timeNowUnixForTest() int64 {
	return 1 << 62 // far future, so any ttl_seconds=0 row is already expired
}
