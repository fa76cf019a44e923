package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stash.db")

	s, err := store.Open(context.Background(), path, store.Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestTickMarksExpiredRowsWithoutGateway(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ttl := int64(1)
	res, err := s.Insert(ctx, store.Candidate{Mime: "text/plain", Payload: []byte("x"), Preview: "x", TTLSeconds: &ttl})
	require.NoError(t, err)

	r := New(zap.NewNop(), s, nil)
	require.NoError(t, r.Tick(ctx, time.Now().Add(time.Hour)))

	entry, err := s.Get(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, entry.IsExpired)
}

func TestTickIsNoopWhenNothingExpires(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, store.Candidate{Mime: "text/plain", Payload: []byte("x"), Preview: "x"})
	require.NoError(t, err)

	r := New(zap.NewNop(), s, nil)
	require.NoError(t, r.Tick(ctx, time.Now()))

	entry, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, entry.IsExpired)
}
