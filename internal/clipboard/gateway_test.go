package clipboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/wayland"
)

func newTestGateway() *Gateway {
	return &Gateway{
		log:          zap.NewNop(),
		conn:         &wayland.Conn{},
		offers:       make(map[uint32]*offerState),
		changed:      make(chan struct{}, 1),
		readDeadline: DefaultReadDeadline,
	}
}

func TestChoosePreferredText(t *testing.T) {
	mimes := []string{"text/html", "text/plain;charset=utf-8", "image/png"}
	require.Equal(t, "text/plain;charset=utf-8", choosePreferred(PreferenceText, mimes))
}

func TestChoosePreferredImage(t *testing.T) {
	mimes := []string{"text/html", "image/jpeg", "image/png"}
	require.Equal(t, "image/png", choosePreferred(PreferenceImage, mimes))
}

func TestChoosePreferredAnyTakesFirst(t *testing.T) {
	mimes := []string{"application/x-custom", "text/plain"}
	require.Equal(t, "application/x-custom", choosePreferred(PreferenceAny, mimes))
}

func TestChoosePreferredFallsBackWhenNoneMatch(t *testing.T) {
	mimes := []string{"application/x-custom"}
	require.Equal(t, "application/x-custom", choosePreferred(PreferenceText, mimes))
}

func TestSubscribeCoalescesNotifications(t *testing.T) {
	g := newTestGateway()

	g.notify()
	g.notify()
	g.notify()

	select {
	case <-g.Subscribe():
	default:
		t.Fatal("expected a pending notification")
	}

	select {
	case <-g.Subscribe():
		t.Fatal("expected notifications to have coalesced to one")
	default:
	}
}

func TestReadReturnsNoOfferWhenSelectionEmpty(t *testing.T) {
	g := newTestGateway()

	_, _, err := g.Read(context.Background(), PreferenceAny)
	require.ErrorIs(t, err, ErrNoOffer)
}

func TestDeviceEventSelectionUpdatesCurrentOffer(t *testing.T) {
	g := newTestGateway()
	g.offers[9] = &offerState{mimes: []string{"text/plain"}}

	w := wayland.NewArgWriter()
	w.PutUint(9)

	require.NoError(t, g.handleDeviceEvent(deviceEventSelection, wayland.NewArgReader(w.Bytes(), nil)))

	g.mu.Lock()
	selection := g.selection
	g.mu.Unlock()

	require.Equal(t, uint32(9), selection)

	select {
	case <-g.Subscribe():
	case <-time.After(time.Second):
		t.Fatal("expected selection change notification")
	}
}
