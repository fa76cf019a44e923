// Package clipboard implements the clipboard gateway (C5): reading
// the compositor's current selection offers, writing a new selection,
// and clearing it, over zwlr_data_control_unstable_v1. See spec §4.5.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/wayland"
)

const dataControlManagerInterface = "zwlr_data_control_manager_v1"

// Opcodes for zwlr_data_control_manager_v1, zwlr_data_control_device_v1,
// zwlr_data_control_offer_v1, and zwlr_data_control_source_v1, per the
// wlr-data-control-unstable-v1 protocol.
const (
	managerRequestCreateDataSource uint16 = 0
	managerRequestGetDataDevice    uint16 = 1

	deviceRequestSetSelection uint16 = 0

	deviceEventDataOffer        uint16 = 0
	deviceEventSelection        uint16 = 1
	deviceEventFinished         uint16 = 2
	deviceEventPrimarySelection uint16 = 3

	offerRequestReceive uint16 = 0
	offerEventOffer     uint16 = 0

	sourceRequestOffer   uint16 = 0
	sourceEventSend      uint16 = 0
	sourceEventCancelled uint16 = 1
)

// DefaultReadDeadline bounds how long Read waits for the offering
// client to write data before giving up (spec §4.5: default 250ms).
const DefaultReadDeadline = 250 * time.Millisecond

// Preference selects which offered mime type Read prefers when
// several are available.
type Preference int

// Preference values, per spec §4.5.
const (
	PreferenceAny Preference = iota
	PreferenceText
	PreferenceImage
)

// ErrNoOffer is returned by Read when no selection offer is live by
// the time the read fires.
var ErrNoOffer = errors.New("clipboard: no offer")

// ErrReadTimeout is returned when the offering client does not supply
// data within the read deadline.
var ErrReadTimeout = errors.New("clipboard: read timed out")

type offerState struct {
	mimes []string
}

// Gateway is the client-side handle to one zwlr_data_control_device_v1
// bound to a single seat.
type Gateway struct {
	log          *zap.Logger
	conn         *wayland.Conn
	manager      uint32
	device       uint32
	readDeadline time.Duration

	mu        sync.Mutex
	offers    map[uint32]*offerState
	selection uint32 // live offer handle id, 0 if none

	changed chan struct{} // coalescing SelectionChanged notification
}

// New binds zwlr_data_control_manager_v1 and requests a data device
// for seatID.
func New(log *zap.Logger, conn *wayland.Conn, reg *wayland.Registry, seatID uint32) (*Gateway, error) {
	if _, ok := reg.Lookup(dataControlManagerInterface); !ok {
		return nil, fmt.Errorf("clipboard: compositor does not support %s", dataControlManagerInterface)
	}

	g := &Gateway{
		log:          log,
		conn:         conn,
		offers:       make(map[uint32]*offerState),
		changed:      make(chan struct{}, 1),
		readDeadline: DefaultReadDeadline,
	}

	managerID, err := reg.Bind(dataControlManagerInterface, nil)
	if err != nil {
		return nil, fmt.Errorf("clipboard: bind manager: %w", err)
	}

	g.manager = managerID
	g.device = conn.NewID()

	conn.Bind(g.device, g.handleDeviceEvent)

	args := wayland.NewArgWriter()
	args.PutUint(g.device)
	args.PutUint(seatID)

	if err := conn.SendRequest(g.manager, managerRequestGetDataDevice, args); err != nil {
		return nil, fmt.Errorf("clipboard: get_data_device: %w", err)
	}

	return g, nil
}

// Subscribe returns the channel SelectionChanged notifications are
// delivered on. The channel is coalescing: a pending notification is
// never queued twice, so the consumer always drains to the latest
// selection, never a stale one (spec §4.5/§4.6).
func (g *Gateway) Subscribe() <-chan struct{} {
	return g.changed
}

func (g *Gateway) notify() {
	select {
	case g.changed <- struct{}{}:
	default:
	}
}

func (g *Gateway) handleDeviceEvent(opcode uint16, args *wayland.ArgReader) error {
	switch opcode {
	case deviceEventDataOffer:
		id, err := args.Uint()
		if err != nil {
			return err
		}

		state := &offerState{}

		g.mu.Lock()
		g.offers[id] = state
		g.mu.Unlock()

		g.conn.Bind(id, func(opcode uint16, args *wayland.ArgReader) error {
			if opcode != offerEventOffer {
				return nil
			}

			mime, err := args.String()
			if err != nil {
				return err
			}

			g.mu.Lock()
			state.mimes = append(state.mimes, mime)
			g.mu.Unlock()

			return nil
		})

		return nil
	case deviceEventSelection:
		id, err := args.Uint()
		if err != nil {
			return err
		}

		g.mu.Lock()
		g.selection = id // 0 means the selection was withdrawn
		g.mu.Unlock()

		g.notify()

		return nil
	case deviceEventPrimarySelection:
		_, err := args.Uint()

		return err
	case deviceEventFinished:
		return nil
	default:
		return nil
	}
}

// Read resolves the current selection, preferring a mime type per
// preference. It blocks for at most the gateway's read deadline while
// draining connection events and waiting for the offering client to
// write the payload; on timeout the event is dropped and
// ErrReadTimeout is returned (spec §4.5).
func (g *Gateway) Read(ctx context.Context, pref Preference) (string, []byte, error) {
	g.mu.Lock()
	offerID := g.selection
	var mimes []string
	if offerID != 0 {
		if state, ok := g.offers[offerID]; ok {
			mimes = append(mimes, state.mimes...)
		}
	}
	g.mu.Unlock()

	if offerID == 0 || len(mimes) == 0 {
		return "", nil, ErrNoOffer
	}

	mime := choosePreferred(pref, mimes)

	r, w, err := os.Pipe()
	if err != nil {
		return "", nil, fmt.Errorf("clipboard: read: %w", err)
	}

	defer func() { _ = r.Close() }()

	args := wayland.NewArgWriter()
	args.PutString(mime)
	args.PutFD(int(w.Fd()))

	if err := g.conn.SendRequest(offerID, offerRequestReceive, args); err != nil {
		_ = w.Close()

		return "", nil, fmt.Errorf("clipboard: receive: %w", err)
	}

	_ = w.Close() // the compositor/source holds its own copy of the write end

	deadline := time.Now().Add(g.readDeadline)

	readCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	data, err := readAllWithContext(readCtx, r)
	if err != nil {
		g.log.Warn("clipboard read timed out", zap.String("mime", mime))

		return "", nil, ErrReadTimeout
	}

	return mime, data, nil
}

func readAllWithContext(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	done := make(chan result, 1)

	go func() {
		data, err := io.ReadAll(r)
		done <- result{data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func choosePreferred(pref Preference, mimes []string) string {
	priority := map[Preference][]string{
		PreferenceText:  {"text/plain;charset=utf-8", "text/plain", "text/html"},
		PreferenceImage: {"image/png", "image/jpeg", "text/html"},
	}[pref]

	for _, want := range priority {
		for _, m := range mimes {
			if m == want {
				return m
			}
		}
	}

	return mimes[0]
}

// Write creates a new data source offering mime, writes bytes when
// the compositor requests them, and sets it as the active selection.
func (g *Gateway) Write(mime string, data []byte) error {
	sourceID := g.conn.NewID()

	conn := g.conn

	conn.Bind(sourceID, func(opcode uint16, args *wayland.ArgReader) error {
		switch opcode {
		case sourceEventSend:
			_, err := args.String()
			if err != nil {
				return err
			}

			fd := args.FD()
			if fd < 0 {
				return nil
			}

			f := os.NewFile(uintptr(fd), "clipboard-send")
			defer func() { _ = f.Close() }()

			_, err = f.Write(data)

			return err
		case sourceEventCancelled:
			conn.Bind(sourceID, nil)

			return nil
		default:
			return nil
		}
	})

	offerArgs := wayland.NewArgWriter()
	offerArgs.PutString(mime)

	if err := conn.SendRequest(sourceID, sourceRequestOffer, offerArgs); err != nil {
		return fmt.Errorf("clipboard: write: offer: %w", err)
	}

	selectionArgs := wayland.NewArgWriter()
	selectionArgs.PutUint(sourceID)

	if err := conn.SendRequest(g.device, deviceRequestSetSelection, selectionArgs); err != nil {
		return fmt.Errorf("clipboard: write: set_selection: %w", err)
	}

	return nil
}

// Clear withdraws the current selection by setting a nil source.
func (g *Gateway) Clear() error {
	args := wayland.NewArgWriter()
	args.PutUint(0)

	if err := g.conn.SendRequest(g.device, deviceRequestSetSelection, args); err != nil {
		return fmt.Errorf("clipboard: clear: %w", err)
	}

	return nil
}
