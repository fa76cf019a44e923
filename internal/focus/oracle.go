// Package focus implements the focus oracle (C4): it tracks which
// application is active under a compositor that speaks
// wlr-foreign-toplevel-management, so the watch loop can stamp
// captured entries with their source_app. See spec §4.4.
package focus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/wayland"
)

const foreignToplevelManagerInterface = "zwlr_foreign_toplevel_manager_v1"

// Opcodes for zwlr_foreign_toplevel_manager_v1 and
// zwlr_foreign_toplevel_handle_v1, per the wlr-foreign-toplevel-
// management-unstable-v1 protocol.
const (
	managerEventToplevel uint16 = 0
	managerEventFinished uint16 = 1

	handleEventTitle  uint16 = 0
	handleEventAppID  uint16 = 1
	handleEventState  uint16 = 4
	handleEventDone   uint16 = 5
	handleEventClosed uint16 = 6
)

// toplevel states carried in the handle's "state" event array, one
// uint32 per entry.
const (
	stateMaximized  uint32 = 0
	stateMinimized  uint32 = 1
	stateActivated  uint32 = 2
	stateFullscreen uint32 = 3
)

type toplevel struct {
	appID     string
	title     string
	activated bool
}

// Oracle reports the currently focused application, or ("", false) if
// none is known or the compositor does not support the protocol.
type Oracle struct {
	log       *zap.Logger
	conn      *wayland.Conn
	available bool

	// mu guards toplevels/current: event handlers run on the dedicated
	// Wayland dispatch goroutine while Current is called from the
	// watch loop's goroutine (SPEC_FULL §5).
	mu        sync.Mutex
	toplevels map[uint32]*toplevel
	current   uint32 // handle id of the most-recently-activated toplevel, 0 if none
}

// New subscribes to zwlr_foreign_toplevel_manager_v1 if the compositor
// advertises it. If it doesn't, the returned Oracle always reports
// unavailable and logs a one-time warning, per spec §4.4.
func New(log *zap.Logger, conn *wayland.Conn, reg *wayland.Registry) *Oracle {
	o := &Oracle{
		log:       log,
		conn:      conn,
		toplevels: make(map[uint32]*toplevel),
	}

	if _, ok := reg.Lookup(foreignToplevelManagerInterface); !ok {
		log.Warn("compositor does not support foreign-toplevel-management; source_app will always be empty")

		return o
	}

	_, err := reg.Bind(foreignToplevelManagerInterface, o.handleManagerEvent)
	if err != nil {
		log.Warn("failed to bind foreign-toplevel-manager", zap.Error(err))

		return o
	}

	o.available = true

	return o
}

// Current returns the app_id of the most-recently-activated toplevel,
// or ("", false) if none is tracked or the protocol is unavailable.
func (o *Oracle) Current() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.available || o.current == 0 {
		return "", false
	}

	tl, ok := o.toplevels[o.current]
	if !ok {
		return "", false
	}

	return tl.appID, true
}

func (o *Oracle) handleManagerEvent(opcode uint16, args *wayland.ArgReader) error {
	switch opcode {
	case managerEventToplevel:
		handleID, err := args.Uint()
		if err != nil {
			return err
		}

		o.mu.Lock()
		o.toplevels[handleID] = &toplevel{}
		o.mu.Unlock()

		o.conn.Bind(handleID, o.handleHandleEvent(handleID))

		return nil
	case managerEventFinished:
		return nil
	default:
		return nil
	}
}

func (o *Oracle) handleHandleEvent(handleID uint32) wayland.EventHandler {
	return func(opcode uint16, args *wayland.ArgReader) error {
		o.mu.Lock()
		tl, ok := o.toplevels[handleID]
		o.mu.Unlock()

		if !ok {
			return nil
		}

		switch opcode {
		case handleEventAppID:
			v, err := args.String()
			if err != nil {
				return err
			}

			o.mu.Lock()
			tl.appID = v
			o.mu.Unlock()

			return nil
		case handleEventTitle:
			v, err := args.String()
			if err != nil {
				return err
			}

			o.mu.Lock()
			tl.title = v
			o.mu.Unlock()

			return nil
		case handleEventState:
			raw, err := args.Array()
			if err != nil {
				return err
			}

			activated := containsState(raw, stateActivated)

			o.mu.Lock()
			tl.activated = activated
			if activated {
				o.current = handleID
			} else if o.current == handleID {
				o.current = 0
			}
			o.mu.Unlock()

			return nil
		case handleEventClosed:
			o.mu.Lock()
			delete(o.toplevels, handleID)
			if o.current == handleID {
				o.current = 0
			}
			o.mu.Unlock()

			o.conn.Bind(handleID, nil)

			return nil
		default:
			return nil
		}
	}
}

// containsState reports whether the state array (one little-endian
// uint32 per entry) contains want.
func containsState(raw []byte, want uint32) bool {
	for i := 0; i+4 <= len(raw); i += 4 {
		v := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
		if v == want {
			return true
		}
	}

	return false
}
