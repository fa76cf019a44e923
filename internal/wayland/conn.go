package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// displayObjectID is the well-known object id every connection starts
// with, bound to wl_display.
const displayObjectID uint32 = 1

// ErrUnavailable is returned by Dial when no compositor socket can be
// found, and by Dispatch once the socket has closed. Nothing in stash
// reconnects on it: the watch command returns the error and exits.
var ErrUnavailable = errors.New("wayland: compositor unavailable")

// maxFDsPerMessage bounds ancillary data parsing; Wayland messages
// never carry more than a handful of fds (a data offer carries one).
const maxFDsPerMessage = 8

// Conn is a single connection to the compositor's Wayland socket. It
// owns the next free object id and routes incoming events to
// per-object handlers registered by Bind.
type Conn struct {
	sock *net.UnixConn

	mu       sync.Mutex
	nextID   uint32
	handlers map[uint32]EventHandler
}

// EventHandler processes one incoming event for the object it was
// registered under.
type EventHandler func(opcode uint16, args *ArgReader) error

// Dial connects to the compositor named by $WAYLAND_DISPLAY (resolved
// against $XDG_RUNTIME_DIR unless it is already absolute), and
// registers the handler for the wl_display object (id 1).
func Dial(displayHandler EventHandler) (*Conn, error) {
	path, err := socketPath()
	if err != nil {
		return nil, err
	}

	raw, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	sock, ok := raw.(*net.UnixConn)
	if !ok {
		_ = raw.Close()

		return nil, fmt.Errorf("%w: not a unix socket", ErrUnavailable)
	}

	c := &Conn{
		sock:     sock,
		nextID:   2, // 1 is reserved for wl_display
		handlers: make(map[uint32]EventHandler),
	}
	c.handlers[displayObjectID] = displayHandler

	return c, nil
}

func socketPath() (string, error) {
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}

	if filepath.IsAbs(name) {
		return name, nil
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: XDG_RUNTIME_DIR is not set", ErrUnavailable)
	}

	return filepath.Join(runtimeDir, name), nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// NewID allocates the next client-side object id.
func (c *Conn) NewID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	return id
}

// Bind registers the event handler invoked for events addressed to
// objectID. A nil handler unregisters it (e.g. after a toplevel's
// "closed" event).
func (c *Conn) Bind(objectID uint32, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handler == nil {
		delete(c.handlers, objectID)

		return
	}

	if c.handlers == nil {
		c.handlers = make(map[uint32]EventHandler)
	}

	c.handlers[objectID] = handler
}

// SendRequest writes one request frame to objectID/opcode. fds, if
// any, are sent as SCM_RIGHTS ancillary data alongside the frame.
func (c *Conn) SendRequest(objectID uint32, opcode uint16, args *ArgWriter) error {
	if args == nil {
		args = NewArgWriter()
	}

	size := headerSize + len(args.buf)
	if size > maxWireMessageSize {
		return fmt.Errorf("wayland: request too large: %d bytes", size)
	}

	frame := make([]byte, size)
	binary.LittleEndian.PutUint32(frame[0:4], objectID)
	binary.LittleEndian.PutUint16(frame[4:6], opcode)
	binary.LittleEndian.PutUint16(frame[6:8], uint16(size))
	copy(frame[headerSize:], args.buf)

	raw, err := c.sock.SyscallConn()
	if err != nil {
		return fmt.Errorf("wayland: send request: %w", err)
	}

	var oob []byte
	if len(args.fds) > 0 {
		oob = unix.UnixRights(args.fds...)
	}

	var sendErr error

	ctrlErr := raw.Write(func(fd uintptr) bool {
		sendErr = unix.Sendmsg(int(fd), frame, oob, nil, 0)

		return sendErr != unix.EAGAIN
	})
	if ctrlErr != nil {
		return fmt.Errorf("wayland: send request: %w", ctrlErr)
	}

	if sendErr != nil {
		return fmt.Errorf("wayland: send request: %w", sendErr)
	}

	return nil
}

const maxWireMessageSize = 1<<16 - 1

// Dispatch blocks reading and handling exactly one incoming message,
// returning ErrUnavailable if the socket has closed.
func (c *Conn) Dispatch() error {
	objectID, opcode, args, err := c.readMessage()
	if err != nil {
		return err
	}

	c.mu.Lock()
	handler := c.handlers[objectID]
	c.mu.Unlock()

	if handler == nil {
		return nil // event for an object we no longer track; drop it
	}

	return handler(opcode, args)
}

func (c *Conn) readMessage() (uint32, uint16, *ArgReader, error) {
	hdr := make([]byte, headerSize)

	fds, err := c.readFull(hdr)
	if err != nil {
		return 0, 0, nil, err
	}

	objectID := binary.LittleEndian.Uint32(hdr[0:4])
	opcode := binary.LittleEndian.Uint16(hdr[4:6])
	size := binary.LittleEndian.Uint16(hdr[6:8])

	if int(size) < headerSize {
		return 0, 0, nil, fmt.Errorf("wayland: read message: %w", ErrShortMessage)
	}

	body := make([]byte, int(size)-headerSize)

	moreFDs, err := c.readFull(body)
	if err != nil {
		return 0, 0, nil, err
	}

	return objectID, opcode, NewArgReader(body, append(fds, moreFDs...)), nil
}

// readFull reads len(buf) bytes, collecting any ancillary file
// descriptors received along the way.
func (c *Conn) readFull(buf []byte) ([]int, error) {
	var fds []int

	read := 0

	raw, err := c.sock.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("wayland: read: %w", err)
	}

	oob := make([]byte, unix.CmsgSpace(maxFDsPerMessage*4))

	for read < len(buf) {
		var (
			n      int
			oobn   int
			callErr error
		)

		ctrlErr := raw.Read(func(fd uintptr) bool {
			n, oobn, _, _, callErr = unix.Recvmsg(int(fd), buf[read:], oob, 0)

			return callErr != unix.EAGAIN
		})
		if ctrlErr != nil {
			return nil, fmt.Errorf("wayland: read: %w", ctrlErr)
		}

		if callErr != nil {
			return nil, fmt.Errorf("wayland: read: %w", callErr)
		}

		if n == 0 {
			return nil, fmt.Errorf("wayland: read: %w", ErrUnavailable)
		}

		if oobn > 0 {
			scms, err := unix.ParseSocketControlMessage(oob[:oobn])
			if err == nil {
				for _, scm := range scms {
					rights, err := unix.ParseUnixRights(&scm)
					if err == nil {
						fds = append(fds, rights...)
					}
				}
			}
		}

		read += n
	}

	return fds, nil
}
