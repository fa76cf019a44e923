// Package wayland implements the minimal subset of the Wayland client
// wire protocol that stash's focus oracle (C4) and clipboard gateway
// (C5) need: connection setup, request/event framing, and a small
// fixed object registry. It does not generate bindings from the
// protocol XML; it hand-encodes the handful of interfaces those two
// components exercise. See spec §4.9.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// header is the 8-byte frame every Wayland message starts with.
type header struct {
	Sender uint32
	Opcode uint16
	Size   uint16
}

const headerSize = 8

// ErrShortMessage is returned when a frame's declared size does not
// fit what was actually read off the socket.
var ErrShortMessage = errors.New("wayland: short message")

// Fixed is Wayland's 24.8 signed fixed-point number.
type Fixed int32

// FixedFromFloat64 converts a float64 into Wayland's fixed-point
// encoding.
func FixedFromFloat64(f float64) Fixed {
	return Fixed(int32(math.Round(f * 256)))
}

// Float64 converts a Fixed back to float64.
func (f Fixed) Float64() float64 {
	return float64(f) / 256
}

// ArgWriter accumulates a request's argument payload. Array and string
// arguments are length-prefixed, NUL-terminated where applicable, and
// padded to a 4-byte boundary, per the wire format.
type ArgWriter struct {
	buf []byte
	fds []int
}

// NewArgWriter returns an empty argument writer.
func NewArgWriter() *ArgWriter {
	return &ArgWriter{}
}

// PutUint writes an unsigned 32-bit argument (also used for object and
// new_id arguments, which are plain object ids on the wire).
func (w *ArgWriter) PutUint(v uint32) {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutInt writes a signed 32-bit argument.
func (w *ArgWriter) PutInt(v int32) {
	w.PutUint(uint32(v))
}

// PutFixed writes a 24.8 fixed-point argument.
func (w *ArgWriter) PutFixed(v Fixed) {
	w.PutUint(uint32(v))
}

// PutString writes a length-prefixed, NUL-terminated, 4-byte-padded
// string argument.
func (w *ArgWriter) PutString(s string) {
	w.putArray(append([]byte(s), 0))
}

// PutArray writes a length-prefixed, 4-byte-padded byte array
// argument (no NUL terminator).
func (w *ArgWriter) PutArray(b []byte) {
	w.putArray(b)
}

func (w *ArgWriter) putArray(b []byte) {
	w.PutUint(uint32(len(b)))
	w.buf = append(w.buf, b...)

	if pad := pad4(len(b)); pad > 0 {
		w.buf = append(w.buf, make([]byte, pad)...)
	}
}

// Bytes returns the accumulated argument payload.
func (w *ArgWriter) Bytes() []byte {
	return w.buf
}

// PutFD queues a file descriptor to be sent out-of-band via
// SCM_RIGHTS alongside this message. Fd arguments occupy no space in
// the inline argument stream.
func (w *ArgWriter) PutFD(fd int) {
	w.fds = append(w.fds, fd)
}

func pad4(n int) int {
	if rem := n % 4; rem != 0 {
		return 4 - rem
	}

	return 0
}

// ArgReader walks an event's argument payload in declaration order.
type ArgReader struct {
	buf []byte
	fds []int
}

// NewArgReader wraps a received event's argument bytes and any file
// descriptors received alongside it via SCM_RIGHTS.
func NewArgReader(buf []byte, fds []int) *ArgReader {
	return &ArgReader{buf: buf, fds: fds}
}

// Uint reads an unsigned 32-bit argument.
func (r *ArgReader) Uint() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("wayland: read uint: %w", ErrShortMessage)
	}

	v := binary.LittleEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]

	return v, nil
}

// Int reads a signed 32-bit argument.
func (r *ArgReader) Int() (int32, error) {
	v, err := r.Uint()

	return int32(v), err
}

// Fixed reads a 24.8 fixed-point argument.
func (r *ArgReader) Fixed() (Fixed, error) {
	v, err := r.Int()

	return Fixed(v), err
}

// String reads a length-prefixed, NUL-terminated, padded string
// argument, trimming the terminator.
func (r *ArgReader) String() (string, error) {
	raw, err := r.array()
	if err != nil {
		return "", err
	}

	if len(raw) == 0 {
		return "", nil
	}

	return string(raw[:len(raw)-1]), nil
}

// Array reads a length-prefixed, padded byte array argument.
func (r *ArgReader) Array() ([]byte, error) {
	return r.array()
}

func (r *ArgReader) array() ([]byte, error) {
	n, err := r.Uint()
	if err != nil {
		return nil, fmt.Errorf("wayland: read array length: %w", err)
	}

	total := int(n) + pad4(int(n))
	if len(r.buf) < total {
		return nil, fmt.Errorf("wayland: read array body: %w", ErrShortMessage)
	}

	out := r.buf[:n]
	r.buf = r.buf[total:]

	return out, nil
}

// FD pops the next file descriptor received out-of-band with this
// event. Returns -1 if none remain.
func (r *ArgReader) FD() int {
	if len(r.fds) == 0 {
		return -1
	}

	fd := r.fds[0]
	r.fds = r.fds[1:]

	return fd
}
