package wayland

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgWriterReaderRoundTrip(t *testing.T) {
	w := NewArgWriter()
	w.PutUint(42)
	w.PutInt(-7)
	w.PutFixed(FixedFromFloat64(1.5))
	w.PutString("wl_seat")
	w.PutArray([]byte{1, 2, 3})

	r := NewArgReader(w.buf, nil)

	u, err := r.Uint()
	require.NoError(t, err)
	require.Equal(t, uint32(42), u)

	i, err := r.Int()
	require.NoError(t, err)
	require.Equal(t, int32(-7), i)

	f, err := r.Fixed()
	require.NoError(t, err)
	require.InDelta(t, 1.5, f.Float64(), 0.01)

	s, err := r.String()
	require.NoError(t, err)
	require.Equal(t, "wl_seat", s)

	arr, err := r.Array()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, arr)
}

func TestArgWriterPadsStringsTo4ByteBoundary(t *testing.T) {
	w := NewArgWriter()
	w.PutString("ab") // length prefix (4) + "ab\0" (3) + 1 pad = 8 bytes total
	require.Equal(t, 8, len(w.buf))
}

func TestArgReaderFDQueueIsFIFO(t *testing.T) {
	r := NewArgReader(nil, []int{5, 6, 7})

	require.Equal(t, 5, r.FD())
	require.Equal(t, 6, r.FD())
	require.Equal(t, 7, r.FD())
	require.Equal(t, -1, r.FD())
}

func TestArgReaderShortMessage(t *testing.T) {
	r := NewArgReader([]byte{1, 2}, nil)

	_, err := r.Uint()
	require.ErrorIs(t, err, ErrShortMessage)
}
