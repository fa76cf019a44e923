package focus

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NotAShelf/stash/internal/wayland"
)

func newTestOracle() *Oracle {
	return &Oracle{
		log:       zap.NewNop(),
		conn:      &wayland.Conn{},
		toplevels: make(map[uint32]*toplevel),
		available: true,
	}
}

func stateArray(states ...uint32) []byte {
	buf := make([]byte, 0, len(states)*4)

	for _, s := range states {
		buf = append(buf, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	}

	return buf
}

func TestOracleUnavailableReportsNoCurrent(t *testing.T) {
	o := &Oracle{toplevels: make(map[uint32]*toplevel)}

	app, ok := o.Current()
	require.False(t, ok)
	require.Empty(t, app)
}

func TestOracleTracksActivatedToplevel(t *testing.T) {
	o := newTestOracle()

	require.NoError(t, o.handleManagerEvent(managerEventToplevel, wayland.NewArgReader(mustUint(7), nil)))

	handler := o.handleHandleEvent(7)
	require.NoError(t, handler(handleEventAppID, wayland.NewArgReader(mustString("firefox"), nil)))
	require.NoError(t, handler(handleEventState, wayland.NewArgReader(stateArray(stateActivated), nil)))

	app, ok := o.Current()
	require.True(t, ok)
	require.Equal(t, "firefox", app)
}

func TestOracleClearsCurrentOnDeactivation(t *testing.T) {
	o := newTestOracle()

	require.NoError(t, o.handleManagerEvent(managerEventToplevel, wayland.NewArgReader(mustUint(1), nil)))

	handler := o.handleHandleEvent(1)
	require.NoError(t, handler(handleEventAppID, wayland.NewArgReader(mustString("kitty"), nil)))
	require.NoError(t, handler(handleEventState, wayland.NewArgReader(stateArray(stateActivated), nil)))
	require.NoError(t, handler(handleEventState, wayland.NewArgReader(stateArray(), nil)))

	_, ok := o.Current()
	require.False(t, ok)
}

func TestOracleForgetsClosedToplevel(t *testing.T) {
	o := newTestOracle()
	o.conn = &wayland.Conn{}

	require.NoError(t, o.handleManagerEvent(managerEventToplevel, wayland.NewArgReader(mustUint(3), nil)))
	o.toplevels[3].appID = "foot"
	o.current = 3

	handler := o.handleHandleEvent(3)
	require.NoError(t, handler(handleEventClosed, wayland.NewArgReader(nil, nil)))

	_, ok := o.Current()
	require.False(t, ok)
	require.NotContains(t, o.toplevels, uint32(3))
}

func mustUint(v uint32) []byte {
	w := wayland.NewArgWriter()
	w.PutUint(v)

	return w.Bytes()
}

func mustString(s string) []byte {
	w := wayland.NewArgWriter()
	w.PutString(s)

	return w.Bytes()
}
