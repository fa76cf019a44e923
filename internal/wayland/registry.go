package wayland

import "fmt"

// Opcodes for the core wl_display/wl_registry interfaces. These are
// part of the stable Wayland core protocol and do not change between
// compositor versions.
const (
	displayRequestGetRegistry uint16 = 1

	displayEventError    uint16 = 0
	displayEventDeleteID uint16 = 1

	registryRequestBind uint16 = 0

	registryEventGlobal       uint16 = 0
	registryEventGlobalRemove uint16 = 1
)

// Global is one compositor-advertised interface, as reported by
// wl_registry.global.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry tracks the compositor's advertised globals and binds
// client-side proxies to them. Focus Oracle (C4) and Clipboard Gateway
// (C5) both bootstrap through a single shared Registry.
type Registry struct {
	conn    *Conn
	id      uint32
	globals map[string]Global
}

// Bootstrap sends wl_display.get_registry and returns without waiting
// for any reply. wl_registry.global events are recorded only as the
// caller runs Conn.Dispatch, so the registry is eventually consistent:
// globals arrive after Bootstrap returns, and may also appear or
// disappear later (outputs appearing/disappearing).
func Bootstrap(conn *Conn) (*Registry, error) {
	reg := &Registry{
		conn:    conn,
		id:      conn.NewID(),
		globals: make(map[string]Global),
	}

	conn.Bind(reg.id, reg.handleEvent)

	args := NewArgWriter()
	args.PutUint(reg.id)

	if err := conn.SendRequest(displayObjectID, displayRequestGetRegistry, args); err != nil {
		return nil, fmt.Errorf("wayland: get_registry: %w", err)
	}

	return reg, nil
}

func (reg *Registry) handleEvent(opcode uint16, args *ArgReader) error {
	switch opcode {
	case registryEventGlobal:
		name, err := args.Uint()
		if err != nil {
			return err
		}

		iface, err := args.String()
		if err != nil {
			return err
		}

		version, err := args.Uint()
		if err != nil {
			return err
		}

		reg.globals[iface] = Global{Name: name, Interface: iface, Version: version}

		return nil
	case registryEventGlobalRemove:
		name, err := args.Uint()
		if err != nil {
			return err
		}

		for iface, g := range reg.globals {
			if g.Name == name {
				delete(reg.globals, iface)

				break
			}
		}

		return nil
	default:
		return nil
	}
}

// Lookup returns the advertised global for an interface name.
func (reg *Registry) Lookup(iface string) (Global, bool) {
	g, ok := reg.globals[iface]

	return g, ok
}

// Bind allocates a new client object id and issues wl_registry.bind
// for the named global, registering handler for events addressed to
// the new object. Returns the new object's id.
func (reg *Registry) Bind(iface string, handler EventHandler) (uint32, error) {
	global, ok := reg.globals[iface]
	if !ok {
		return 0, fmt.Errorf("wayland: compositor does not advertise %s", iface)
	}

	newID := reg.conn.NewID()

	args := NewArgWriter()
	args.PutUint(global.Name)
	args.PutString(iface)
	args.PutUint(global.Version)
	args.PutUint(newID)

	if err := reg.conn.SendRequest(reg.id, registryRequestBind, args); err != nil {
		return 0, fmt.Errorf("wayland: bind %s: %w", iface, err)
	}

	reg.conn.Bind(newID, handler)

	return newID, nil
}
