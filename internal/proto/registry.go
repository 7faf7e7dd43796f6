package proto

import (
	"fmt"

	"github.com/jmylchreest/waysay/internal/wire"
)

// Global is one interface advertised by the compositor.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry is the wl_registry proxy. It records advertised globals so the
// capability set can be bound after a roundtrip.
type Registry struct {
	conn    *wire.Conn
	id      uint32
	globals []Global
}

// HandleEvent records global announcements and removals.
func (r *Registry) HandleEvent(opcode uint16, rd *wire.Reader) error {
	switch opcode {
	case 0: // global
		r.globals = append(r.globals, Global{
			Name:      rd.Uint(),
			Interface: rd.String(),
			Version:   rd.Uint(),
		})
	case 1: // global_remove
		name := rd.Uint()
		for i, g := range r.globals {
			if g.Name == name {
				r.globals = append(r.globals[:i], r.globals[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Find returns the advertised global for an interface name.
func (r *Registry) Find(iface string) (Global, bool) {
	for _, g := range r.globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// bind sends wl_registry bind for g at the given version and returns the
// new object id.
func (r *Registry) bind(g Global, version uint32) uint32 {
	id := r.conn.NewID()
	r.conn.Send(wire.NewMessage(r.id, 0).
		PutUint(g.Name).
		PutString(g.Interface).
		PutUint(version).
		PutUint(id))
	return id
}

// Globals is the bound capability set the bar runs on. Seat is nil when the
// compositor advertises none; the bar then renders but takes no input.
type Globals struct {
	Compositor *Compositor
	Shm        *Shm
	LayerShell *LayerShell
	Seat       *Seat
}

// Interface names and the highest versions this client understands.
const (
	ifaceCompositor = "wl_compositor"
	ifaceShm        = "wl_shm"
	ifaceSeat       = "wl_seat"
	ifaceLayerShell = "zwlr_layer_shell_v1"
)

// BindGlobals discovers the compositor's globals and binds the subset the
// bar requires. A missing required interface is fatal.
func BindGlobals(conn *wire.Conn, display *Display) (*Globals, error) {
	registry := display.GetRegistry()
	if err := display.Roundtrip(); err != nil {
		return nil, err
	}

	required := func(iface string, supported uint32) (Global, uint32, error) {
		g, ok := registry.Find(iface)
		if !ok {
			return Global{}, 0, fmt.Errorf("%w: compositor does not advertise %s",
				wire.ErrProtocol, iface)
		}
		return g, min(g.Version, supported), nil
	}

	bound := &Globals{}

	g, v, err := required(ifaceCompositor, 4)
	if err != nil {
		return nil, err
	}
	bound.Compositor = NewCompositor(conn, registry.bind(g, v))

	g, v, err = required(ifaceShm, 1)
	if err != nil {
		return nil, err
	}
	bound.Shm = NewShm(conn, registry.bind(g, v))

	g, v, err = required(ifaceLayerShell, 2)
	if err != nil {
		return nil, err
	}
	bound.LayerShell = NewLayerShell(conn, registry.bind(g, v))

	if g, ok := registry.Find(ifaceSeat); ok {
		bound.Seat = NewSeat(conn, registry.bind(g, min(g.Version, 5)))
	}

	return bound, nil
}
