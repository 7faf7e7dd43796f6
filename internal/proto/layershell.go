package proto

import "github.com/jmylchreest/waysay/internal/wire"

// zwlr_layer_shell_v1 layer values.
const (
	LayerBackground uint32 = 0
	LayerBottom     uint32 = 1
	LayerTop        uint32 = 2
	LayerOverlay    uint32 = 3
)

// zwlr_layer_surface_v1 anchor bits.
const (
	AnchorTop    uint32 = 1 << 0
	AnchorBottom uint32 = 1 << 1
	AnchorLeft   uint32 = 1 << 2
	AnchorRight  uint32 = 1 << 3
)

// Keyboard interactivity modes.
const (
	KeyboardInteractivityNone      uint32 = 0
	KeyboardInteractivityExclusive uint32 = 1
)

// LayerShell is the zwlr_layer_shell_v1 proxy, the overlay-layer extension.
type LayerShell struct {
	conn *wire.Conn
	id   uint32
}

func NewLayerShell(conn *wire.Conn, id uint32) *LayerShell {
	l := &LayerShell{conn: conn, id: id}
	conn.Register(id, l)
	return l
}

// HandleEvent ignores events; zwlr_layer_shell_v1 has none.
func (l *LayerShell) HandleEvent(opcode uint16, r *wire.Reader) error {
	return nil
}

// GetLayerSurface assigns the layer-surface role to surface on the given
// layer. The output is left to the compositor's choice.
func (l *LayerShell) GetLayerSurface(surface *Surface, layer uint32, namespace string) *LayerSurface {
	ls := &LayerSurface{conn: l.conn, id: l.conn.NewID()}
	l.conn.Register(ls.id, ls)
	l.conn.Send(wire.NewMessage(l.id, 0).
		PutUint(ls.id).
		PutUint(surface.ID()).
		PutUint(0). // output: compositor picks
		PutUint(layer).
		PutString(namespace))
	return ls
}

// LayerSurface is the zwlr_layer_surface_v1 proxy. The compositor proposes
// geometry through configure events; each must be acknowledged before the
// next commit.
type LayerSurface struct {
	conn *wire.Conn
	id   uint32

	OnConfigure func(serial, width, height uint32)
	OnClosed    func()
}

// HandleEvent decodes configure and closed events.
func (ls *LayerSurface) HandleEvent(opcode uint16, r *wire.Reader) error {
	switch opcode {
	case 0: // configure
		serial := r.Uint()
		width := r.Uint()
		height := r.Uint()
		if ls.OnConfigure != nil {
			ls.OnConfigure(serial, width, height)
		}
	case 1: // closed
		if ls.OnClosed != nil {
			ls.OnClosed()
		}
	}
	return nil
}

// SetSize requests the surface size. A zero width spans the anchored edges.
func (ls *LayerSurface) SetSize(width, height uint32) {
	ls.conn.Send(wire.NewMessage(ls.id, 0).PutUint(width).PutUint(height))
}

// SetAnchor anchors the surface to the given screen edges.
func (ls *LayerSurface) SetAnchor(anchor uint32) {
	ls.conn.Send(wire.NewMessage(ls.id, 1).PutUint(anchor))
}

// SetExclusiveZone reserves screen space so other surfaces are not covered.
func (ls *LayerSurface) SetExclusiveZone(zone int32) {
	ls.conn.Send(wire.NewMessage(ls.id, 2).PutInt(zone))
}

// SetKeyboardInteractivity requests keyboard focus behavior for the surface.
func (ls *LayerSurface) SetKeyboardInteractivity(mode uint32) {
	ls.conn.Send(wire.NewMessage(ls.id, 4).PutUint(mode))
}

// AckConfigure acknowledges a configure event. Committing without an ack is
// a protocol violation, so the session always acks before rendering.
func (ls *LayerSurface) AckConfigure(serial uint32) {
	ls.conn.Send(wire.NewMessage(ls.id, 6).PutUint(serial))
}

// Destroy deletes the layer surface.
func (ls *LayerSurface) Destroy() {
	ls.conn.Send(wire.NewMessage(ls.id, 7))
	ls.conn.Delete(ls.id)
}
