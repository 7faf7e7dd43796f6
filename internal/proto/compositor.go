package proto

import "github.com/jmylchreest/waysay/internal/wire"

// Compositor is the wl_compositor proxy, the surface factory.
type Compositor struct {
	conn *wire.Conn
	id   uint32
}

func NewCompositor(conn *wire.Conn, id uint32) *Compositor {
	c := &Compositor{conn: conn, id: id}
	conn.Register(id, c)
	return c
}

// HandleEvent ignores events; wl_compositor has none.
func (c *Compositor) HandleEvent(opcode uint16, r *wire.Reader) error {
	return nil
}

// CreateSurface creates a bare wl_surface.
func (c *Compositor) CreateSurface() *Surface {
	s := &Surface{conn: c.conn, id: c.conn.NewID()}
	c.conn.Register(s.id, s)
	c.conn.Send(wire.NewMessage(c.id, 0).PutUint(s.id))
	return s
}

// Surface is the wl_surface proxy.
type Surface struct {
	conn *wire.Conn
	id   uint32
}

// ID returns the surface's object id.
func (s *Surface) ID() uint32 {
	return s.id
}

// HandleEvent ignores enter/leave and scale hints; the bar draws the same
// content on every output.
func (s *Surface) HandleEvent(opcode uint16, r *wire.Reader) error {
	return nil
}

// Attach sets the buffer to be displayed on the next commit.
func (s *Surface) Attach(buffer uint32, x, y int32) {
	s.conn.Send(wire.NewMessage(s.id, 1).PutUint(buffer).PutInt(x).PutInt(y))
}

// Damage marks a region as needing repaint.
func (s *Surface) Damage(x, y, width, height int32) {
	s.conn.Send(wire.NewMessage(s.id, 2).PutInt(x).PutInt(y).PutInt(width).PutInt(height))
}

// Commit atomically applies the pending surface state, making the attached
// buffer's contents visible.
func (s *Surface) Commit() {
	s.conn.Send(wire.NewMessage(s.id, 6))
}

// Destroy deletes the surface.
func (s *Surface) Destroy() {
	s.conn.Send(wire.NewMessage(s.id, 0))
	s.conn.Delete(s.id)
}
