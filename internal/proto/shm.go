package proto

import "github.com/jmylchreest/waysay/internal/wire"

// FormatARGB8888 is the wl_shm pixel format the bar renders in: 32 bits per
// pixel, alpha in the high byte, little-endian.
const FormatARGB8888 uint32 = 0

// Shm is the wl_shm proxy, the shared memory allocator capability.
type Shm struct {
	conn *wire.Conn
	id   uint32
}

func NewShm(conn *wire.Conn, id uint32) *Shm {
	s := &Shm{conn: conn, id: id}
	conn.Register(id, s)
	return s
}

// HandleEvent ignores format advertisements; ARGB8888 support is mandated
// by the protocol.
func (s *Shm) HandleEvent(opcode uint16, r *wire.Reader) error {
	return nil
}

// CreatePool shares the memory behind fd with the compositor.
func (s *Shm) CreatePool(fd int, size int32) *ShmPool {
	p := &ShmPool{conn: s.conn, id: s.conn.NewID()}
	s.conn.Register(p.id, p)
	s.conn.Send(wire.NewMessage(s.id, 0).PutUint(p.id).PutFd(fd).PutInt(size))
	return p
}

// ShmPool is the wl_shm_pool proxy.
type ShmPool struct {
	conn *wire.Conn
	id   uint32
}

// HandleEvent ignores events; wl_shm_pool has none.
func (p *ShmPool) HandleEvent(opcode uint16, r *wire.Reader) error {
	return nil
}

// CreateBuffer carves a wl_buffer out of the pool.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) *Buffer {
	b := &Buffer{conn: p.conn, id: p.conn.NewID()}
	p.conn.Register(b.id, b)
	p.conn.Send(wire.NewMessage(p.id, 0).
		PutUint(b.id).
		PutInt(offset).
		PutInt(width).
		PutInt(height).
		PutInt(stride).
		PutUint(format))
	return b
}

// Destroy deletes the pool object. Buffers created from it stay valid until
// they are destroyed themselves.
func (p *ShmPool) Destroy() {
	p.conn.Send(wire.NewMessage(p.id, 1))
	p.conn.Delete(p.id)
}

// Buffer is the wl_buffer proxy. Its release event is the only signal that
// the compositor has given the underlying memory back to the client.
type Buffer struct {
	conn *wire.Conn
	id   uint32

	// OnRelease fires when the compositor no longer reads the buffer.
	OnRelease func()
}

// ID returns the buffer's object id, as used by wl_surface attach.
func (b *Buffer) ID() uint32 {
	return b.id
}

// HandleEvent processes the release event.
func (b *Buffer) HandleEvent(opcode uint16, r *wire.Reader) error {
	if opcode == 0 && b.OnRelease != nil {
		b.OnRelease()
	}
	return nil
}

// Destroy deletes the buffer object.
func (b *Buffer) Destroy() {
	b.conn.Send(wire.NewMessage(b.id, 0))
	b.conn.Delete(b.id)
}
