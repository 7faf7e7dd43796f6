// Package shm manages the shared memory frame buffers the bar renders
// into. Buffers hand ownership to the compositor between attach and the
// corresponding release event; recycling is driven purely by that event,
// there is no manual release path.
package shm

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/jmylchreest/waysay/internal/proto"
	"github.com/jmylchreest/waysay/internal/wire"
)

// State tracks who owns a buffer's memory.
type State int

const (
	// StateFree: client-owned and writable.
	StateFree State = iota
	// StateAttached: attached to the surface, not yet committed.
	StateAttached
	// StateCommitted: compositor-owned; writing into it would tear.
	StateCommitted
	// StateReleased: handed back by the compositor, reusable.
	StateReleased
)

// Buffer is one shared memory frame: a memfd-backed mapping plus its
// wl_buffer proxy.
type Buffer struct {
	proxy  *proto.Buffer
	fd     int
	data   []byte
	width  int
	height int
	stride int
	state  State
}

// Pixels returns the writable ARGB pixel slice. Only call while the buffer
// is client-owned.
func (b *Buffer) Pixels() []byte { return b.data }

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }
func (b *Buffer) Stride() int { return b.stride }

// State returns the buffer's ownership state.
func (b *Buffer) State() State { return b.state }

// Attach attaches the buffer to the surface at the origin.
func (b *Buffer) Attach(s *proto.Surface) {
	s.Attach(b.proxy.ID(), 0, 0)
	b.state = StateAttached
}

// MarkCommitted records that the surface commit carrying this buffer was
// sent; ownership is now with the compositor until its release event.
func (b *Buffer) MarkCommitted() {
	if b.state == StateAttached {
		b.state = StateCommitted
	}
}

// Manager allocates and recycles frame buffers sized to the current surface
// dimensions. It keeps at most two buffers alive (double buffering).
type Manager struct {
	conn   *wire.Conn
	shm    *proto.Shm
	logger *slog.Logger

	buffers []*Buffer
	allocs  int
}

// NewManager wraps the bound wl_shm capability.
func NewManager(conn *wire.Conn, shm *proto.Shm, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{conn: conn, shm: shm, logger: logger}
}

// Acquire returns a client-owned buffer of the given dimensions, reusing a
// released one when it matches. Mismatched idle buffers are destroyed so at
// most one committed and one incoming buffer exist at a time.
func (m *Manager) Acquire(width, height int) (*Buffer, error) {
	for _, b := range m.buffers {
		if b.width == width && b.height == height &&
			(b.state == StateFree || b.state == StateReleased) {
			b.state = StateFree
			return b, nil
		}
	}

	kept := m.buffers[:0]
	for _, b := range m.buffers {
		if b.state == StateFree || b.state == StateReleased {
			m.destroy(b)
		} else {
			kept = append(kept, b)
		}
	}
	m.buffers = kept

	b, err := m.allocate(width, height)
	if err != nil {
		return nil, err
	}
	m.buffers = append(m.buffers, b)
	return b, nil
}

func (m *Manager) allocate(width, height int) (*Buffer, error) {
	stride := width * 4
	size := stride * height
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid buffer size %dx%d", wire.ErrAllocation, width, height)
	}

	fd, err := unix.MemfdCreate("waysay-frame", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %v", wire.ErrAllocation, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: ftruncate %d bytes: %v", wire.ErrAllocation, size, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", wire.ErrAllocation, size, err)
	}

	pool := m.shm.CreatePool(fd, int32(size))
	proxy := pool.CreateBuffer(0, int32(width), int32(height), int32(stride), proto.FormatARGB8888)
	// The buffer keeps the pool's memory alive server-side.
	pool.Destroy()

	b := &Buffer{
		proxy:  proxy,
		fd:     fd,
		data:   data,
		width:  width,
		height: height,
		stride: stride,
		state:  StateFree,
	}
	proxy.OnRelease = func() {
		if b.state == StateCommitted {
			b.state = StateReleased
		}
	}
	m.allocs++
	m.logger.Debug("allocated frame buffer", "width", width, "height", height, "total", m.allocs)
	return b, nil
}

func (m *Manager) destroy(b *Buffer) {
	b.proxy.Destroy()
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
	unix.Close(b.fd)
}

// Allocations returns how many buffers have been allocated over the
// manager's lifetime.
func (m *Manager) Allocations() int { return m.allocs }

// Close destroys every buffer regardless of state; only call during
// session teardown.
func (m *Manager) Close() {
	for _, b := range m.buffers {
		m.destroy(b)
	}
	m.buffers = nil
}
