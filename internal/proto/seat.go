package proto

import (
	"golang.org/x/sys/unix"

	"github.com/jmylchreest/waysay/internal/wire"
)

// Seat capability bits.
const (
	SeatCapabilityPointer  uint32 = 1 << 0
	SeatCapabilityKeyboard uint32 = 1 << 1
)

// KeyEsc is the evdev keycode for the escape key, as carried by
// wl_keyboard key events.
const KeyEsc uint32 = 1

// BtnLeft is the evdev code for the primary pointer button.
const BtnLeft uint32 = 0x110

// Seat is the wl_seat proxy, the input capability.
type Seat struct {
	conn *wire.Conn
	id   uint32

	// OnCapabilities fires when the compositor announces which input
	// devices the seat carries.
	OnCapabilities func(caps uint32)
}

func NewSeat(conn *wire.Conn, id uint32) *Seat {
	s := &Seat{conn: conn, id: id}
	conn.Register(id, s)
	return s
}

// HandleEvent processes capability announcements. The name event is
// ignored.
func (s *Seat) HandleEvent(opcode uint16, r *wire.Reader) error {
	if opcode == 0 && s.OnCapabilities != nil {
		s.OnCapabilities(r.Uint())
	}
	return nil
}

// GetPointer creates the pointer device object.
func (s *Seat) GetPointer() *Pointer {
	p := &Pointer{conn: s.conn, id: s.conn.NewID()}
	s.conn.Register(p.id, p)
	s.conn.Send(wire.NewMessage(s.id, 0).PutUint(p.id))
	return p
}

// GetKeyboard creates the keyboard device object.
func (s *Seat) GetKeyboard() *Keyboard {
	k := &Keyboard{conn: s.conn, id: s.conn.NewID()}
	s.conn.Register(k.id, k)
	s.conn.Send(wire.NewMessage(s.id, 1).PutUint(k.id))
	return k
}

// Pointer is the wl_pointer proxy. Coordinates are surface-local, in
// fractional pixels.
type Pointer struct {
	conn *wire.Conn
	id   uint32

	OnEnter  func(x, y float64)
	OnLeave  func()
	OnMotion func(x, y float64)
	OnButton func(button uint32, pressed bool)
}

// HandleEvent decodes pointer events. Axis and frame events are ignored.
func (p *Pointer) HandleEvent(opcode uint16, r *wire.Reader) error {
	switch opcode {
	case 0: // enter: serial, surface, x, y
		r.Uint()
		r.Uint()
		x, y := r.Fixed(), r.Fixed()
		if p.OnEnter != nil {
			p.OnEnter(x, y)
		}
	case 1: // leave: serial, surface
		if p.OnLeave != nil {
			p.OnLeave()
		}
	case 2: // motion: time, x, y
		r.Uint()
		x, y := r.Fixed(), r.Fixed()
		if p.OnMotion != nil {
			p.OnMotion(x, y)
		}
	case 3: // button: serial, time, button, state
		r.Uint()
		r.Uint()
		button := r.Uint()
		state := r.Uint()
		if p.OnButton != nil {
			p.OnButton(button, state == 1)
		}
	}
	return nil
}

// Keyboard is the wl_keyboard proxy. The keymap is not interpreted; the bar
// only reacts to raw evdev keycodes.
type Keyboard struct {
	conn *wire.Conn
	id   uint32

	OnKey func(key uint32, pressed bool)
}

// HandleEvent decodes keyboard events. The keymap fd is claimed and closed
// so it cannot leak.
func (k *Keyboard) HandleEvent(opcode uint16, r *wire.Reader) error {
	switch opcode {
	case 0: // keymap: format, fd, size
		if fd, ok := k.conn.TakeFd(); ok {
			unix.Close(fd)
		}
	case 3: // key: serial, time, key, state
		r.Uint()
		r.Uint()
		key := r.Uint()
		state := r.Uint()
		if k.OnKey != nil {
			k.OnKey(key, state == 1)
		}
	}
	return nil
}
