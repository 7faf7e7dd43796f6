package proto

import (
	"fmt"

	"github.com/jmylchreest/waysay/internal/wire"
)

// DisplayID is the fixed object id of wl_display on every connection.
const DisplayID = 1

// Display is the wl_display proxy, the root object of the connection.
type Display struct {
	conn *wire.Conn
}

// NewDisplay claims object id 1 and registers its event handler.
func NewDisplay(conn *wire.Conn) *Display {
	d := &Display{conn: conn}
	conn.Register(DisplayID, d)
	return d
}

// HandleEvent processes wl_display events. A compositor-reported error is a
// fatal protocol violation.
func (d *Display) HandleEvent(opcode uint16, r *wire.Reader) error {
	switch opcode {
	case 0: // error
		object := r.Uint()
		code := r.Uint()
		message := r.String()
		return fmt.Errorf("%w: compositor error on object %d (code %d): %s",
			wire.ErrProtocol, object, code, message)
	case 1: // delete_id
		d.conn.Delete(r.Uint())
	}
	return nil
}

// GetRegistry creates the wl_registry object that will announce globals.
func (d *Display) GetRegistry() *Registry {
	reg := &Registry{conn: d.conn, id: d.conn.NewID()}
	d.conn.Register(reg.id, reg)
	d.conn.Send(wire.NewMessage(DisplayID, 1).PutUint(reg.id))
	return reg
}

// Roundtrip sends wl_display sync and dispatches events until the
// compositor answers, guaranteeing every prior request has been processed.
func (d *Display) Roundtrip() error {
	done := false
	id := d.conn.NewID()
	d.conn.Register(id, wire.HandlerFunc(func(opcode uint16, r *wire.Reader) error {
		if opcode == 0 { // done
			done = true
			d.conn.Delete(id)
		}
		return nil
	}))
	d.conn.Send(wire.NewMessage(DisplayID, 0).PutUint(id))
	if err := d.conn.Flush(); err != nil {
		return err
	}
	for !done {
		if _, err := d.conn.DispatchPending(0); err != nil {
			return err
		}
	}
	return nil
}
