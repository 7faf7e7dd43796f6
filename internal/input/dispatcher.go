// Package input turns raw pointer and keyboard events into at most one
// Activation. Events are consumed in delivery order on the session loop;
// nothing here is safe for concurrent use.
package input

import (
	"log/slog"

	"github.com/jmylchreest/waysay/internal/proto"
	"github.com/jmylchreest/waysay/internal/render"
)

// Activation is the resolved outcome of the bar. Index is the button that
// was activated, or render.DismissIndex for a plain dismissal (escape key,
// dismiss button, compositor close, termination signal).
type Activation struct {
	Index int
}

// Dismissed reports whether the activation is a plain dismissal.
func (a Activation) Dismissed() bool { return a.Index == render.DismissIndex }

// PointerState is the tracked pointer position in surface-local
// coordinates, plus whether the primary button is held.
type PointerState struct {
	X, Y    float64
	Inside  bool
	Pressed bool
}

type queuedButton struct {
	generation uint64
	x, y       float64
	pressed    bool
}

// Dispatcher resolves input against the current hit-map. While the session
// is renegotiating geometry the hit-map is withdrawn and button events are
// queued against the generation they were produced under; they replay only
// if that generation is still current when the hit-map returns. The first
// resolved Activation is authoritative and the dispatcher goes inert.
type Dispatcher struct {
	logger *slog.Logger

	// OnActivation fires exactly once, for the first resolution.
	OnActivation func(Activation)

	pointer    PointerState
	hitmap     *render.HitMap
	generation uint64
	queue      []queuedButton
	inert      bool
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Pointer returns the current tracked pointer state.
func (d *Dispatcher) Pointer() PointerState { return d.pointer }

// Inert reports whether an Activation has already been resolved.
func (d *Dispatcher) Inert() bool { return d.inert }

// Suspend withdraws the hit-map while the surface geometry is being
// renegotiated. Button events arriving until Resume are queued.
func (d *Dispatcher) Suspend() {
	d.hitmap = nil
}

// Resume installs the hit-map for the given geometry generation and
// replays queued button events that were produced under it. Events from an
// older generation refer to rectangles that no longer exist and are
// discarded.
func (d *Dispatcher) Resume(h *render.HitMap, generation uint64) {
	d.hitmap = h
	queued := d.queue
	d.queue = nil
	for _, q := range queued {
		if q.generation != generation {
			d.logger.Debug("discarding stale input",
				"queued", q.generation, "current", generation)
			continue
		}
		d.button(q.x, q.y, q.pressed)
	}
	d.generation = generation
}

// PointerEnter, PointerLeave and PointerMotion only track state; they can
// never resolve an Activation, so they apply even without a hit-map.

func (d *Dispatcher) PointerEnter(x, y float64) {
	d.pointer.X, d.pointer.Y = x, y
	d.pointer.Inside = true
}

func (d *Dispatcher) PointerLeave() {
	d.pointer.Inside = false
	d.pointer.Pressed = false
}

func (d *Dispatcher) PointerMotion(x, y float64) {
	d.pointer.X, d.pointer.Y = x, y
}

// PointerButton handles a primary-button press or release. Activation
// happens on release inside a hit-map rectangle; a press alone never
// activates.
func (d *Dispatcher) PointerButton(button uint32, pressed bool) {
	if d.inert || button != proto.BtnLeft {
		return
	}
	if d.hitmap == nil {
		d.queue = append(d.queue, queuedButton{
			generation: d.generation,
			x:          d.pointer.X,
			y:          d.pointer.Y,
			pressed:    pressed,
		})
		return
	}
	d.button(d.pointer.X, d.pointer.Y, pressed)
}

func (d *Dispatcher) button(x, y float64, pressed bool) {
	if pressed {
		d.pointer.Pressed = true
		return
	}
	d.pointer.Pressed = false
	if t, ok := d.hitmap.Hit(x, y); ok {
		d.resolve(Activation{Index: t.Index})
	}
}

// Key handles a keyboard key event. Escape dismisses immediately, even
// while the hit-map is withdrawn: dismissal does not depend on geometry.
func (d *Dispatcher) Key(key uint32, pressed bool) {
	if pressed && key == proto.KeyEsc {
		d.Dismiss()
	}
}

// Dismiss resolves a plain dismissal. The session uses it for compositor
// close and termination signals.
func (d *Dispatcher) Dismiss() {
	d.resolve(Activation{Index: render.DismissIndex})
}

func (d *Dispatcher) resolve(a Activation) {
	if d.inert {
		d.logger.Debug("ignoring activation after resolution", "index", a.Index)
		return
	}
	d.inert = true
	d.queue = nil
	if d.OnActivation != nil {
		d.OnActivation(a)
	}
}
