// Package session drives the bar's lifecycle: negotiate geometry with the
// compositor, render frames, collect input, resolve exactly one activation,
// and tear the surface down. Everything runs on a single goroutine; protocol
// callbacks only record facts, and the loop acts on them between dispatches.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmylchreest/waysay/internal/action"
	"github.com/jmylchreest/waysay/internal/config"
	"github.com/jmylchreest/waysay/internal/input"
	"github.com/jmylchreest/waysay/internal/proto"
	"github.com/jmylchreest/waysay/internal/render"
	"github.com/jmylchreest/waysay/internal/shm"
	"github.com/jmylchreest/waysay/internal/theme"
	"github.com/jmylchreest/waysay/internal/wire"
)

// State is the session's lifecycle phase. Transitions are forward-only
// except for the geometry back-edge: a committed size that turns out too
// small for the content re-enters StateConfigured.
type State int

const (
	StateNegotiating State = iota
	StateConfigured
	StateRendering
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNegotiating:
		return "negotiating"
	case StateConfigured:
		return "configured"
	case StateRendering:
		return "rendering"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// pollInterval bounds how long a dispatch blocks so the loop can notice a
// termination signal.
const pollInterval = 250 * time.Millisecond

const namespace = "waysay"

type configureEvent struct {
	serial uint32
	width  uint32
	height uint32
}

// Session owns the surface from creation to destruction.
type Session struct {
	logger   *slog.Logger
	conn     *wire.Conn
	globals  *proto.Globals
	opts     config.Options
	palette  theme.Palette
	shaper   *render.Shaper
	buffers  *shm.Manager
	dispatch *input.Dispatcher
	executor *action.Executor

	surface *proto.Surface
	layer   *proto.LayerSurface

	state      State
	width      uint32
	height     uint32
	generation uint64

	pending    *configureEvent
	activation *input.Activation
	fatal      error
}

// New assembles a session over an established connection and bound globals.
func New(conn *wire.Conn, globals *proto.Globals, opts config.Options, pal theme.Palette, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	shaper, err := render.NewShaper(render.FontSize)
	if err != nil {
		return nil, err
	}
	s := &Session{
		logger:   logger,
		conn:     conn,
		globals:  globals,
		opts:     opts,
		palette:  pal,
		shaper:   shaper,
		buffers:  shm.NewManager(conn, globals.Shm, logger),
		dispatch: input.NewDispatcher(logger),
		executor: action.NewExecutor(logger),
	}
	s.dispatch.OnActivation = func(a input.Activation) { s.activation = &a }
	return s, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Buffers exposes the frame buffer manager.
func (s *Session) Buffers() *shm.Manager { return s.buffers }

// Run executes the session to completion and returns the error that ended
// it, nil for a normal activation or dismissal. Signals on sig are treated
// as a priority dismissal.
func (s *Session) Run(sig <-chan os.Signal) error {
	s.start()
	if err := s.conn.Flush(); err != nil {
		s.fail(err)
	}

	for s.state != StateClosed {
		select {
		case <-sig:
			s.logger.Info("termination signal, dismissing")
			s.dispatch.Dismiss()
		default:
		}

		if s.fatal != nil {
			s.teardown()
			break
		}
		if s.activation != nil && s.state != StateClosing {
			s.resolve(*s.activation)
			continue
		}
		if s.pending != nil {
			c := *s.pending
			s.pending = nil
			s.configure(c)
			if err := s.conn.Flush(); err != nil {
				s.fail(err)
			}
			continue
		}

		if _, err := s.conn.DispatchPending(pollInterval); err != nil {
			s.fail(err)
			continue
		}
		// Event handlers may have enqueued requests (seat devices).
		if err := s.conn.Flush(); err != nil {
			s.fail(err)
		}
	}
	return s.fatal
}

// start creates the surface, assigns the layer role and sends the initial
// (buffer-less) commit that solicits the first configure.
func (s *Session) start() {
	s.surface = s.globals.Compositor.CreateSurface()
	s.layer = s.globals.LayerShell.GetLayerSurface(s.surface, proto.LayerOverlay, namespace)
	s.layer.OnConfigure = func(serial, width, height uint32) {
		s.pending = &configureEvent{serial: serial, width: width, height: height}
	}
	s.layer.OnClosed = func() {
		s.logger.Debug("compositor closed the surface")
		s.dispatch.Dismiss()
	}

	s.layer.SetAnchor(proto.AnchorTop | proto.AnchorLeft | proto.AnchorRight)
	s.layer.SetSize(0, render.DefaultHeight)
	s.layer.SetExclusiveZone(render.DefaultHeight)
	s.layer.SetKeyboardInteractivity(proto.KeyboardInteractivityExclusive)
	s.surface.Commit()

	if s.globals.Seat != nil {
		s.globals.Seat.OnCapabilities = s.bindInputs
	} else {
		s.logger.Warn("no seat advertised, bar will take no input")
	}
	s.state = StateNegotiating
	s.logger.Debug("state", "state", s.state)
}

func (s *Session) bindInputs(caps uint32) {
	if caps&proto.SeatCapabilityPointer != 0 {
		p := s.globals.Seat.GetPointer()
		p.OnEnter = s.dispatch.PointerEnter
		p.OnLeave = s.dispatch.PointerLeave
		p.OnMotion = s.dispatch.PointerMotion
		p.OnButton = s.dispatch.PointerButton
	}
	if caps&proto.SeatCapabilityKeyboard != 0 {
		s.globals.Seat.GetKeyboard().OnKey = s.dispatch.Key
	}
}

// configure acknowledges the compositor's proposed geometry and either
// renders into it or, when the content needs a taller surface, requests the
// grown size and waits for the next configure.
func (s *Session) configure(c configureEvent) {
	s.layer.AckConfigure(c.serial)

	width, height := c.width, c.height
	if height == 0 {
		height = render.DefaultHeight
	}
	if width == 0 || s.state == StateClosing {
		return
	}

	if width != s.width || height != s.height {
		s.generation++
		s.dispatch.Suspend()
	}
	s.width, s.height = width, height
	s.state = StateConfigured

	layout := render.Compute(int(width), int(height), s.opts.Message, s.opts.Buttons, s.shaper)
	if layout.RequiredHeight > int(height) {
		s.logger.Debug("renegotiating height",
			"configured", height, "required", layout.RequiredHeight)
		s.layer.SetSize(0, uint32(layout.RequiredHeight))
		s.layer.SetExclusiveZone(int32(layout.RequiredHeight))
		s.surface.Commit()
		return
	}

	s.state = StateRendering
	buf, err := s.buffers.Acquire(int(width), int(height))
	if err != nil {
		s.fail(err)
		return
	}
	layout.Paint(buf.Pixels(), buf.Stride(), s.palette, s.shaper)
	buf.Attach(s.surface)
	s.surface.Damage(0, 0, int32(width), int32(height))
	s.surface.Commit()
	buf.MarkCommitted()

	s.dispatch.Resume(&layout.HitMap, s.generation)
	s.state = StateActive
	s.logger.Debug("state", "state", s.state, "width", width, "height", height,
		"generation", s.generation)
}

// resolve handles the authoritative activation: run the button command if
// one was chosen, then close.
func (s *Session) resolve(a input.Activation) {
	s.state = StateClosing
	s.logger.Debug("state", "state", s.state, "index", a.Index)

	if !a.Dismissed() {
		if a.Index < 0 || a.Index >= len(s.opts.Buttons) {
			s.fail(fmt.Errorf("%w: activation for unknown button %d", wire.ErrProtocol, a.Index))
			return
		}
		if err := s.executor.Execute(s.opts.Buttons[a.Index].Command); err != nil {
			// Spawn failures never change the outcome.
			s.logger.Warn("command failed to start", "error", err)
		}
	}
	s.teardown()
}

// teardown releases every protocol resource and moves to StateClosed. It is
// safe to call with the connection already broken; errors here cannot
// displace an earlier fatal error.
func (s *Session) teardown() {
	s.buffers.Close()
	if s.layer != nil {
		s.layer.Destroy()
		s.layer = nil
	}
	if s.surface != nil {
		s.surface.Destroy()
		s.surface = nil
	}
	if err := s.conn.Flush(); err != nil && s.fatal == nil {
		s.logger.Debug("flush during teardown", "error", err)
	}
	s.state = StateClosed
	s.logger.Debug("state", "state", s.state)
}

func (s *Session) fail(err error) {
	if s.fatal == nil {
		s.fatal = err
		s.logger.Error("fatal session error", "error", err)
	}
	s.state = StateClosing
}
