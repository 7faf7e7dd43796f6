// Package wire maintains the connection to the Wayland compositor: message
// framing, file descriptor passing, and demultiplexing of incoming events to
// per-object handlers. It also defines the failure taxonomy for the whole
// client.
package wire

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/sys/unix"
)

// Handler receives the events delivered to one protocol object.
type Handler interface {
	HandleEvent(opcode uint16, r *Reader) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(opcode uint16, r *Reader) error

func (f HandlerFunc) HandleEvent(opcode uint16, r *Reader) error {
	return f(opcode, r)
}

// Conn is a connection to the compositor. It is not safe for concurrent
// use; the client is a single-threaded event loop by design.
type Conn struct {
	sock   *net.UnixConn
	logger *slog.Logger

	handlers map[uint32]Handler
	nextID   uint32

	out    []byte // framed requests awaiting Flush
	outFds []int

	in    []byte // residual bytes of a partial event frame
	inFds []int  // ancillary fds not yet claimed by a handler
}

// Dial connects to the compositor socket named by $WAYLAND_DISPLAY (default
// "wayland-0") in the XDG runtime directory. An absolute $WAYLAND_DISPLAY is
// used as-is.
func Dial(logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(path) {
		if xdg.RuntimeDir == "" {
			return nil, fmt.Errorf("%w: XDG_RUNTIME_DIR is not set", ErrConnection)
		}
		path = filepath.Join(xdg.RuntimeDir, display)
	}

	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, path, err)
	}
	logger.Debug("connected to compositor", "socket", path)

	return NewConn(sock, logger), nil
}

// NewConn wraps an established unix socket. The wl_display object (id 1) is
// implicitly allocated; register its handler explicitly.
func NewConn(sock *net.UnixConn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		sock:     sock,
		logger:   logger,
		handlers: make(map[uint32]Handler),
		nextID:   1,
	}
}

// NewID allocates the next client-side object id.
func (c *Conn) NewID() uint32 {
	c.nextID++
	return c.nextID
}

// Register routes events for the given object id to h.
func (c *Conn) Register(id uint32, h Handler) {
	c.handlers[id] = h
}

// Delete removes the handler for an object id. Late events for the id are
// silently dropped afterwards.
func (c *Conn) Delete(id uint32) {
	delete(c.handlers, id)
}

// Send enqueues a framed request. Nothing hits the socket until Flush.
func (c *Conn) Send(m *Message) {
	c.out = append(c.out, m.encode()...)
	c.outFds = append(c.outFds, m.fds...)
}

// Flush writes all enqueued requests and their file descriptors. A broken
// pipe means the compositor went away; that is fatal and not retried.
func (c *Conn) Flush() error {
	if len(c.out) == 0 {
		return nil
	}
	var oob []byte
	if len(c.outFds) > 0 {
		oob = unix.UnixRights(c.outFds...)
	}
	_, _, err := c.sock.WriteMsgUnix(c.out, oob, nil)
	c.out = c.out[:0]
	c.outFds = c.outFds[:0]
	if err != nil {
		return fmt.Errorf("%w: write to compositor: %v", ErrIO, err)
	}
	return nil
}

// DispatchPending blocks until at least one event arrives (or the timeout
// expires, when timeout > 0), then decodes every complete frame and delivers
// each to its object's handler in arrival order. It returns the number of
// events processed. A timeout is not an error. Malformed frames and handler
// failures are fatal.
func (c *Conn) DispatchPending(timeout time.Duration) (int, error) {
	// A prior read may have buffered complete frames beyond the one that
	// was dispatched; drain those before blocking again.
	if n, err := c.drain(); n > 0 || err != nil {
		return n, err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.sock.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	buf := make([]byte, 4096)
	oob := make([]byte, 512)
	n, oobn, _, _, err := c.sock.ReadMsgUnix(buf, oob)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, nil
		}
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: compositor closed the connection", ErrIO)
		}
		return 0, fmt.Errorf("%w: read from compositor: %v", ErrIO, err)
	}
	c.in = append(c.in, buf[:n]...)
	if oobn > 0 {
		if err := c.parseFds(oob[:oobn]); err != nil {
			return 0, err
		}
	}

	return c.drain()
}

// drain decodes and dispatches every complete frame sitting in the input
// buffer.
func (c *Conn) drain() (int, error) {
	processed := 0
	for len(c.in) >= headerSize {
		object := order.Uint32(c.in)
		word := order.Uint32(c.in[wordSize:])
		size := int(word >> 16)
		opcode := uint16(word & 0xffff)
		if size < headerSize || size%wordSize != 0 {
			return processed, fmt.Errorf("%w: event for object %d has invalid size %d", ErrProtocol, object, size)
		}
		if len(c.in) < size {
			break
		}
		body := c.in[headerSize:size]
		c.in = c.in[size:]

		h, ok := c.handlers[object]
		if !ok {
			// Events may still be in flight for an object we already
			// destroyed; those are dropped.
			c.logger.Debug("event for unknown object", "object", object, "opcode", opcode)
			continue
		}
		r := NewReader(body)
		if err := h.HandleEvent(opcode, r); err != nil {
			return processed, err
		}
		if err := r.Err(); err != nil {
			return processed, err
		}
		processed++
	}

	// Any ancillary fd no handler claimed would otherwise leak.
	c.closeUnclaimedFds()
	return processed, nil
}

func (c *Conn) parseFds(oob []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("%w: parse control message: %v", ErrProtocol, err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		c.inFds = append(c.inFds, fds...)
	}
	return nil
}

// TakeFd claims the oldest received ancillary file descriptor. Handlers for
// events carrying fd arguments (such as wl_keyboard keymap) must call this.
func (c *Conn) TakeFd() (int, bool) {
	if len(c.inFds) == 0 {
		return -1, false
	}
	fd := c.inFds[0]
	c.inFds = c.inFds[1:]
	return fd, true
}

func (c *Conn) closeUnclaimedFds() {
	for _, fd := range c.inFds {
		unix.Close(fd)
	}
	c.inFds = c.inFds[:0]
}

// Close tears down the socket.
func (c *Conn) Close() error {
	c.closeUnclaimedFds()
	return c.sock.Close()
}
