package wire

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type handlerFunc func(opcode uint16, r *Reader) error

func (f handlerFunc) HandleEvent(opcode uint16, r *Reader) error {
	return f(opcode, r)
}

// connPair returns a client Conn and the raw peer socket standing in for the
// compositor.
func connPair(t *testing.T) (*Conn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	client := fdToUnixConn(t, fds[0], "client")
	server := fdToUnixConn(t, fds[1], "server")

	conn := NewConn(client, nil)
	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})
	return conn, server
}

func fdToUnixConn(t *testing.T, fd int, name string) *net.UnixConn {
	t.Helper()
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()
	c, err := net.FileConn(f)
	require.NoError(t, err)
	uc, ok := c.(*net.UnixConn)
	require.True(t, ok)
	return uc
}

func TestMessageEncode(t *testing.T) {
	m := NewMessage(1, 1).PutUint(2)
	b := m.encode()

	require.Len(t, b, 12)
	assert.Equal(t, uint32(1), order.Uint32(b))
	assert.Equal(t, uint32(12)<<16|1, order.Uint32(b[4:]))
	assert.Equal(t, uint32(2), order.Uint32(b[8:]))
}

func TestMessageStringPadding(t *testing.T) {
	// "abc" plus NUL is exactly one word; "abcd" plus NUL needs padding.
	b := NewMessage(3, 0).PutString("abc").encode()
	assert.Len(t, b, headerSize+4+4)

	b = NewMessage(3, 0).PutString("abcd").encode()
	assert.Len(t, b, headerSize+4+8)

	r := NewReader(b[headerSize:])
	assert.Equal(t, "abcd", r.String())
	require.NoError(t, r.Err())
}

func TestReaderFixed(t *testing.T) {
	b := NewMessage(3, 0).PutFixed(12.5).PutFixed(-3).encode()
	r := NewReader(b[headerSize:])
	assert.InDelta(t, 12.5, r.Fixed(), 0.004)
	assert.InDelta(t, -3.0, r.Fixed(), 0.004)
	require.NoError(t, r.Err())
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 0})
	r.Uint()
	assert.ErrorIs(t, r.Err(), ErrProtocol)
}

func TestDispatchDeliversInOrder(t *testing.T) {
	conn, server := connPair(t)

	var got []uint32
	conn.Register(5, handlerFunc(func(opcode uint16, r *Reader) error {
		got = append(got, r.Uint())
		return nil
	}))

	var frames []byte
	for i := uint32(1); i <= 3; i++ {
		frames = append(frames, NewMessage(5, 0).PutUint(i).encode()...)
	}
	_, err := server.Write(frames)
	require.NoError(t, err)

	n, err := conn.DispatchPending(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uint32{1, 2, 3}, got)
}

func TestDispatchSplitFrame(t *testing.T) {
	conn, server := connPair(t)

	var got uint32
	conn.Register(7, handlerFunc(func(opcode uint16, r *Reader) error {
		got = r.Uint()
		return nil
	}))

	frame := NewMessage(7, 2).PutUint(99).encode()
	_, err := server.Write(frame[:5])
	require.NoError(t, err)

	n, err := conn.DispatchPending(50 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = server.Write(frame[5:])
	require.NoError(t, err)
	n, err = conn.DispatchPending(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint32(99), got)
}

func TestDispatchUnknownObjectIgnored(t *testing.T) {
	conn, server := connPair(t)

	_, err := server.Write(NewMessage(42, 0).PutUint(1).encode())
	require.NoError(t, err)

	n, err := conn.DispatchPending(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatchMalformedSizeIsProtocolError(t *testing.T) {
	conn, server := connPair(t)

	bad := make([]byte, headerSize)
	order.PutUint32(bad, 9)
	order.PutUint32(bad[4:], uint32(4)<<16) // size below header size
	_, err := server.Write(bad)
	require.NoError(t, err)

	_, err = conn.DispatchPending(time.Second)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDispatchTimeout(t *testing.T) {
	conn, _ := connPair(t)

	n, err := conn.DispatchPending(20 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatchPeerGone(t *testing.T) {
	conn, server := connPair(t)
	server.Close()

	_, err := conn.DispatchPending(time.Second)
	assert.ErrorIs(t, err, ErrIO)
}

func TestFlushBrokenPipe(t *testing.T) {
	conn, server := connPair(t)
	server.Close()

	// A small write into a closed socketpair fails immediately.
	conn.Send(NewMessage(1, 0).PutUint(2))
	err := conn.Flush()
	assert.ErrorIs(t, err, ErrIO)
}

func TestHandlerErrorStopsDispatch(t *testing.T) {
	conn, server := connPair(t)

	boom := errors.New("boom")
	conn.Register(4, handlerFunc(func(opcode uint16, r *Reader) error {
		return boom
	}))
	_, err := server.Write(NewMessage(4, 0).encode())
	require.NoError(t, err)

	_, err = conn.DispatchPending(time.Second)
	assert.ErrorIs(t, err, boom)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("usage")))
	assert.Equal(t, 2, ExitCode(errWrap(ErrConnection)))
	assert.Equal(t, 3, ExitCode(errWrap(ErrProtocol)))
	assert.Equal(t, 4, ExitCode(errWrap(ErrAllocation)))
	assert.Equal(t, 5, ExitCode(errWrap(ErrIO)))
	// Spawn failures are recovered, they never decide the exit code.
	assert.False(t, Fatal(errWrap(ErrSpawn)))
}

func errWrap(k *Kind) error {
	return errors.Join(k, errors.New("detail"))
}
