package shm

import (
	"encoding/binary"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/jmylchreest/waysay/internal/proto"
	"github.com/jmylchreest/waysay/internal/wire"
)

func testConn(t *testing.T) (*wire.Conn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	toConn := func(fd int, name string) *net.UnixConn {
		f := os.NewFile(uintptr(fd), name)
		defer f.Close()
		c, err := net.FileConn(f)
		require.NoError(t, err)
		return c.(*net.UnixConn)
	}

	client := toConn(fds[0], "client")
	server := toConn(fds[1], "server")
	conn := wire.NewConn(client, nil)
	t.Cleanup(func() {
		conn.Close()
		server.Close()
	})
	return conn, server
}

func readRequests(t *testing.T, server *net.UnixConn, n int) [][]byte {
	t.Helper()
	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	var buf []byte
	var frames [][]byte
	tmp := make([]byte, 4096)
	oob := make([]byte, 512)
	for len(frames) < n {
		if len(buf) >= 8 {
			size := int(binary.NativeEndian.Uint32(buf[4:]) >> 16)
			if len(buf) >= size {
				frames = append(frames, buf[:size])
				buf = buf[size:]
				continue
			}
		}
		rn, _, _, _, err := server.ReadMsgUnix(tmp, oob)
		require.NoError(t, err)
		buf = append(buf, tmp[:rn]...)
	}
	return frames
}

func releaseEvent(bufferID uint32) []byte {
	b := make([]byte, 8)
	binary.NativeEndian.PutUint32(b, bufferID)
	binary.NativeEndian.PutUint32(b[4:], uint32(8)<<16|0)
	return b
}

// commit runs a buffer through the attach/commit half of its lifecycle.
func commit(t *testing.T, conn *wire.Conn, b *Buffer) {
	t.Helper()
	comp := proto.NewCompositor(conn, 200)
	surface := comp.CreateSurface()
	b.Attach(surface)
	assert.Equal(t, StateAttached, b.State())
	surface.Commit()
	b.MarkCommitted()
	assert.Equal(t, StateCommitted, b.State())
}

func TestAcquireAllocatesSharedMemory(t *testing.T) {
	conn, server := testConn(t)
	mgr := NewManager(conn, proto.NewShm(conn, 100), nil)

	b, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Allocations())
	assert.Equal(t, StateFree, b.State())
	assert.Len(t, b.Pixels(), 120*32*4)
	assert.Equal(t, 120*4, b.Stride())

	// The full write path must be usable.
	for i := range b.Pixels() {
		b.Pixels()[i] = 0xff
	}

	require.NoError(t, conn.Flush())
	reqs := readRequests(t, server, 3) // create_pool, create_buffer, pool destroy
	assert.Equal(t, uint32(100), binary.NativeEndian.Uint32(reqs[0]))
}

func TestBufferReuseAfterRelease(t *testing.T) {
	conn, server := testConn(t)
	mgr := NewManager(conn, proto.NewShm(conn, 100), nil)

	b1, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	commit(t, conn, b1)

	require.NoError(t, conn.Flush())
	reqs := readRequests(t, server, 3)
	bufferID := binary.NativeEndian.Uint32(reqs[1][8:])

	// Compositor hands the buffer back.
	_, err = server.Write(releaseEvent(bufferID))
	require.NoError(t, err)
	_, err = conn.DispatchPending(time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateReleased, b1.State())

	// Same dimensions: recycled, no new shared memory.
	b2, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	assert.Same(t, b1, b2)
	assert.Equal(t, 1, mgr.Allocations())
	assert.Equal(t, StateFree, b2.State())
}

func TestMismatchedBufferIsReplaced(t *testing.T) {
	conn, server := testConn(t)
	mgr := NewManager(conn, proto.NewShm(conn, 100), nil)

	b1, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	commit(t, conn, b1)

	require.NoError(t, conn.Flush())
	reqs := readRequests(t, server, 3)
	bufferID := binary.NativeEndian.Uint32(reqs[1][8:])
	_, err = server.Write(releaseEvent(bufferID))
	require.NoError(t, err)
	_, err = conn.DispatchPending(time.Second)
	require.NoError(t, err)

	// New width: the released buffer cannot serve, it is destroyed and a
	// fresh one allocated.
	b2, err := mgr.Acquire(200, 48)
	require.NoError(t, err)
	assert.NotSame(t, b1, b2)
	assert.Equal(t, 2, mgr.Allocations())
	assert.Len(t, b2.Pixels(), 200*48*4)
}

func TestDoubleBufferingWhileCommitted(t *testing.T) {
	conn, _ := testConn(t)
	mgr := NewManager(conn, proto.NewShm(conn, 100), nil)

	b1, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	commit(t, conn, b1)

	// No release yet: the committed buffer must not be handed out again.
	b2, err := mgr.Acquire(120, 32)
	require.NoError(t, err)
	assert.NotSame(t, b1, b2)
	assert.Equal(t, 2, mgr.Allocations())

	mgr.Close()
}

func TestAcquireRejectsEmptyDimensions(t *testing.T) {
	conn, _ := testConn(t)
	mgr := NewManager(conn, proto.NewShm(conn, 100), nil)

	_, err := mgr.Acquire(0, 32)
	assert.ErrorIs(t, err, wire.ErrAllocation)
}
