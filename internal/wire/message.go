package wire

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants. Every message starts with two 32-bit words: the
// target object id, then size<<16|opcode. Sizes include the header and are
// always a multiple of four.
const (
	wordSize   = 4
	headerSize = 2 * wordSize
)

// Messages use the host byte order on the wire.
var order = binary.NativeEndian

// Message is an outgoing request under construction. Argument order must
// match the protocol definition for the opcode.
type Message struct {
	Object uint32
	Opcode uint16

	data []byte
	fds  []int
}

// NewMessage starts a request for the given object and opcode.
func NewMessage(object uint32, opcode uint16) *Message {
	return &Message{Object: object, Opcode: opcode}
}

// PutUint appends a 32-bit unsigned argument.
func (m *Message) PutUint(v uint32) *Message {
	m.data = order.AppendUint32(m.data, v)
	return m
}

// PutInt appends a 32-bit signed argument.
func (m *Message) PutInt(v int32) *Message {
	return m.PutUint(uint32(v))
}

// PutFixed appends a signed 24.8 fixed-point argument.
func (m *Message) PutFixed(v float64) *Message {
	return m.PutInt(int32(v * 256))
}

// PutString appends a string argument: 32-bit length (including the NUL
// terminator), the bytes, a NUL, then padding to a word boundary.
func (m *Message) PutString(s string) *Message {
	m.PutUint(uint32(len(s) + 1))
	m.data = append(m.data, s...)
	m.data = append(m.data, 0)
	for len(m.data)%wordSize != 0 {
		m.data = append(m.data, 0)
	}
	return m
}

// PutFd queues a file descriptor to be sent as ancillary data alongside
// this message. Fd arguments occupy no space in the message body.
func (m *Message) PutFd(fd int) *Message {
	m.fds = append(m.fds, fd)
	return m
}

// encode returns the framed bytes: header followed by the argument data.
func (m *Message) encode() []byte {
	size := headerSize + len(m.data)
	buf := make([]byte, headerSize, size)
	order.PutUint32(buf, m.Object)
	order.PutUint32(buf[wordSize:], uint32(size)<<16|uint32(m.Opcode))
	return append(buf, m.data...)
}

// Reader decodes the arguments of a single received event. Getters return
// zero values after a short read and record a protocol error retrievable
// via Err.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader wraps an event body for decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) short(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: truncated %s argument at offset %d", ErrProtocol, what, r.off)
	}
}

// Uint reads a 32-bit unsigned argument.
func (r *Reader) Uint() uint32 {
	if r.off+wordSize > len(r.data) {
		r.short("uint")
		return 0
	}
	v := order.Uint32(r.data[r.off:])
	r.off += wordSize
	return v
}

// Int reads a 32-bit signed argument.
func (r *Reader) Int() int32 {
	return int32(r.Uint())
}

// Fixed reads a signed 24.8 fixed-point argument as a float.
func (r *Reader) Fixed() float64 {
	return float64(r.Int()) / 256
}

// String reads a string argument, dropping the NUL terminator.
func (r *Reader) String() string {
	n := int(r.Uint())
	if r.err != nil {
		return ""
	}
	padded := n + (wordSize-n%wordSize)%wordSize
	if n == 0 || r.off+padded > len(r.data) {
		r.short("string")
		return ""
	}
	s := string(r.data[r.off : r.off+n-1])
	r.off += padded
	return s
}

// Array reads an array argument (length-prefixed bytes plus padding).
func (r *Reader) Array() []byte {
	n := int(r.Uint())
	if r.err != nil {
		return nil
	}
	padded := n + (wordSize-n%wordSize)%wordSize
	if r.off+padded > len(r.data) {
		r.short("array")
		return nil
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += padded
	return b
}

// Err returns the first decode error, if any.
func (r *Reader) Err() error {
	return r.err
}
