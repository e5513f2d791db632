// Package ofpbuf provides an owned, appendable, consumable octet container
// used everywhere a wire-format message is built or parsed.
package ofpbuf

import "encoding/binary"

// Buffer is an owned byte container. data[:size] is always valid to read;
// writer methods keep size <= cap(data).
type Buffer struct {
	data  []byte
	used  bool // true once wrapped with Use(), so Buffer does not own data
}

// New allocates a Buffer with the given initial capacity.
func New(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Use wraps caller-owned storage without taking ownership of it. The
// returned Buffer's Size() starts at len(storage).
func Use(storage []byte) *Buffer {
	return &Buffer{data: storage, used: true}
}

// Size returns the number of valid bytes.
func (b *Buffer) Size() int { return len(b.data) }

// Bytes returns the valid prefix. Callers must not retain it past the next
// mutation of b.
func (b *Buffer) Bytes() []byte { return b.data }

// PutUninit extends the buffer by n bytes and returns the writable region.
// The new bytes are not zeroed.
func (b *Buffer) PutUninit(n int) []byte {
	base := len(b.data)
	if cap(b.data) < base+n {
		grown := make([]byte, base, growCap(cap(b.data), base+n))
		copy(grown, b.data)
		b.data = grown
	}
	b.data = b.data[:base+n]
	return b.data[base : base+n]
}

func growCap(have, need int) int {
	if have == 0 {
		have = 64
	}
	for have < need {
		have *= 2
	}
	return have
}

// PutU8 appends a single byte.
func (b *Buffer) PutU8(v uint8) {
	b.PutUninit(1)[0] = v
}

// PutU16 appends v in network byte order.
func (b *Buffer) PutU16(v uint16) {
	binary.BigEndian.PutUint16(b.PutUninit(2), v)
}

// PutU32 appends v in network byte order.
func (b *Buffer) PutU32(v uint32) {
	binary.BigEndian.PutUint32(b.PutUninit(4), v)
}

// PutU64 appends v in network byte order.
func (b *Buffer) PutU64(v uint64) {
	binary.BigEndian.PutUint64(b.PutUninit(8), v)
}

// PutBytes appends raw, already-ordered bytes (MAC addresses, payloads,
// padded strings) without any byte-swapping.
func (b *Buffer) PutBytes(p []byte) {
	copy(b.PutUninit(len(p)), p)
}

// PutZeros appends n zero bytes, used for alignment pad and reserved union
// members that must be zero on the wire.
func (b *Buffer) PutZeros(n int) {
	p := b.PutUninit(n)
	for i := range p {
		p[i] = 0
	}
}

// ConsumeHead removes the first n bytes, shifting the remainder down.
func (b *Buffer) ConsumeHead(n int) {
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}

// Clone returns a new Buffer with an independent copy of the valid bytes.
func (b *Buffer) Clone() *Buffer {
	c := New(len(b.data))
	c.PutBytes(b.data)
	return c
}

// Delete releases the buffer's storage. It is a no-op for buffers created
// with Use(), since those never owned their storage.
func (b *Buffer) Delete() {
	if b.used {
		return
	}
	b.data = nil
}
