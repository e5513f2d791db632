package ofpbuf

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestPutUninitGrows(t *testing.T) {
	b := New(2)
	first := b.PutUninit(4)
	assert.Equal(t, len(first), 4)
	assert.Equal(t, b.Size(), 4)
}

func TestPutIntegersNetworkByteOrder(t *testing.T) {
	b := New(0)
	b.PutU16(0x0102)
	b.PutU32(0x03040506)
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	assert.DeepEqual(t, b.Bytes(), want)
}

func TestConsumeHead(t *testing.T) {
	b := New(0)
	b.PutBytes([]byte{1, 2, 3, 4, 5})
	b.ConsumeHead(2)
	assert.DeepEqual(t, b.Bytes(), []byte{3, 4, 5})
}

func TestConsumeHeadPastEnd(t *testing.T) {
	b := New(0)
	b.PutBytes([]byte{1, 2})
	b.ConsumeHead(10)
	assert.Equal(t, b.Size(), 0)
}

func TestUseWrapsWithoutCopy(t *testing.T) {
	storage := []byte{9, 9, 9}
	b := Use(storage)
	assert.Equal(t, b.Size(), 3)
	b.Delete()
	assert.Equal(t, b.Size(), 3) // Use() buffers are not cleared by Delete
}

func TestClone(t *testing.T) {
	b := New(0)
	b.PutBytes([]byte{1, 2, 3})
	c := b.Clone()
	c.PutU8(4)
	assert.Equal(t, b.Size(), 3)
	assert.Equal(t, c.Size(), 4)
}
