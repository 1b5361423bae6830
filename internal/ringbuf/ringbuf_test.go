package ringbuf

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHeap builds a buffer that always uses software mirroring.
func newHeap(capacity int) *Buffer {
	size := roundUpCapacity(capacity)
	mem := allocHeap(size)
	return &Buffer{mem: mem, buf: mem.bytes(), size: size}
}

func eachBackend(t *testing.T, fn func(t *testing.T, newBuf func(int) *Buffer)) {
	t.Run("default", func(t *testing.T) { fn(t, New) })
	t.Run("heap", func(t *testing.T) { fn(t, newHeap) })
}

func TestBufferFIFO(t *testing.T) {
	eachBackend(t, func(t *testing.T, newBuf func(int) *Buffer) {
		for _, n := range []int{10, 3 * os.Getpagesize()} {
			b := newBuf(0)
			defer b.Close()

			a := bytes.Repeat([]byte{'A'}, n)
			bb := bytes.Repeat([]byte{'B'}, n)
			c := bytes.Repeat([]byte{'C'}, n)

			b.Insert(a)
			b.Insert(bb)
			b.Consume(len(a))
			b.Insert(c)

			assert.Equal(t, append(append([]byte{}, bb...), c...), b.Data())
			assert.Equal(t, 2*n, b.Len())
		}
	})
}

func TestBufferWraparound(t *testing.T) {
	eachBackend(t, func(t *testing.T, newBuf func(int) *Buffer) {
		b := newBuf(0)
		defer b.Close()
		size := b.Cap()

		// Move the read index close to the end of the physical region.
		b.Insert(make([]byte, size-8))
		b.Consume(size - 9)
		require.Equal(t, 1, b.Len())

		b.Insert([]byte("0123456789abcdef"))
		b.Consume(1)
		require.Equal(t, size-8, b.index)
		assert.Equal(t, size, b.Cap(), "no growth expected")
		assert.Equal(t, []byte("0123456789abcdef"), b.Data())

		b.Consume(4)
		b.PushBack('!')
		assert.Equal(t, []byte("456789abcdef!"), b.Data())
	})
}

func TestBufferIndexResetsWhenEmpty(t *testing.T) {
	b := New(0)
	defer b.Close()

	b.Insert([]byte("hello"))
	b.Consume(5)
	assert.Equal(t, 0, b.index)
	assert.Empty(t, b.Data())
}

func TestBufferGrowth(t *testing.T) {
	eachBackend(t, func(t *testing.T, newBuf func(int) *Buffer) {
		b := newBuf(0)
		defer b.Close()
		size := b.Cap()

		b.Insert([]byte("xyz"))
		b.Consume(1)

		big := bytes.Repeat([]byte{'q'}, size)
		b.Insert(big)

		assert.GreaterOrEqual(t, b.Cap(), 2*size)
		want := append([]byte("yz"), big...)
		assert.Equal(t, want, b.Data())
	})
}

func TestBufferPushBackFull(t *testing.T) {
	eachBackend(t, func(t *testing.T, newBuf func(int) *Buffer) {
		b := newBuf(0)
		defer b.Close()
		size := b.Cap()

		for i := 0; i < size; i++ {
			b.PushBack(byte(i))
		}
		require.Equal(t, size, b.Cap())
		b.PushBack(0xff)

		assert.Equal(t, 2*size, b.Cap())
		assert.Equal(t, size+1, b.Len())
		assert.Equal(t, byte(0xff), b.Data()[size])
	})
}

func TestBufferTruncate(t *testing.T) {
	b := New(0)
	defer b.Close()

	b.Insert([]byte("keep|drop"))
	b.Truncate(4)
	b.Insert([]byte("!"))
	assert.Equal(t, []byte("keep!"), b.Data())

	assert.Panics(t, func() { b.Truncate(10) })
	assert.Panics(t, func() { b.Consume(-1) })
}

func TestBufferReserve(t *testing.T) {
	b := New(0)
	defer b.Close()

	b.Insert([]byte("abc"))
	b.Reserve(5 * os.Getpagesize())
	assert.GreaterOrEqual(t, b.Cap(), 5*os.Getpagesize())
	assert.Equal(t, []byte("abc"), b.Data())
}

func TestBufferWriter(t *testing.T) {
	b := New(0)
	defer b.Close()

	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, b.WriteByte('c'))
	assert.Equal(t, "abc", string(b.Data()))
}

func TestRoundUpCapacity(t *testing.T) {
	page := os.Getpagesize()
	assert.Equal(t, page, roundUpCapacity(1))
	assert.Equal(t, page, roundUpCapacity(page))
	assert.Equal(t, 2*page, roundUpCapacity(page+1))
}
