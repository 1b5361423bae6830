// Package ringbuf provides a growable FIFO byte buffer whose readable window
// is always contiguous in memory.
//
// The buffer is backed by a region twice the size of its capacity. The second
// half mirrors the first, so the logical range [index, index+length) can be
// returned as a single slice even when it wraps past the end of the physical
// allocation. On Linux the mirror is created by mapping the same memory file
// twice, back to back. Elsewhere (or if mapping fails) a heap region is used
// and every insert is written to both halves.
//
// Buffer is not safe for concurrent use. Callers serialize access, typically
// with the write-side mutex of the connection that owns it.
package ringbuf

import (
	"fmt"
	"math/bits"
	"os"
)

// DefaultCapacity is the initial capacity used by New(0).
const DefaultCapacity = 4096

// region is a 2*size byte area whose halves hold the same bytes.
type region interface {
	// bytes returns the full 2*size view.
	bytes() []byte
	// mirrored reports whether writes to one half are visible in the other.
	mirrored() bool
	free()
}

// Buffer is a FIFO byte buffer. Inserted bytes are never overwritten before
// they are consumed; the buffer grows by doubling instead.
type Buffer struct {
	mem    region
	buf    []byte
	index  int
	length int
	size   int
}

// New creates a buffer with at least the given capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{}
	b.allocate(roundUpCapacity(capacity))
	return b
}

// Len returns the number of unconsumed bytes.
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int {
	return b.size
}

// Mirrored reports whether the buffer is backed by a virtual memory mirror.
func (b *Buffer) Mirrored() bool {
	return b.mem != nil && b.mem.mirrored()
}

// Data returns the unconsumed bytes as one contiguous slice.
// The slice is valid until the next call that modifies the buffer.
func (b *Buffer) Data() []byte {
	return b.buf[b.index : b.index+b.length : b.index+b.length]
}

// Clear consumes every byte in the buffer.
func (b *Buffer) Clear() {
	b.index = 0
	b.length = 0
}

// Consume marks the first n bytes as read. Constant time.
func (b *Buffer) Consume(n int) {
	if n < 0 || n > b.length {
		panic(fmt.Sprintf("ringbuf: consume %d of %d bytes", n, b.length))
	}
	b.index = (b.index + n) & (b.size - 1)
	b.length -= n
	if b.length == 0 {
		b.index = 0
	}
}

// Truncate discards all but the first n unconsumed bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.length {
		panic(fmt.Sprintf("ringbuf: truncate to %d of %d bytes", n, b.length))
	}
	b.length = n
}

// Reserve grows the buffer so that its capacity is at least n.
func (b *Buffer) Reserve(n int) {
	if n > b.size {
		b.resize(roundUpCapacity(n))
	}
}

// PushBack appends a single byte.
func (b *Buffer) PushBack(c byte) {
	if b.length == b.size {
		b.insertExpanded([]byte{c})
		return
	}
	b.put(c)
}

// Insert appends p to the end of the buffer.
func (b *Buffer) Insert(p []byte) {
	if len(p) > b.size-b.length {
		b.insertExpanded(p)
		return
	}
	b.write(p)
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Insert(p)
	return len(p), nil
}

// WriteByte implements io.ByteWriter. It never fails.
func (b *Buffer) WriteByte(c byte) error {
	b.PushBack(c)
	return nil
}

// Close releases the backing region. The buffer must not be used afterwards.
func (b *Buffer) Close() error {
	if b.mem != nil {
		b.mem.free()
		b.mem = nil
		b.buf = nil
	}
	b.index, b.length, b.size = 0, 0, 0
	return nil
}

func (b *Buffer) put(c byte) {
	w := b.index + b.length
	b.buf[w] = c
	if !b.mem.mirrored() {
		if w < b.size {
			b.buf[w+b.size] = c
		} else {
			b.buf[w-b.size] = c
		}
	}
	b.length++
}

// write copies p behind the live bytes. The caller guarantees len(p) fits.
func (b *Buffer) write(p []byte) {
	n := len(p)
	w := b.index + b.length
	copy(b.buf[w:w+n], p)

	if !b.mem.mirrored() {
		switch {
		case w >= b.size:
			copy(b.buf[w-b.size:], p)
		case w+n <= b.size:
			copy(b.buf[w+b.size:], p)
		default:
			k := b.size - w
			copy(b.buf[w+b.size:], p[:k])
			copy(b.buf, p[k:])
		}
	}
	b.length += n
}

func (b *Buffer) insertExpanded(p []byte) {
	newSize := b.size * 2
	if rounded := roundUpCapacity(len(p) * 2); rounded > newSize {
		newSize = rounded
	}
	if newSize < b.size {
		panic("ringbuf: capacity overflow")
	}
	b.resize(newSize)
	b.write(p)
}

func (b *Buffer) resize(size int) {
	old := b.mem
	live := b.Data()

	b.allocate(size)
	b.write(live)

	if old != nil {
		old.free()
	}
}

func (b *Buffer) allocate(size int) {
	mem, err := allocMirrored(size)
	if err != nil {
		mem = allocHeap(size)
	}
	b.mem = mem
	b.buf = mem.bytes()
	b.index = 0
	b.length = 0
	b.size = size
}

// roundUpCapacity rounds n up to a power of two no smaller than the page size.
func roundUpCapacity(n int) int {
	page := os.Getpagesize()
	if n < page {
		n = page
	}
	if n > 1<<(bits.UintSize-3) {
		panic("ringbuf: capacity overflow")
	}
	return 1 << bits.Len(uint(n-1))
}

type heapRegion struct {
	buf []byte
}

func allocHeap(size int) region {
	return &heapRegion{buf: make([]byte, 2*size)}
}

func (r *heapRegion) bytes() []byte  { return r.buf }
func (r *heapRegion) mirrored() bool { return false }
func (r *heapRegion) free()          { r.buf = nil }
