package msgpack

import "math"

const (
	minByteBlock  = 4096
	minValueBlock = 256
	minPairBlock  = 64
)

// Arena is a bump allocator for the spans that make up decoded values.
//
// Each element kind has its own block. Allocations are carved from the end of
// the block downward. When a block runs out a new one of at least twice the
// size is started and the old block is retired until Reset.
type Arena struct {
	bytes  slab[byte]
	values slab[Value]
	pairs  slab[Pair]
}

// Bytes returns n bytes whose contents are unspecified.
func (a *Arena) Bytes(n int) []byte {
	return a.bytes.alloc(n, minByteBlock, false)
}

// Values returns n zeroed values.
func (a *Arena) Values(n int) []Value {
	return a.values.alloc(n, minValueBlock, true)
}

// Pairs returns n zeroed pairs.
func (a *Arena) Pairs(n int) []Pair {
	return a.pairs.alloc(n, minPairBlock, true)
}

// Reset releases every allocation made since the previous Reset.
// Retired blocks are dropped, the current block is kept and rewound.
func (a *Arena) Reset() {
	a.bytes.reset()
	a.values.reset()
	a.pairs.reset()
}

type slab[T any] struct {
	block   []T
	top     int
	retired [][]T
}

func (s *slab[T]) alloc(n, minBlock int, zero bool) []T {
	if n <= 0 {
		return nil
	}
	if n > s.top {
		s.grow(n, minBlock)
	}
	s.top -= n
	span := s.block[s.top : s.top+n : s.top+n]
	if zero {
		clear(span)
	}
	return span
}

func (s *slab[T]) grow(n, minBlock int) {
	if n > math.MaxInt/2 || len(s.block) > math.MaxInt/2 {
		panic("msgpack: arena block size overflow")
	}
	size := max(2*len(s.block), 2*n, minBlock)
	if s.block != nil {
		s.retired = append(s.retired, s.block)
	}
	s.block = make([]T, size)
	s.top = size
}

func (s *slab[T]) reset() {
	clear(s.retired)
	s.retired = s.retired[:0]
	s.top = len(s.block)
}
