package msgpack

import (
	"encoding/binary"
	"math"
)

type decodeState uint8

const (
	// stateHeader expects the prefix byte of the next object.
	stateHeader decodeState = iota
	// stateLength is filling the fixed-size operand that follows a prefix:
	// a scalar, or the length of a string, binary, extension or container.
	stateLength
	// statePayload is filling the bytes of a string, binary or extension.
	statePayload
)

// frame is a container whose elements are still being decoded.
type frame struct {
	items []Value
	pairs []Pair
	next  int
	n     int
}

// at returns the slot for element i. Map entries alternate key and value.
func (f *frame) at(i int) *Value {
	if f.pairs != nil {
		if i&1 == 0 {
			return &f.pairs[i/2].Key
		}
		return &f.pairs[i/2].Value
	}
	return &f.items[i]
}

// Decoder decodes a stream of MessagePack objects that arrives in arbitrary
// fragments. It never recurses: nesting is tracked by an explicit stack and a
// multi-byte read cut short by the end of input is resumed on the next Feed.
type Decoder struct {
	arena Arena
	in    []byte

	top   Value
	slot  *Value
	stack []frame

	state   decodeState
	op      byte
	kind    Kind
	scratch [8]byte
	dst     []byte
	filled  int

	returned bool
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	d := &Decoder{}
	d.slot = &d.top
	return d
}

// Feed hands the decoder the next fragment of input. The previous fragment
// must have been fully consumed (Next returned false).
func (d *Decoder) Feed(p []byte) {
	if len(d.in) > 0 {
		panic("msgpack: Feed called before previous input was consumed")
	}
	d.in = p
}

// Buffered returns the number of fed bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.in)
}

// Depth returns the number of containers currently open.
func (d *Decoder) Depth() int {
	return len(d.stack)
}

// Suspended reports whether the decoder stopped in the middle of an object.
func (d *Decoder) Suspended() bool {
	return d.state != stateHeader || len(d.stack) > 0
}

// Reset discards any partially decoded object and pending input.
func (d *Decoder) Reset() {
	d.arena.Reset()
	d.in = nil
	d.top = Value{}
	d.slot = &d.top
	clear(d.stack)
	d.stack = d.stack[:0]
	d.state = stateHeader
	d.dst = nil
	d.filled = 0
	d.returned = false
}

// Next decodes the next complete top-level object. It returns false once the
// fed input is exhausted; a partially decoded object is kept and completed by
// later input. The returned value and everything it references are valid
// until the next call to Next.
func (d *Decoder) Next() (Value, bool) {
	if d.returned {
		d.arena.Reset()
		d.top = Value{}
		d.slot = &d.top
		d.returned = false
	}

	for len(d.in) > 0 {
		var done bool
		switch d.state {
		case stateHeader:
			b := d.in[0]
			d.in = d.in[1:]
			done = d.header(b)
		case stateLength:
			if !d.fill() {
				continue
			}
			d.state = stateHeader
			done = d.operand()
		case statePayload:
			if !d.fill() {
				continue
			}
			d.state = stateHeader
			done = d.payload()
		}
		if done {
			d.returned = true
			return d.top, true
		}
	}
	return Value{}, false
}

func (d *Decoder) fill() bool {
	n := copy(d.dst[d.filled:], d.in)
	d.in = d.in[n:]
	d.filled += n
	return d.filled == len(d.dst)
}

// header interprets a prefix byte. It reports whether the top-level object
// is complete.
func (d *Decoder) header(b byte) bool {
	switch {
	case b <= 0x7f:
		return d.set(UintValue(uint64(b)))
	case b <= 0x8f:
		return d.startMap(int(b & 0x0f))
	case b <= 0x9f:
		return d.startArray(int(b & 0x0f))
	case b <= 0xbf:
		return d.startPayload(String, int(b&0x1f))
	case b >= 0xe0:
		return d.set(IntValue(int64(int8(b))))
	}

	switch b {
	case 0xc0:
		return d.set(NilValue())
	case 0xc1:
		return d.set(Value{})
	case 0xc2:
		return d.set(BoolValue(false))
	case 0xc3:
		return d.set(BoolValue(true))
	case 0xd4, 0xd5, 0xd6, 0xd7, 0xd8:
		// fixext 1, 2, 4, 8, 16 plus the type byte.
		return d.startPayload(Ext, 1<<(b-0xd4)+1)
	}

	d.readOperand(b, operandSize(b))
	return false
}

func operandSize(b byte) int {
	switch b {
	case 0xc4, 0xc7, 0xcc, 0xd0, 0xd9:
		return 1
	case 0xc5, 0xc8, 0xcd, 0xd1, 0xda, 0xdc, 0xde:
		return 2
	case 0xc6, 0xc9, 0xca, 0xce, 0xd2, 0xdb, 0xdd, 0xdf:
		return 4
	default: // 0xcb, 0xcf, 0xd3
		return 8
	}
}

func (d *Decoder) readOperand(op byte, size int) {
	d.op = op
	d.state = stateLength
	d.dst = d.scratch[:size]
	d.filled = 0
}

// operand interprets a completed fixed-size operand.
func (d *Decoder) operand() bool {
	p := d.dst
	var n uint64
	switch len(p) {
	case 1:
		n = uint64(p[0])
	case 2:
		n = uint64(binary.BigEndian.Uint16(p))
	case 4:
		n = uint64(binary.BigEndian.Uint32(p))
	case 8:
		n = binary.BigEndian.Uint64(p)
	}

	switch d.op {
	case 0xcc, 0xcd, 0xce, 0xcf:
		return d.set(UintValue(n))
	case 0xd0:
		return d.set(IntValue(int64(int8(n))))
	case 0xd1:
		return d.set(IntValue(int64(int16(n))))
	case 0xd2:
		return d.set(IntValue(int64(int32(n))))
	case 0xd3:
		return d.set(IntValue(int64(n)))
	case 0xca:
		return d.set(FloatValue(float64(math.Float32frombits(uint32(n)))))
	case 0xcb:
		return d.set(FloatValue(math.Float64frombits(n)))
	case 0xc4, 0xc5, 0xc6:
		return d.startPayload(Binary, length(n))
	case 0xd9, 0xda, 0xdb:
		return d.startPayload(String, length(n))
	case 0xc7, 0xc8, 0xc9:
		return d.startPayload(Ext, length(n)+1)
	case 0xdc, 0xdd:
		return d.startArray(length(n))
	default: // 0xde, 0xdf
		return d.startMap(length(n))
	}
}

func length(n uint64) int {
	if n > math.MaxInt32 {
		panic("msgpack: object length overflow")
	}
	return int(n)
}

func (d *Decoder) startPayload(kind Kind, n int) bool {
	d.kind = kind
	d.dst = d.arena.Bytes(n)
	d.filled = 0
	if n == 0 {
		return d.payload()
	}
	d.state = statePayload
	return false
}

// payload finishes a string, binary or extension whose bytes are all read.
func (d *Decoder) payload() bool {
	p := d.dst
	d.dst = nil
	switch d.kind {
	case Ext:
		return d.set(ExtValue(int8(p[0]), p[1:]))
	case Binary:
		return d.set(BinaryValue(p))
	default:
		return d.set(Value{kind: String, data: p})
	}
}

func (d *Decoder) startArray(n int) bool {
	if n == 0 {
		return d.set(Value{kind: Array})
	}
	items := d.arena.Values(n)
	*d.slot = Value{kind: Array, items: items}
	d.stack = append(d.stack, frame{items: items, n: n})
	return d.advance()
}

func (d *Decoder) startMap(n int) bool {
	if n == 0 {
		return d.set(Value{kind: Map})
	}
	pairs := d.arena.Pairs(n)
	*d.slot = Value{kind: Map, pairs: pairs}
	d.stack = append(d.stack, frame{pairs: pairs, n: 2 * n})
	return d.advance()
}

// set stores a finished object in the current slot and moves on.
func (d *Decoder) set(v Value) bool {
	*d.slot = v
	return d.advance()
}

// advance points slot at the next element of the innermost open container,
// closing every container that is full. It reports whether the top-level
// object is complete.
func (d *Decoder) advance() bool {
	for len(d.stack) > 0 {
		f := &d.stack[len(d.stack)-1]
		if f.next < f.n {
			d.slot = f.at(f.next)
			f.next++
			return false
		}
		d.stack[len(d.stack)-1] = frame{}
		d.stack = d.stack[:len(d.stack)-1]
	}
	d.slot = &d.top
	return true
}
