package msgpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"

	vmsgpack "github.com/vmihailenco/msgpack/v5"
)

// Sink receives encoded bytes. ringbuf.Buffer and Bytes implement it.
type Sink interface {
	Insert(p []byte)
	PushBack(c byte)
}

// Bytes is a growable Sink backed by a plain slice.
type Bytes []byte

func (b *Bytes) Insert(p []byte)  { *b = append(*b, p...) }
func (b *Bytes) PushBack(c byte) { *b = append(*b, c) }

// Tuple packs as an array of heterogeneous elements.
type Tuple []any

// Encoder writes MessagePack using the shortest prefix for every value.
type Encoder struct {
	w        Sink
	scratch  [9]byte
	fallback bytes.Buffer
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w Sink) *Encoder {
	return &Encoder{w: w}
}

// Reset switches the encoder to write to w.
func (e *Encoder) Reset(w Sink) {
	e.w = w
}

// Raw appends pre-encoded bytes.
func (e *Encoder) Raw(p []byte) {
	e.w.Insert(p)
}

func (e *Encoder) head8(code byte, n uint8) {
	e.scratch[0] = code
	e.scratch[1] = n
	e.w.Insert(e.scratch[:2])
}

func (e *Encoder) head16(code byte, n uint16) {
	e.scratch[0] = code
	binary.BigEndian.PutUint16(e.scratch[1:], n)
	e.w.Insert(e.scratch[:3])
}

func (e *Encoder) head32(code byte, n uint32) {
	e.scratch[0] = code
	binary.BigEndian.PutUint32(e.scratch[1:], n)
	e.w.Insert(e.scratch[:5])
}

func (e *Encoder) head64(code byte, n uint64) {
	e.scratch[0] = code
	binary.BigEndian.PutUint64(e.scratch[1:], n)
	e.w.Insert(e.scratch[:9])
}

// PackNil writes nil.
func (e *Encoder) PackNil() {
	e.w.PushBack(0xc0)
}

// PackBool writes a boolean.
func (e *Encoder) PackBool(b bool) {
	if b {
		e.w.PushBack(0xc3)
	} else {
		e.w.PushBack(0xc2)
	}
}

// PackUint writes n as a positive fixint or the narrowest uint format.
func (e *Encoder) PackUint(n uint64) {
	switch {
	case n < 128:
		e.w.PushBack(byte(n))
	case n <= math.MaxUint8:
		e.head8(0xcc, uint8(n))
	case n <= math.MaxUint16:
		e.head16(0xcd, uint16(n))
	case n <= math.MaxUint32:
		e.head32(0xce, uint32(n))
	default:
		e.head64(0xcf, n)
	}
}

// PackInt writes n. Non-negative values use the unsigned formats.
func (e *Encoder) PackInt(n int64) {
	switch {
	case n >= 0:
		e.PackUint(uint64(n))
	case n >= -32:
		e.w.PushBack(byte(int8(n)))
	case n >= math.MinInt8:
		e.head8(0xd0, uint8(int8(n)))
	case n >= math.MinInt16:
		e.head16(0xd1, uint16(int16(n)))
	case n >= math.MinInt32:
		e.head32(0xd2, uint32(int32(n)))
	default:
		e.head64(0xd3, uint64(n))
	}
}

// PackFloat writes f as a float64.
func (e *Encoder) PackFloat(f float64) {
	e.head64(0xcb, math.Float64bits(f))
}

func (e *Encoder) strHeader(n int) {
	switch {
	case n <= 31:
		e.w.PushBack(0xa0 | byte(n))
	case n <= math.MaxUint8:
		e.head8(0xd9, uint8(n))
	case n <= math.MaxUint16:
		e.head16(0xda, uint16(n))
	default:
		e.head32(0xdb, checkLen(n))
	}
}

// PackString writes s as a str object.
func (e *Encoder) PackString(s string) {
	e.strHeader(len(s))
	if len(s) > 0 {
		e.w.Insert([]byte(s))
	}
}

// PackStringBytes writes p as a str object.
func (e *Encoder) PackStringBytes(p []byte) {
	e.strHeader(len(p))
	e.w.Insert(p)
}

// PackBinary writes p as a bin object.
func (e *Encoder) PackBinary(p []byte) {
	n := len(p)
	switch {
	case n <= math.MaxUint8:
		e.head8(0xc4, uint8(n))
	case n <= math.MaxUint16:
		e.head16(0xc5, uint16(n))
	default:
		e.head32(0xc6, checkLen(n))
	}
	e.w.Insert(p)
}

// StartArray writes the header of an array of n elements. The caller packs
// exactly n values afterwards.
func (e *Encoder) StartArray(n int) {
	switch {
	case n <= 15:
		e.w.PushBack(0x90 | byte(n))
	case n <= math.MaxUint16:
		e.head16(0xdc, uint16(n))
	default:
		e.head32(0xdd, checkLen(n))
	}
}

// StartMap writes the header of a map of n entries. The caller packs 2*n
// values afterwards, alternating key and value.
func (e *Encoder) StartMap(n int) {
	switch {
	case n <= 15:
		e.w.PushBack(0x80 | byte(n))
	case n <= math.MaxUint16:
		e.head16(0xde, uint16(n))
	default:
		e.head32(0xdf, checkLen(n))
	}
}

// PackExt writes an extension object, using a fixext format when the payload
// length allows it.
func (e *Encoder) PackExt(typ int8, p []byte) {
	n := len(p)
	switch n {
	case 1:
		e.w.PushBack(0xd4)
	case 2:
		e.w.PushBack(0xd5)
	case 4:
		e.w.PushBack(0xd6)
	case 8:
		e.w.PushBack(0xd7)
	case 16:
		e.w.PushBack(0xd8)
	default:
		switch {
		case n <= math.MaxUint8:
			e.head8(0xc7, uint8(n))
		case n <= math.MaxUint16:
			e.head16(0xc8, uint16(n))
		default:
			e.head32(0xc9, checkLen(n))
		}
	}
	e.w.PushBack(byte(typ))
	e.w.Insert(p)
}

// PackValue writes a decoded or constructed Value.
func (e *Encoder) PackValue(v Value) {
	switch v.kind {
	case Invalid:
		e.w.PushBack(0xc1)
	case Nil:
		e.PackNil()
	case Int:
		if v.unsigned {
			e.PackUint(v.num)
		} else {
			e.PackInt(v.Int())
		}
	case Float:
		e.PackFloat(v.Float())
	case Bool:
		e.PackBool(v.Bool())
	case String:
		e.PackStringBytes(v.data)
	case Binary:
		e.PackBinary(v.data)
	case Ext:
		e.PackExt(v.extType, v.data)
	case Array:
		e.StartArray(len(v.items))
		for _, item := range v.items {
			e.PackValue(item)
		}
	case Map:
		e.StartMap(len(v.pairs))
		for _, p := range v.pairs {
			e.PackValue(p.Key)
			e.PackValue(p.Value)
		}
	}
}

// Pack writes an arbitrary Go value. Common RPC argument types are written
// directly. Anything else is encoded with vmihailenco/msgpack using compact
// integers and sorted map keys. On error the sink may hold a partial object;
// callers that need all-or-nothing writes truncate it.
func (e *Encoder) Pack(v any) error {
	switch v := v.(type) {
	case nil:
		e.PackNil()
	case bool:
		e.PackBool(v)
	case int:
		e.PackInt(int64(v))
	case int8:
		e.PackInt(int64(v))
	case int16:
		e.PackInt(int64(v))
	case int32:
		e.PackInt(int64(v))
	case int64:
		e.PackInt(v)
	case uint:
		e.PackUint(uint64(v))
	case uint8:
		e.PackUint(uint64(v))
	case uint16:
		e.PackUint(uint64(v))
	case uint32:
		e.PackUint(uint64(v))
	case uint64:
		e.PackUint(v)
	case float32:
		e.PackFloat(float64(v))
	case float64:
		e.PackFloat(v)
	case string:
		e.PackString(v)
	case []byte:
		e.PackBinary(v)
	case Value:
		e.PackValue(v)
	case ExtData:
		e.PackExt(v.Type, v.Data)
	case Tuple:
		return e.packList(v)
	case []any:
		return e.packList(v)
	case []string:
		e.StartArray(len(v))
		for _, s := range v {
			e.PackString(s)
		}
	case []int:
		e.StartArray(len(v))
		for _, n := range v {
			e.PackInt(int64(n))
		}
	case map[string]bool:
		e.StartMap(len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e.PackString(k)
			e.PackBool(v[k])
		}
	case map[string]any:
		e.StartMap(len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e.PackString(k)
			if err := e.Pack(v[k]); err != nil {
				return fmt.Errorf("map key %q: %w", k, err)
			}
		}
	default:
		return e.packReflect(v)
	}
	return nil
}

func (e *Encoder) packList(items []any) error {
	e.StartArray(len(items))
	for i, item := range items {
		if err := e.Pack(item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (e *Encoder) packReflect(v any) error {
	e.fallback.Reset()
	enc := vmsgpack.GetEncoder()
	enc.Reset(&e.fallback)
	enc.UseCompactInts(true)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	vmsgpack.PutEncoder(enc)
	if err != nil {
		return fmt.Errorf("msgpack: cannot encode %T: %w", v, err)
	}
	e.w.Insert(e.fallback.Bytes())
	return nil
}

// Marshal encodes v into a new byte slice.
func Marshal(v any) ([]byte, error) {
	var out Bytes
	if err := NewEncoder(&out).Pack(v); err != nil {
		return nil, err
	}
	return out, nil
}

func checkLen(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		panic("msgpack: object too large")
	}
	return uint32(n)
}
