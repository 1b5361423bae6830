package msgpack

import (
	"bytes"
	"math"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	Invalid Kind = iota
	Nil
	Int
	Float
	Bool
	String
	Binary
	Ext
	Array
	Map
)

var kindNames = [...]string{
	Invalid: "invalid",
	Nil:     "null",
	Int:     "integer",
	Float:   "float64",
	Bool:    "boolean",
	String:  "string",
	Binary:  "binary",
	Ext:     "extension",
	Array:   "array",
	Map:     "map",
}

// String returns the name used in logs for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a single MessagePack object.
//
// Integers keep their 64-bit pattern; callers pick the interpretation with
// Int or Uint. Integers above math.MaxInt64 remember that they are unsigned
// so they are written back as uint64. Strings,
// binaries, extension payloads and containers are views into memory owned by
// whoever produced the value.
type Value struct {
	kind     Kind
	extType  int8
	unsigned bool
	num      uint64
	data    []byte
	items   []Value
	pairs   []Pair
}

// Pair is one key/value entry of a map.
type Pair struct {
	Key   Value
	Value Value
}

// ExtData is the tag and payload of an extension object.
type ExtData struct {
	Type int8
	Data []byte
}

// NilValue returns the nil value.
func NilValue() Value { return Value{kind: Nil} }

// IntValue returns an integer value.
func IntValue(n int64) Value { return Value{kind: Int, num: uint64(n)} }

// UintValue returns an integer value.
func UintValue(n uint64) Value {
	return Value{kind: Int, num: n, unsigned: n > math.MaxInt64}
}

// FloatValue returns a float value.
func FloatValue(f float64) Value { return Value{kind: Float, num: math.Float64bits(f)} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	v := Value{kind: Bool}
	if b {
		v.num = 1
	}
	return v
}

// StringValue returns a string value. The bytes of s are copied.
func StringValue(s string) Value { return Value{kind: String, data: []byte(s)} }

// BinaryValue returns a binary value referencing p.
func BinaryValue(p []byte) Value { return Value{kind: Binary, data: p} }

// ExtValue returns an extension value referencing p.
func ExtValue(typ int8, p []byte) Value { return Value{kind: Ext, extType: typ, data: p} }

// ArrayValue returns an array value referencing items.
func ArrayValue(items ...Value) Value { return Value{kind: Array, items: items} }

// MapValue returns a map value referencing pairs.
func MapValue(pairs ...Pair) Value { return Value{kind: Map, pairs: pairs} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == Nil }
func (v Value) IsInt() bool    { return v.kind == Int }
func (v Value) IsFloat() bool  { return v.kind == Float }
func (v Value) IsBool() bool   { return v.kind == Bool }
func (v Value) IsString() bool { return v.kind == String }
func (v Value) IsBinary() bool { return v.kind == Binary }
func (v Value) IsExt() bool    { return v.kind == Ext }
func (v Value) IsArray() bool  { return v.kind == Array }
func (v Value) IsMap() bool    { return v.kind == Map }

// Int returns the integer interpreted as signed. Zero for other kinds.
func (v Value) Int() int64 {
	if v.kind != Int {
		return 0
	}
	return int64(v.num)
}

// Uint returns the integer interpreted as unsigned. Zero for other kinds.
func (v Value) Uint() uint64 {
	if v.kind != Int {
		return 0
	}
	return v.num
}

// Float returns the float payload. Zero for other kinds.
func (v Value) Float() float64 {
	if v.kind != Float {
		return 0
	}
	return math.Float64frombits(v.num)
}

// Bool returns the boolean payload. False for other kinds.
func (v Value) Bool() bool {
	return v.kind == Bool && v.num != 0
}

// Str returns the string payload as a Go string (a copy).
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return string(v.data)
}

// Bytes returns the raw payload of a string, binary or extension value.
// The slice is borrowed and must not be retained past the value's lifetime.
func (v Value) Bytes() []byte {
	switch v.kind {
	case String, Binary, Ext:
		return v.data
	}
	return nil
}

// Ext returns the extension tag and payload.
func (v Value) Ext() ExtData {
	if v.kind != Ext {
		return ExtData{}
	}
	return ExtData{Type: v.extType, Data: v.data}
}

// Array returns the elements of an array value.
func (v Value) Array() []Value {
	if v.kind != Array {
		return nil
	}
	return v.items
}

// Map returns the entries of a map value.
func (v Value) Map() []Pair {
	if v.kind != Map {
		return nil
	}
	return v.pairs
}

// Len returns the number of elements of a container or the payload length
// of a string, binary or extension.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Map:
		return len(v.pairs)
	case String, Binary, Ext:
		return len(v.data)
	}
	return 0
}

// StrEqual reports whether v is a string equal to s without allocating.
func (v Value) StrEqual(s string) bool {
	return v.kind == String && string(v.data) == s
}

// MapGet returns the value stored under the string key, scanning linearly.
func MapGet(pairs []Pair, key string) (Value, bool) {
	for i := range pairs {
		if pairs[i].Key.StrEqual(key) {
			return pairs[i].Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether a and b are structurally equal.
// Integers are compared by bit pattern and floats by their bits.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Invalid, Nil:
		return true
	case Int, Float, Bool:
		return a.num == b.num
	case String, Binary:
		return bytes.Equal(a.data, b.data)
	case Ext:
		return a.extType == b.extType && bytes.Equal(a.data, b.data)
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(a.pairs) != len(b.pairs) {
			return false
		}
		for i := range a.pairs {
			if !Equal(a.pairs[i].Key, b.pairs[i].Key) || !Equal(a.pairs[i].Value, b.pairs[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
