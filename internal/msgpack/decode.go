package msgpack

import (
	"bytes"
	"fmt"

	vmsgpack "github.com/vmihailenco/msgpack/v5"
)

// Decode copies v into the Go value pointed to by dst using the reflection
// based decoder of vmihailenco/msgpack. Extension types registered with
// vmihailenco/msgpack.RegisterExt are honoured. The result does not reference
// decoder memory.
func (v Value) Decode(dst any) error {
	if p, ok := dst.(*Value); ok {
		*p = v.Clone()
		return nil
	}

	var raw Bytes
	NewEncoder(&raw).PackValue(v)

	dec := vmsgpack.GetDecoder()
	dec.Reset(bytes.NewReader(raw))
	err := dec.Decode(dst)
	vmsgpack.PutDecoder(dec)
	if err != nil {
		return fmt.Errorf("msgpack: decode %s into %T: %w", TypeString(v), dst, err)
	}
	return nil
}

// Clone returns a deep copy of v that does not share memory with it.
func (v Value) Clone() Value {
	c := v
	switch v.kind {
	case String, Binary, Ext:
		c.data = bytes.Clone(v.data)
	case Array:
		c.items = make([]Value, len(v.items))
		for i, item := range v.items {
			c.items[i] = item.Clone()
		}
	case Map:
		c.pairs = make([]Pair, len(v.pairs))
		for i, p := range v.pairs {
			c.pairs[i] = Pair{Key: p.Key.Clone(), Value: p.Value.Clone()}
		}
	}
	return c
}

// Unmarshal decodes a single complete object from p with vmihailenco/msgpack.
func Unmarshal(p []byte, dst any) error {
	return vmsgpack.Unmarshal(p, dst)
}

// UnpackInt decodes p as a single MessagePack integer in any of its
// encodings. Extension payloads such as Neovim handles use this form.
func UnpackInt(p []byte) (int64, bool) {
	if len(p) == 0 {
		return 0, false
	}
	b := p[0]
	switch {
	case b <= 0x7f:
		return int64(b), len(p) == 1
	case b >= 0xe0:
		return int64(int8(b)), len(p) == 1
	}

	var n int
	switch b {
	case 0xcc, 0xd0:
		n = 1
	case 0xcd, 0xd1:
		n = 2
	case 0xce, 0xd2:
		n = 4
	case 0xcf, 0xd3:
		n = 8
	default:
		return 0, false
	}
	if len(p) != 1+n {
		return 0, false
	}

	var u uint64
	for _, c := range p[1:] {
		u = u<<8 | uint64(c)
	}
	if b >= 0xd0 {
		shift := 64 - 8*n
		return int64(u<<shift) >> shift, true
	}
	return int64(u), true
}
