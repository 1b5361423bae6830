package msgpack

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleValue() Value {
	return ArrayValue(
		IntValue(1),
		UintValue(math.MaxUint64),
		IntValue(-33),
		IntValue(math.MinInt64),
		FloatValue(2.5),
		BoolValue(true),
		BoolValue(false),
		NilValue(),
		StringValue("grid_line"),
		StringValue(string(make([]byte, 300))),
		BinaryValue([]byte{0, 1, 0xfe}),
		ExtValue(2, []byte{0x05}),
		ExtValue(-1, make([]byte, 3)),
		ArrayValue(),
		MapValue(),
		MapValue(
			Pair{Key: StringValue("foreground"), Value: IntValue(0xffffff)},
			Pair{Key: StringValue("nested"), Value: ArrayValue(ArrayValue(IntValue(7)))},
		),
	)
}

func encode(t *testing.T, vals ...Value) []byte {
	t.Helper()
	var out Bytes
	enc := NewEncoder(&out)
	for _, v := range vals {
		enc.PackValue(v)
	}
	return out
}

func TestDecoder_RoundTrip(t *testing.T) {
	want := sampleValue()
	dec := NewDecoder()
	dec.Feed(encode(t, want))

	got, ok := dec.Next()
	require.True(t, ok)
	assert.True(t, Equal(want, got), "got %s", Format(got))

	_, ok = dec.Next()
	assert.False(t, ok)
	assert.False(t, dec.Suspended())
}

func TestDecoder_FragmentationInvariance(t *testing.T) {
	vals := []Value{sampleValue(), StringValue("second"), IntValue(-1)}
	raw := encode(t, vals...)

	dec := NewDecoder()
	var got []Value
	for i := range raw {
		dec.Feed(raw[i : i+1])
		for {
			v, ok := dec.Next()
			if !ok {
				break
			}
			got = append(got, v.Clone())
		}
	}

	require.Len(t, got, len(vals))
	for i := range vals {
		assert.True(t, Equal(vals[i], got[i]), "value %d: %s", i, Format(got[i]))
	}
}

func TestDecoder_ChunkBoundaries(t *testing.T) {
	raw := encode(t, sampleValue(), sampleValue())
	for _, chunk := range []int{2, 3, 7, 64, 1000} {
		dec := NewDecoder()
		count := 0
		for off := 0; off < len(raw); off += chunk {
			dec.Feed(raw[off:min(off+chunk, len(raw))])
			for {
				v, ok := dec.Next()
				if !ok {
					break
				}
				count++
				assert.True(t, Equal(sampleValue(), v), "chunk %d", chunk)
			}
		}
		assert.Equal(t, 2, count, "chunk %d", chunk)
	}
}

func TestDecoder_Suspension(t *testing.T) {
	// [1, "abc"] cut inside the string payload.
	raw := []byte{0x92, 0x01, 0xa3, 'a', 'b', 'c'}

	dec := NewDecoder()
	dec.Feed(raw[:4])
	_, ok := dec.Next()
	require.False(t, ok)
	assert.True(t, dec.Suspended())
	assert.Equal(t, 1, dec.Depth())

	dec.Feed(raw[4:])
	v, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, 0, dec.Depth())
	assert.Equal(t, `[1, "abc"]`, Format(v))
}

func TestDecoder_FeedBeforeConsumedPanics(t *testing.T) {
	dec := NewDecoder()
	dec.Feed([]byte{0x01, 0x02})
	assert.Panics(t, func() { dec.Feed([]byte{0x03}) })

	dec.Next()
	dec.Next()
	_, ok := dec.Next()
	assert.False(t, ok)
	assert.NotPanics(t, func() { dec.Feed(nil) })
}

func TestDecoder_Scalars(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want Value
	}{
		{"positive fixint", []byte{0x7f}, IntValue(127)},
		{"negative fixint", []byte{0xe0}, IntValue(-32)},
		{"uint8", []byte{0xcc, 0xff}, IntValue(255)},
		{"uint16", []byte{0xcd, 0x01, 0x00}, IntValue(256)},
		{"int8", []byte{0xd0, 0x80}, IntValue(-128)},
		{"int16", []byte{0xd1, 0xff, 0x00}, IntValue(-256)},
		{"int32", []byte{0xd2, 0xff, 0xff, 0xff, 0xfe}, IntValue(-2)},
		{"uint64", []byte{0xcf, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, UintValue(math.MaxUint64)},
		{"float32", []byte{0xca, 0x3f, 0xc0, 0x00, 0x00}, FloatValue(1.5)},
		{"never used", []byte{0xc1}, Value{}},
		{"str8", []byte{0xd9, 0x02, 'h', 'i'}, StringValue("hi")},
		{"bin16", []byte{0xc5, 0x00, 0x01, 0xaa}, BinaryValue([]byte{0xaa})},
		{"fixext1", []byte{0xd4, 0x02, 0x07}, ExtValue(2, []byte{0x07})},
		{"ext8", []byte{0xc7, 0x03, 0x01, 'a', 'b', 'c'}, ExtValue(1, []byte("abc"))},
		{"ext8 empty", []byte{0xc7, 0x00, 0x05}, ExtValue(5, nil)},
		{"array16", []byte{0xdc, 0x00, 0x01, 0xc0}, ArrayValue(NilValue())},
		{"map16", []byte{0xde, 0x00, 0x01, 0xa1, 'k', 0xc3}, MapValue(Pair{StringValue("k"), BoolValue(true)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder()
			dec.Feed(tt.raw)
			got, ok := dec.Next()
			require.True(t, ok)
			assert.True(t, Equal(tt.want, got), "got %s (%s)", Format(got), TypeString(got))
			assert.Equal(t, 0, dec.Buffered())
		})
	}
}

func TestDecoder_DeepNesting(t *testing.T) {
	const depth = 10000
	raw := make([]byte, 0, depth+1)
	for range depth {
		raw = append(raw, 0x91)
	}
	raw = append(raw, 0x2a)

	dec := NewDecoder()
	dec.Feed(raw)
	v, ok := dec.Next()
	require.True(t, ok)

	for range depth {
		require.Equal(t, Array, v.Kind())
		v = v.Array()[0]
	}
	assert.Equal(t, int64(42), v.Int())
}

func TestDecoder_Reset(t *testing.T) {
	dec := NewDecoder()
	dec.Feed([]byte{0x92, 0x01})
	_, ok := dec.Next()
	require.False(t, ok)
	require.True(t, dec.Suspended())

	dec.Reset()
	assert.False(t, dec.Suspended())

	dec.Feed([]byte{0x05})
	v, ok := dec.Next()
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int())
}

func TestUnpackInt(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
		ok   bool
	}{
		{[]byte{0x05}, 5, true},
		{[]byte{0xff}, -1, true},
		{[]byte{0xcc, 0xc8}, 200, true},
		{[]byte{0xd0, 0x80}, -128, true},
		{[]byte{0xcd, 0x01, 0x00}, 256, true},
		{[]byte{0xd2, 0xff, 0xff, 0xff, 0xfe}, -2, true},
		{[]byte{0xcf, 0, 0, 0, 1, 0, 0, 0, 0}, 1 << 32, true},
		{[]byte{0xcd, 0x01}, 0, false},
		{[]byte{0xc0}, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := UnpackInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("UnpackInt(% x) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
