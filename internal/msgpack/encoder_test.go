package msgpack

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vmsgpack "github.com/vmihailenco/msgpack/v5"
)

func packed(fn func(e *Encoder)) []byte {
	var out Bytes
	fn(NewEncoder(&out))
	return out
}

func TestEncoder_UintBoundaries(t *testing.T) {
	tests := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0xcc, 0x80}},
		{255, []byte{0xcc, 0xff}},
		{256, []byte{0xcd, 0x01, 0x00}},
		{65535, []byte{0xcd, 0xff, 0xff}},
		{65536, []byte{0xce, 0x00, 0x01, 0x00, 0x00}},
		{math.MaxUint32 + 1, []byte{0xcf, 0, 0, 0, 1, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got := packed(func(e *Encoder) { e.PackUint(tt.n) })
		if !bytes.Equal(got, tt.want) {
			t.Errorf("PackUint(%d) = % x, want % x", tt.n, got, tt.want)
		}
		// Signed entry point picks the same encoding for non-negative values.
		if tt.n <= math.MaxInt64 {
			got = packed(func(e *Encoder) { e.PackInt(int64(tt.n)) })
			if !bytes.Equal(got, tt.want) {
				t.Errorf("PackInt(%d) = % x, want % x", tt.n, got, tt.want)
			}
		}
	}
}

func TestEncoder_IntBoundaries(t *testing.T) {
	tests := []struct {
		n    int64
		want []byte
	}{
		{-1, []byte{0xff}},
		{-32, []byte{0xe0}},
		{-33, []byte{0xd0, 0xdf}},
		{-128, []byte{0xd0, 0x80}},
		{-129, []byte{0xd1, 0xff, 0x7f}},
		{math.MinInt16, []byte{0xd1, 0x80, 0x00}},
		{math.MinInt16 - 1, []byte{0xd2, 0xff, 0xff, 0x7f, 0xff}},
		{math.MinInt64, []byte{0xd3, 0x80, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got := packed(func(e *Encoder) { e.PackInt(tt.n) })
		if !bytes.Equal(got, tt.want) {
			t.Errorf("PackInt(%d) = % x, want % x", tt.n, got, tt.want)
		}
	}
}

func TestEncoder_LengthPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		pack   func(e *Encoder, n int)
		prefix []byte
	}{
		{"fixstr", 31, func(e *Encoder, n int) { e.PackString(string(make([]byte, n))) }, []byte{0xbf}},
		{"str8", 32, func(e *Encoder, n int) { e.PackString(string(make([]byte, n))) }, []byte{0xd9, 32}},
		{"str8 max", 255, func(e *Encoder, n int) { e.PackString(string(make([]byte, n))) }, []byte{0xd9, 0xff}},
		{"str16", 256, func(e *Encoder, n int) { e.PackString(string(make([]byte, n))) }, []byte{0xda, 0x01, 0x00}},
		{"str32", 65536, func(e *Encoder, n int) { e.PackString(string(make([]byte, n))) }, []byte{0xdb, 0, 1, 0, 0}},
		{"bin8", 0, func(e *Encoder, n int) { e.PackBinary(make([]byte, n)) }, []byte{0xc4, 0x00}},
		{"bin16", 256, func(e *Encoder, n int) { e.PackBinary(make([]byte, n)) }, []byte{0xc5, 0x01, 0x00}},
		{"fixarray", 15, func(e *Encoder, n int) { e.StartArray(n) }, []byte{0x9f}},
		{"array16", 16, func(e *Encoder, n int) { e.StartArray(n) }, []byte{0xdc, 0x00, 0x10}},
		{"array16 max", 65535, func(e *Encoder, n int) { e.StartArray(n) }, []byte{0xdc, 0xff, 0xff}},
		{"array32", 65536, func(e *Encoder, n int) { e.StartArray(n) }, []byte{0xdd, 0, 1, 0, 0}},
		{"fixmap", 0, func(e *Encoder, n int) { e.StartMap(n) }, []byte{0x80}},
		{"map16", 16, func(e *Encoder, n int) { e.StartMap(n) }, []byte{0xde, 0x00, 0x10}},
		{"fixext4", 4, func(e *Encoder, n int) { e.PackExt(1, make([]byte, n)) }, []byte{0xd6, 0x01}},
		{"ext8", 3, func(e *Encoder, n int) { e.PackExt(2, make([]byte, n)) }, []byte{0xc7, 0x03, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := packed(func(e *Encoder) { tt.pack(e, tt.n) })
			require.GreaterOrEqual(t, len(got), len(tt.prefix))
			assert.Equal(t, tt.prefix, got[:len(tt.prefix)])
		})
	}
}

func TestEncoder_MatchesReferenceEncoder(t *testing.T) {
	values := []any{
		0, 127, 128, 255, 256, 65535, 65536, -1, -32, -33, -129, int64(math.MinInt64),
		uint64(math.MaxUint64), 1.25, true, false, nil,
		"", "nvim_ui_attach", string(make([]byte, 40)),
		[]byte{1, 2, 3},
		[]any{"a", 1, []any{true}},
		[]string{"x", "y"},
		map[string]any{"rgb": true, "ext_linegrid": true, "width": 80},
		map[string]bool{"a": true},
	}

	for _, v := range values {
		got, err := Marshal(v)
		require.NoError(t, err)

		var ref bytes.Buffer
		enc := vmsgpack.NewEncoder(&ref)
		enc.UseCompactInts(true)
		enc.SetSortMapKeys(true)
		require.NoError(t, enc.Encode(v))

		assert.Equal(t, ref.Bytes(), []byte(got), "%#v", v)
	}
}

func TestEncoder_PackFallback(t *testing.T) {
	type opts struct {
		Rgb   bool `msgpack:"rgb"`
		Width int  `msgpack:"width"`
	}

	raw, err := Marshal(opts{Rgb: true, Width: 80})
	require.NoError(t, err)

	dec := NewDecoder()
	dec.Feed(raw)
	v, ok := dec.Next()
	require.True(t, ok)
	require.Equal(t, Map, v.Kind())

	rgb, ok := MapGet(v.Map(), "rgb")
	require.True(t, ok)
	assert.True(t, rgb.Bool())
	width, ok := MapGet(v.Map(), "width")
	require.True(t, ok)
	assert.Equal(t, int64(80), width.Int())
}

func TestEncoder_PackError(t *testing.T) {
	var out Bytes
	err := NewEncoder(&out).Pack(make(chan int))
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestValue_Decode(t *testing.T) {
	v := MapValue(
		Pair{Key: StringValue("mode"), Value: StringValue("n")},
		Pair{Key: StringValue("blocking"), Value: BoolValue(false)},
	)

	var mode struct {
		Mode     string `msgpack:"mode"`
		Blocking bool   `msgpack:"blocking"`
	}
	require.NoError(t, v.Decode(&mode))
	assert.Equal(t, "n", mode.Mode)
	assert.False(t, mode.Blocking)

	var n int
	assert.Error(t, StringValue("x").Decode(&n))

	var copyOut Value
	require.NoError(t, v.Decode(&copyOut))
	assert.True(t, Equal(v, copyOut))
}

func TestFormat(t *testing.T) {
	v := ArrayValue(
		NilValue(), IntValue(-3), BoolValue(true), StringValue("hi"),
		BinaryValue([]byte{0x0f, 0xa0}), ExtValue(0, []byte{1}),
		MapValue(Pair{Key: StringValue("k"), Value: FloatValue(1.5)}),
	)
	assert.Equal(t, `[null, -3, True, "hi", b'0fa0', (extension), {"k" : 1.5}]`, Format(v))
	assert.Equal(t, `[null, integer, boolean, string, binary, extension, {string : float64}]`, TypeString(v))
	assert.Equal(t, "(invalid)", Format(Value{}))
}

func TestEncoder_PackValueKeepsUnsigned(t *testing.T) {
	wire := []byte{0xcf, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}
	dec := NewDecoder()
	dec.Feed(wire)
	v, ok := dec.Next()
	require.True(t, ok)

	assert.Equal(t, wire, []byte(packed(func(e *Encoder) { e.PackValue(v) })))
	assert.Equal(t, "18446744073709551614", Format(v))
	assert.Equal(t, "-2", Format(IntValue(-2)))
	assert.True(t, Equal(v, IntValue(-2)), "bit patterns match")
}

func TestMapGet(t *testing.T) {
	pairs := []Pair{
		{Key: IntValue(1), Value: IntValue(10)},
		{Key: StringValue("bold"), Value: BoolValue(true)},
	}
	v, ok := MapGet(pairs, "bold")
	assert.True(t, ok)
	assert.True(t, v.Bool())

	_, ok = MapGet(pairs, "italic")
	assert.False(t, ok)
}
