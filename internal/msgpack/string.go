package msgpack

import (
	"strconv"
	"strings"
)

const hexDigits = "0123456789abcdef"

// Format renders v for diagnostics.
//
//	null, 42, 1.5, True, "text", b'00ff', (extension), [1, 2], {"k" : 1}
func Format(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

// TypeString renders the type structure of v, for example
// [string, [integer, map]]. It is used to report malformed messages.
func TypeString(v Value) string {
	var sb strings.Builder
	writeType(&sb, v)
	return sb.String()
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return Format(v)
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.kind {
	case Invalid:
		sb.WriteString("(invalid)")
	case Nil:
		sb.WriteString("null")
	case Int:
		if v.unsigned {
			sb.WriteString(strconv.FormatUint(v.num, 10))
		} else {
			sb.WriteString(strconv.FormatInt(v.Int(), 10))
		}
	case Float:
		sb.WriteString(strconv.FormatFloat(v.Float(), 'f', -1, 64))
	case Bool:
		if v.Bool() {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case String:
		sb.WriteByte('"')
		sb.Write(v.data)
		sb.WriteByte('"')
	case Binary:
		sb.WriteString("b'")
		for _, c := range v.data {
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&15])
		}
		sb.WriteByte('\'')
	case Ext:
		sb.WriteString("(extension)")
	case Array:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, item)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		for i, p := range v.pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeValue(sb, p.Key)
			sb.WriteString(" : ")
			writeValue(sb, p.Value)
		}
		sb.WriteByte('}')
	}
}

func writeType(sb *strings.Builder, v Value) {
	switch v.kind {
	case Array:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeType(sb, item)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		for i, p := range v.pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeType(sb, p.Key)
			sb.WriteString(" : ")
			writeType(sb, p.Value)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(v.kind.String())
	}
}
