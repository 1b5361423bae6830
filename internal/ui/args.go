package ui

import "github.com/dshills/nvgrid/internal/msgpack"

// args reads the positional arguments of one redraw tuple. A missing
// argument or one of the wrong type marks the reader as failed; the handler
// checks ok before applying anything. Trailing arguments are ignored.
type args struct {
	vals []msgpack.Value
	next int
	bad  bool
}

func (a *args) take(kind msgpack.Kind) msgpack.Value {
	if a.next >= len(a.vals) {
		a.bad = true
		return msgpack.Value{}
	}
	v := a.vals[a.next]
	a.next++
	if v.Kind() != kind {
		a.bad = true
	}
	return v
}

func (a *args) ok() bool { return !a.bad }

func (a *args) int() int64 { return a.take(msgpack.Int).Int() }

func (a *args) bool() bool { return a.take(msgpack.Bool).Bool() }

func (a *args) str() string { return a.take(msgpack.String).Str() }

func (a *args) array() []msgpack.Value { return a.take(msgpack.Array).Array() }

func (a *args) pairs() []msgpack.Pair { return a.take(msgpack.Map).Map() }

// any returns the next argument whatever its type.
func (a *args) any() msgpack.Value {
	if a.next >= len(a.vals) {
		a.bad = true
		return msgpack.Value{}
	}
	v := a.vals[a.next]
	a.next++
	return v
}
