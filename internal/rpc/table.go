package rpc

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// NullID is the message id of requests whose reply is not wanted.
const NullID = math.MaxUint32

// ResponseHandler receives the outcome of a request. Exactly one call is made
// per registered request: either with the error and result fields of the
// reply, or with timedOut set. The values are only valid during the call.
// Handlers never run once the connection is shut down.
type ResponseHandler func(err, result msgpack.Value, timedOut bool)

const (
	bitReply uint32 = 1 << iota
	bitTimer
)

type responseContext struct {
	handler    ResponseHandler
	hasTimeout bool
	timer      *time.Timer
	state      atomic.Uint32
}

// table correlates message ids with pending response contexts.
//
// A context is released once both the reply has been seen and its timer has
// fired. Contexts without a timeout start with the timer bit set. Whoever
// observes the other bit already set when setting its own does the release,
// so it happens exactly once and nobody touches the context afterwards.
type table struct {
	mu     sync.Mutex
	slots  []*responseContext
	free   []*responseContext
	last   int
	closed bool
	log    *slog.Logger
}

const initialSlots = 64

func newTable(log *slog.Logger) *table {
	return &table{
		slots: make([]*responseContext, initialSlots),
		last:  initialSlots - 1,
		log:   log,
	}
}

func (t *table) register(handler ResponseHandler) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := t.alloc()
	ctx.handler = handler
	ctx.hasTimeout = false
	ctx.state.Store(bitTimer)
	return t.store(ctx)
}

func (t *table) registerTimeout(d time.Duration, handler ResponseHandler) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := t.alloc()
	ctx.handler = handler
	ctx.hasTimeout = true
	ctx.state.Store(0)
	id := t.store(ctx)
	ctx.timer = time.AfterFunc(d, func() { t.expire(ctx) })
	return id
}

func (t *table) alloc() *responseContext {
	if n := len(t.free); n > 0 {
		ctx := t.free[n-1]
		t.free = t.free[:n-1]
		return ctx
	}
	return &responseContext{}
}

// store puts ctx in the first empty slot after the last one used, wrapping
// around, and doubles the table when every slot is taken.
func (t *table) store(ctx *responseContext) uint32 {
	size := len(t.slots)
	slot := -1
	for i := t.last + 1; i < size; i++ {
		if t.slots[i] == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		for i := 0; i <= t.last && i < size; i++ {
			if t.slots[i] == nil {
				slot = i
				break
			}
		}
	}
	if slot < 0 {
		if size >= NullID/2 {
			panic("rpc: response table overflow")
		}
		t.slots = append(t.slots, make([]*responseContext, size)...)
		slot = size
	}

	t.last = slot
	t.slots[slot] = ctx
	return uint32(slot)
}

// resolve delivers a reply. A reply for an unknown id is logged and ignored,
// a reply arriving after the timeout is discarded.
func (t *table) resolve(id uint32, errv, result msgpack.Value) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if int64(id) >= int64(len(t.slots)) || t.slots[id] == nil {
		t.mu.Unlock()
		t.log.Error("no response handler", slog.Uint64("id", uint64(id)),
			slog.String("error", msgpack.Format(errv)))
		return
	}
	ctx := t.slots[id]
	t.slots[id] = nil
	t.mu.Unlock()

	handler, hasTimeout := ctx.handler, ctx.hasTimeout
	old := ctx.state.Or(bitReply)

	if hasTimeout && old&bitTimer != 0 {
		t.log.Debug("late reply discarded", slog.Uint64("id", uint64(id)))
		t.release(ctx)
		return
	}

	handler(errv, result, false)

	if old&bitTimer != 0 {
		t.release(ctx)
	}
}

// expire runs when the timer of ctx fires.
func (t *table) expire(ctx *responseContext) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}

	handler := ctx.handler
	old := ctx.state.Or(bitTimer)

	if old&bitReply != 0 {
		t.release(ctx)
		return
	}
	handler(msgpack.Value{}, msgpack.Value{}, true)
}

// abandon withdraws a registration whose request was never sent. The handler
// is not called.
func (t *table) abandon(id uint32) {
	t.mu.Lock()
	if int64(id) >= int64(len(t.slots)) || t.slots[id] == nil {
		t.mu.Unlock()
		return
	}
	ctx := t.slots[id]
	t.slots[id] = nil
	t.mu.Unlock()

	if ctx.state.Or(bitReply)&bitTimer != 0 {
		t.release(ctx)
	}
}

func (t *table) release(ctx *responseContext) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx.handler = nil
	ctx.timer = nil
	if !t.closed {
		t.free = append(t.free, ctx)
	}
}

// pending returns the number of occupied slots.
func (t *table) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, ctx := range t.slots {
		if ctx != nil {
			n++
		}
	}
	return n
}

// close abandons every pending context. Handlers that have not run yet never
// will.
func (t *table) close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for i, ctx := range t.slots {
		if ctx != nil && ctx.timer != nil {
			ctx.timer.Stop()
		}
		t.slots[i] = nil
	}
	t.free = nil
}
