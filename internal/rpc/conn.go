package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/nvgrid/internal/msgpack"
	"github.com/dshills/nvgrid/internal/ringbuf"
)

// Message type tags of the MessagePack-RPC envelope.
const (
	typeRequest      = 0
	typeResponse     = 1
	typeNotification = 2
)

// maxWriteChunk bounds how much is copied out of the write buffer per write.
const maxWriteChunk = 64 * 1024

// Conn is a MessagePack-RPC connection over a byte stream.
//
// Outgoing messages are encoded straight into a ring buffer under the write
// mutex. A writer goroutine is woken when the buffer goes from empty to
// non-empty and sleeps again once it has drained it. A reader goroutine
// decodes incoming data and dispatches responses, notifications and
// requests.
type Conn struct {
	r io.Reader
	w io.Writer
	c io.Closer

	log        *slog.Logger
	readSize   int
	writeCap   int
	onNotify   NotificationHandler
	onRequest  RequestHandler
	onShutdown ShutdownHandler

	table *table

	wmu  sync.Mutex
	wbuf *ringbuf.Buffer
	enc  *msgpack.Encoder
	wake chan struct{}

	started   atomic.Bool
	closed    atomic.Bool
	stopWrite chan struct{}
	writeDone chan struct{}
	readDone  chan struct{}
	done      chan struct{}
	once      sync.Once
	err       error
}

// NewConn creates a connection reading from r and writing to w. Closing c
// must unblock pending reads and writes. Call Start to run it.
func NewConn(r io.Reader, w io.Writer, c io.Closer, opts ...Option) *Conn {
	conn := &Conn{
		r:         r,
		w:         w,
		c:         c,
		log:       slog.Default(),
		readSize:  DefaultReadBufferSize,
		writeCap:  DefaultWriteBufferCapacity,
		wake:      make(chan struct{}, 1),
		stopWrite: make(chan struct{}),
		writeDone: make(chan struct{}),
		readDone:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(conn)
	}
	conn.table = newTable(conn.log)
	conn.wbuf = ringbuf.New(conn.writeCap)
	conn.enc = msgpack.NewEncoder(conn.wbuf)
	return conn
}

// Start launches the read and write goroutines. Cancelling ctx shuts the
// connection down.
func (c *Conn) Start(ctx context.Context) {
	if c.closed.Load() || c.started.Swap(true) {
		return
	}
	go c.writeLoop()
	go c.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			c.shutdown(ErrShutdown)
		case <-c.done:
		}
	}()
}

// Close shuts the connection down. Pending response handlers never run.
func (c *Conn) Close() error {
	c.shutdown(ErrShutdown)
	return nil
}

// Done is closed once the connection has terminated.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection terminated: ErrShutdown after Close,
// ErrClosed when the peer hung up, or a *TransportError. It is nil while the
// connection is running.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Request sends a request with the given message id. Use NullID when no
// reply is expected.
func (c *Conn) Request(id uint32, method string, args ...any) error {
	return c.send(method, func(e *msgpack.Encoder) error {
		e.StartArray(4)
		e.PackUint(typeRequest)
		e.PackUint(uint64(id))
		e.PackString(method)
		return packArgs(e, args)
	})
}

// Call sends a request whose reply is delivered to handler.
func (c *Conn) Call(method string, handler ResponseHandler, args ...any) error {
	if c.closed.Load() {
		return ErrShutdown
	}
	id := c.table.register(handler)
	if err := c.Request(id, method, args...); err != nil {
		c.table.abandon(id)
		return err
	}
	return nil
}

// CallTimeout is like Call, but handler is invoked with timedOut set if no
// reply arrives within d. A reply arriving later is discarded.
func (c *Conn) CallTimeout(d time.Duration, method string, handler ResponseHandler, args ...any) error {
	if c.closed.Load() {
		return ErrShutdown
	}
	id := c.table.registerTimeout(d, handler)
	if err := c.Request(id, method, args...); err != nil {
		c.table.abandon(id)
		return err
	}
	return nil
}

// Command sends a request and ignores its reply.
func (c *Conn) Command(method string, args ...any) error {
	return c.Request(NullID, method, args...)
}

// Notify sends a notification.
func (c *Conn) Notify(method string, args ...any) error {
	return c.send(method, func(e *msgpack.Encoder) error {
		e.StartArray(3)
		e.PackUint(typeNotification)
		e.PackString(method)
		return packArgs(e, args)
	})
}

type syncReply struct {
	err    error
	result msgpack.Value
}

// CallSync sends a request and blocks until its reply arrives, the timeout
// (if non-zero) expires, ctx is done or the connection terminates. When
// result is non-nil the reply is decoded into it.
func (c *Conn) CallSync(ctx context.Context, timeout time.Duration, method string, result any, args ...any) error {
	ch := make(chan syncReply, 1)
	handler := func(errv, res msgpack.Value, timedOut bool) {
		var r syncReply
		switch {
		case timedOut:
			r.err = ErrTimeout
		case !errv.IsNil():
			r.err = ErrorFromValue(errv)
		case result != nil:
			r.result = res.Clone()
		}
		ch <- r
	}

	var err error
	if timeout > 0 {
		err = c.CallTimeout(timeout, method, handler, args...)
	} else {
		err = c.Call(method, handler, args...)
	}
	if err != nil {
		return err
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("%s: %w", method, r.err)
		}
		if result != nil {
			if err := r.result.Decode(result); err != nil {
				return fmt.Errorf("%s: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err
	}
}

// Respond sends the response to a request made by the peer.
func (c *Conn) Respond(id uint32, errObj, result any) error {
	return c.send("response", func(e *msgpack.Encoder) error {
		e.StartArray(4)
		e.PackUint(typeResponse)
		e.PackUint(uint64(id))
		if err := e.Pack(errObj); err != nil {
			return err
		}
		return e.Pack(result)
	})
}

// Pending returns the number of requests waiting for a reply.
func (c *Conn) Pending() int {
	return c.table.pending()
}

func packArgs(e *msgpack.Encoder, args []any) error {
	e.StartArray(len(args))
	for i, arg := range args {
		if err := e.Pack(arg); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// send encodes one message into the write buffer. A message that fails to
// encode is removed again, so the stream never holds a partial message.
func (c *Conn) send(method string, encode func(e *msgpack.Encoder) error) error {
	if c.closed.Load() {
		return ErrShutdown
	}
	if !c.started.Load() {
		return ErrNotStarted
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed.Load() {
		return ErrShutdown
	}

	old := c.wbuf.Len()
	if err := encode(c.enc); err != nil {
		c.wbuf.Truncate(old)
		return &EncodeError{Method: method, Err: err}
	}
	if old == 0 && c.wbuf.Len() > 0 {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *Conn) writeLoop() {
	defer close(c.writeDone)

	chunk := make([]byte, 0, maxWriteChunk)
	for {
		select {
		case <-c.wake:
		case <-c.stopWrite:
			return
		}

		for {
			c.wmu.Lock()
			data := c.wbuf.Data()
			if len(data) == 0 {
				c.wmu.Unlock()
				break
			}
			chunk = append(chunk[:0], data[:min(len(data), maxWriteChunk)]...)
			c.wmu.Unlock()

			n, err := c.w.Write(chunk)

			c.wmu.Lock()
			c.wbuf.Consume(n)
			c.wmu.Unlock()

			if err != nil {
				if !c.closed.Load() {
					c.log.Error("write failed", slog.String("error", err.Error()))
				}
				go c.shutdown(&TransportError{Op: "write", Err: err})
				return
			}
		}
	}
}

func (c *Conn) readLoop() {
	defer close(c.readDone)

	dec := msgpack.NewDecoder()
	buf := make([]byte, c.readSize)
	for {
		n, err := c.r.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for !c.closed.Load() {
				v, ok := dec.Next()
				if !ok {
					break
				}
				c.dispatch(v)
			}
		}
		if err != nil {
			if c.closed.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				c.log.Info("peer closed the connection")
				c.shutdown(ErrClosed)
			} else {
				c.log.Error("read failed", slog.String("error", err.Error()))
				c.shutdown(&TransportError{Op: "read", Err: err})
			}
			return
		}
		if c.closed.Load() {
			return
		}
	}
}

// dispatch classifies one incoming message.
func (c *Conn) dispatch(v msgpack.Value) {
	msg := v.Array()
	if len(msg) >= 3 && msg[0].IsInt() {
		switch msg[0].Uint() {
		case typeResponse:
			if len(msg) == 4 && msg[1].IsInt() {
				c.onResponse(msg[1].Uint(), msg[2], msg[3])
				return
			}
		case typeNotification:
			if len(msg) == 3 && msg[1].IsString() && msg[2].IsArray() {
				c.onNotification(msg[1].Str(), msg[2].Array())
				return
			}
		case typeRequest:
			if len(msg) == 4 && msg[1].IsInt() && msg[2].IsString() && msg[3].IsArray() {
				c.onPeerRequest(msg[1].Uint(), msg[2].Str(), msg[3].Array())
				return
			}
		}
	}

	c.log.Error("message type error",
		slog.String("type", msgpack.TypeString(v)),
		slog.String("value", msgpack.Format(v)))
}

func (c *Conn) onResponse(id uint64, errv, result msgpack.Value) {
	if id == NullID {
		return
	}
	if id > math.MaxUint32 {
		c.log.Error("response id out of range", slog.Uint64("id", id))
		return
	}
	c.table.resolve(uint32(id), errv, result)
}

func (c *Conn) onNotification(method string, params []msgpack.Value) {
	if c.onNotify != nil {
		c.onNotify(method, params)
		return
	}
	c.log.Info("unhandled notification", slog.String("method", method))
}

func (c *Conn) onPeerRequest(id uint64, method string, params []msgpack.Value) {
	if id > math.MaxUint32 {
		c.log.Error("request id out of range", slog.Uint64("id", id))
		return
	}

	if c.onRequest == nil {
		c.log.Info("unhandled request", slog.String("method", method))
		c.respond(uint32(id), msgpack.Tuple{0, "no handler for method " + method}, nil)
		return
	}

	result, err := c.onRequest(method, params)
	if err != nil {
		c.respond(uint32(id), msgpack.Tuple{0, err.Error()}, nil)
		return
	}
	c.respond(uint32(id), nil, result)
}

func (c *Conn) respond(id uint32, errObj, result any) {
	if err := c.Respond(id, errObj, result); err != nil && !errors.Is(err, ErrShutdown) {
		c.log.Error("failed to send response", slog.Uint64("id", uint64(id)),
			slog.String("error", err.Error()))
	}
}

// shutdown terminates the connection. The write side is stopped before the
// transport is closed and the pending table is dropped.
func (c *Conn) shutdown(reason error) {
	c.once.Do(func() {
		c.closed.Store(true)

		close(c.stopWrite)
		if c.c != nil {
			if err := c.c.Close(); err != nil {
				c.log.Debug("close transport", slog.String("error", err.Error()))
			}
		}
		if c.started.Load() {
			<-c.writeDone
		}

		c.table.close()

		c.wmu.Lock()
		c.wbuf.Close()
		c.wmu.Unlock()

		c.err = reason
		close(c.done)

		if c.onShutdown != nil {
			c.onShutdown(reason)
		}
	})
}
