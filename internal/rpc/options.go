package rpc

import (
	"log/slog"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// Default sizes of the connection buffers.
const (
	DefaultReadBufferSize      = 16 * 1024
	DefaultWriteBufferCapacity = 64 * 1024
)

// NotificationHandler receives notifications from the peer. It runs on the
// read goroutine and params are only valid during the call.
type NotificationHandler func(method string, params []msgpack.Value)

// RequestHandler answers requests made by the peer. It runs on the read
// goroutine; the returned result or error is sent back as the response.
type RequestHandler func(method string, params []msgpack.Value) (result any, err error)

// ShutdownHandler is called once when the connection terminates, with the
// reason it did.
type ShutdownHandler func(err error)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// WithReadBufferSize sets the size of the chunks read from the stream.
func WithReadBufferSize(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.readSize = n
		}
	}
}

// WithWriteBufferCapacity sets the initial capacity of the outgoing buffer.
func WithWriteBufferCapacity(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.writeCap = n
		}
	}
}

// WithNotificationHandler sets the handler for incoming notifications.
func WithNotificationHandler(h NotificationHandler) Option {
	return func(c *Conn) {
		c.onNotify = h
	}
}

// WithRequestHandler sets the handler for incoming requests. Without one,
// requests are answered with an error.
func WithRequestHandler(h RequestHandler) Option {
	return func(c *Conn) {
		c.onRequest = h
	}
}

// WithShutdownHandler sets the callback run when the connection terminates.
func WithShutdownHandler(h ShutdownHandler) Option {
	return func(c *Conn) {
		c.onShutdown = h
	}
}
