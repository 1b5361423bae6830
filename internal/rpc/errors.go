package rpc

import (
	"errors"
	"fmt"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// Standard errors returned by the connection.
var (
	// ErrShutdown indicates the connection was shut down locally.
	ErrShutdown = errors.New("rpc connection shut down")

	// ErrClosed indicates the peer closed its end of the stream.
	ErrClosed = errors.New("rpc connection closed by peer")

	// ErrTimeout indicates a request timed out before its reply arrived.
	ErrTimeout = errors.New("rpc request timed out")

	// ErrNotStarted indicates the connection loops have not been started.
	ErrNotStarted = errors.New("rpc connection not started")
)

// RemoteError is an error object returned by the peer. Neovim reports errors
// as a two element array of an error type and a message.
type RemoteError struct {
	Type    int64
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("nvim error %d: %s", e.Type, e.Message)
}

// ErrorFromValue converts the error field of a response to a Go error.
// A nil field yields nil.
func ErrorFromValue(v msgpack.Value) error {
	switch {
	case v.IsNil():
		return nil
	case v.IsString():
		return &RemoteError{Message: v.Str()}
	}
	if arr := v.Array(); len(arr) >= 2 && arr[1].IsString() {
		return &RemoteError{Type: arr[0].Int(), Message: arr[1].Str()}
	}
	return &RemoteError{Message: msgpack.Format(v)}
}

// TransportError wraps an I/O failure of the underlying stream.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// EncodeError reports that the arguments of an outgoing message could not be
// encoded. Nothing of the message was sent.
type EncodeError struct {
	Method string
	Err    error
}

// Error implements the error interface.
func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *EncodeError) Unwrap() error {
	return e.Err
}
