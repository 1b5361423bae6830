package rpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// fakePeer plays the remote side of a connection over net.Pipe.
type fakePeer struct {
	conn net.Conn
	dec  *msgpack.Decoder
	buf  []byte
}

func newPair(t *testing.T, opts ...Option) (*Conn, *fakePeer) {
	t.Helper()
	local, remote := net.Pipe()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	c := NewConn(local, local, local, opts...)
	c.Start(context.Background())
	t.Cleanup(func() {
		c.Close()
		remote.Close()
	})
	return c, &fakePeer{conn: remote, dec: msgpack.NewDecoder(), buf: make([]byte, 4096)}
}

// read returns the next message written by the connection.
func (p *fakePeer) read(t *testing.T) []msgpack.Value {
	t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if v, ok := p.dec.Next(); ok {
			return v.Clone().Array()
		}
		n, err := p.conn.Read(p.buf)
		require.NoError(t, err)
		p.dec.Feed(p.buf[:n])
	}
}

func (p *fakePeer) send(t *testing.T, msg ...any) {
	t.Helper()
	raw, err := msgpack.Marshal(msgpack.Tuple(msg))
	require.NoError(t, err)
	p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err = p.conn.Write(raw)
	require.NoError(t, err)
}

func TestConn_CallSync(t *testing.T) {
	c, peer := newPair(t)

	go func() {
		req := peer.read(t)
		peer.send(t, 1, req[1].Uint(), nil, "pong: "+req[3].Array()[0].Str())
	}()

	var out string
	err := c.CallSync(context.Background(), time.Second, "nvim_eval", &out, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong: ping", out)
	assert.Equal(t, 0, c.Pending())
}

func TestConn_RequestEnvelope(t *testing.T) {
	c, peer := newPair(t)

	require.NoError(t, c.Command("nvim_input", "<Esc>"))
	msg := peer.read(t)
	require.Len(t, msg, 4)
	assert.Equal(t, uint64(typeRequest), msg[0].Uint())
	assert.Equal(t, uint64(NullID), msg[1].Uint())
	assert.Equal(t, "nvim_input", msg[2].Str())
	assert.Equal(t, `["<Esc>"]`, msgpack.Format(msg[3]))

	require.NoError(t, c.Notify("nvim_ui_try_resize", 80, 24))
	msg = peer.read(t)
	require.Len(t, msg, 3)
	assert.Equal(t, uint64(typeNotification), msg[0].Uint())
	assert.Equal(t, "nvim_ui_try_resize", msg[1].Str())
	assert.Equal(t, `[80, 24]`, msgpack.Format(msg[2]))
}

func TestConn_RemoteError(t *testing.T) {
	c, peer := newPair(t)

	go func() {
		req := peer.read(t)
		peer.send(t, 1, req[1].Uint(), []any{1, "E492: Not an editor command"}, nil)
	}()

	err := c.CallSync(context.Background(), time.Second, "nvim_command", nil, "bogus")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, int64(1), remote.Type)
	assert.Equal(t, "E492: Not an editor command", remote.Message)
}

func TestConn_Timeout(t *testing.T) {
	c, peer := newPair(t)

	got := make(chan []msgpack.Value, 1)
	go func() { got <- peer.read(t) }()

	err := c.CallSync(context.Background(), 20*time.Millisecond, "nvim_get_mode", nil)
	assert.ErrorIs(t, err, ErrTimeout)

	req := <-got
	// The late reply is discarded and releases the context.
	peer.send(t, 1, req[1].Uint(), nil, map[string]any{"mode": "n"})
	assert.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestConn_EncodeFailureLeavesNoTrace(t *testing.T) {
	c, peer := newPair(t)

	err := c.Call("nvim_call_function", func(msgpack.Value, msgpack.Value, bool) {
		t.Error("handler of unsent request ran")
	}, "f", make(chan int))
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 0, c.Pending())

	require.NoError(t, c.Notify("after"))
	msg := peer.read(t)
	assert.Equal(t, "after", msg[1].Str())
}

func TestConn_Notification(t *testing.T) {
	got := make(chan string, 1)
	_, peer := newPair(t, WithNotificationHandler(func(method string, params []msgpack.Value) {
		got <- method + " " + msgpack.Format(msgpack.ArrayValue(params...))
	}))

	peer.send(t, 2, "redraw", []any{[]any{"flush"}})

	select {
	case s := <-got:
		assert.Equal(t, `redraw [["flush"]]`, s)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestConn_PeerRequestWithoutHandler(t *testing.T) {
	_, peer := newPair(t)

	peer.send(t, 0, 9, "gui_query", []any{})
	resp := peer.read(t)
	require.Len(t, resp, 4)
	assert.Equal(t, uint64(typeResponse), resp[0].Uint())
	assert.Equal(t, uint64(9), resp[1].Uint())
	assert.True(t, resp[2].IsArray())
	assert.True(t, resp[3].IsNil())
}

func TestConn_PeerRequestHandler(t *testing.T) {
	_, peer := newPair(t, WithRequestHandler(func(method string, params []msgpack.Value) (any, error) {
		if method == "fail" {
			return nil, errors.New("boom")
		}
		return len(params), nil
	}))

	peer.send(t, 0, 1, "count", []any{"a", "b"})
	resp := peer.read(t)
	assert.True(t, resp[2].IsNil())
	assert.Equal(t, int64(2), resp[3].Int())

	peer.send(t, 0, 2, "fail", []any{})
	resp = peer.read(t)
	assert.Equal(t, `[0, "boom"]`, msgpack.Format(resp[2]))
}

func TestConn_MalformedMessageIsDropped(t *testing.T) {
	got := make(chan string, 1)
	_, peer := newPair(t, WithNotificationHandler(func(method string, _ []msgpack.Value) {
		got <- method
	}))

	peer.send(t, 7, "junk")
	peer.send(t, 2, "ok", []any{})

	select {
	case m := <-got:
		assert.Equal(t, "ok", m)
	case <-time.After(2 * time.Second):
		t.Fatal("connection stopped after malformed message")
	}
}

func TestConn_PeerHangup(t *testing.T) {
	reason := make(chan error, 1)
	c, peer := newPair(t, WithShutdownHandler(func(err error) { reason <- err }))

	pending := make(chan error, 1)
	go func() {
		pending <- c.CallSync(context.Background(), 0, "nvim_get_api_info", nil)
	}()
	peer.read(t)
	peer.conn.Close()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not terminate")
	}
	assert.ErrorIs(t, c.Err(), ErrClosed)
	assert.ErrorIs(t, <-reason, ErrClosed)
	assert.ErrorIs(t, <-pending, ErrClosed)

	assert.ErrorIs(t, c.Notify("late"), ErrShutdown)
}

func TestConn_CloseBeforeStart(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	c := NewConn(local, local, local, WithLogger(discardLogger()))
	require.NoError(t, c.Close())
	<-c.Done()
	assert.ErrorIs(t, c.Err(), ErrShutdown)
	assert.ErrorIs(t, c.Command("x"), ErrShutdown)
}

func TestConn_SendBeforeStart(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	c := NewConn(local, local, local, WithLogger(discardLogger()))
	defer c.Close()
	assert.ErrorIs(t, c.Notify("early"), ErrNotStarted)
	err := c.Call("early", func(_, _ msgpack.Value, _ bool) {})
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, 0, c.Pending())
}
