package nvim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/nvgrid/internal/integration/process"
	"github.com/dshills/nvgrid/internal/msgpack"
	"github.com/dshills/nvgrid/internal/rpc"
	"github.com/dshills/nvgrid/internal/ui"
)

// Defaults for the client options.
const (
	DefaultModeTimeout = 100 * time.Millisecond
	DefaultStopGrace   = 2 * time.Second
)

// SpawnConfig describes the Neovim process to start. Args are passed to the
// executable unmodified, so they must include --embed.
type SpawnConfig struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Client is a connection to one Neovim instance. Redraw notifications are
// applied to its ui.Controller; everything else goes through the API methods.
//
// The window's Close and Shutdown run while the connection is being torn
// down and must not call Client.Close.
type Client struct {
	log  *slog.Logger
	id   string
	conn *rpc.Conn
	ui   *ui.Controller

	sup  *process.Supervisor
	proc *process.Process

	rpcOpts        []rpc.Option
	modeTimeout    time.Duration
	requestTimeout time.Duration
	stopGrace      time.Duration

	shutdownOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRPCOptions passes options to the underlying rpc.Conn.
func WithRPCOptions(opts ...rpc.Option) Option {
	return func(c *Client) {
		c.rpcOpts = append(c.rpcOpts, opts...)
	}
}

// WithModeTimeout sets how long GetMode waits for a reply.
func WithModeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.modeTimeout = d
		}
	}
}

// WithRequestTimeout sets the timeout of synchronous calls made by Exec.
// Zero waits until the context is done.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithStopGrace sets how long a spawned process gets to exit before it is
// signalled.
func WithStopGrace(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.stopGrace = d
		}
	}
}

func newClient(window ui.Window, opts []Option) *Client {
	if window == nil {
		window = ui.NopWindow{}
	}
	c := &Client{
		log:         slog.Default(),
		id:          uuid.NewString(),
		modeTimeout: DefaultModeTimeout,
		stopGrace:   DefaultStopGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("session", c.id))
	c.ui = ui.NewController(window, ui.WithLogger(c.log))
	return c
}

// Spawn starts Neovim and connects to it over its standard input and
// output. Cancelling ctx shuts the connection down.
func Spawn(ctx context.Context, cfg SpawnConfig, window ui.Window, opts ...Option) (*Client, error) {
	c := newClient(window, opts)

	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Dir = cfg.Dir
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	c.sup = process.NewSupervisor(process.WithLogger(c.log), process.WithMaxProcesses(1))
	proc, err := c.sup.Start("nvim", cmd)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", cfg.Path, err)
	}
	c.proc = proc

	c.start(ctx, proc.Stdout, proc.Stdin, proc)
	return c, nil
}

// Connect connects to a Neovim instance listening on addr, either a Unix
// socket path or a TCP host:port.
func Connect(ctx context.Context, addr string, window ui.Window, opts ...Option) (*Client, error) {
	c := newClient(window, opts)

	var d net.Dialer
	nc, err := d.DialContext(ctx, network(addr), addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	c.start(ctx, nc, nc, nc)
	return c, nil
}

// NewClient runs a client over an established stream, such as a socket
// accepted from Neovim.
func NewClient(ctx context.Context, rwc io.ReadWriteCloser, window ui.Window, opts ...Option) *Client {
	c := newClient(window, opts)
	c.start(ctx, rwc, rwc, rwc)
	return c
}

// network guesses the network of a listen address the way Neovim does for
// --server: anything that is not host:port is a socket path.
func network(addr string) string {
	if strings.ContainsRune(addr, '/') || strings.ContainsRune(addr, '\\') {
		return "unix"
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return "tcp"
	}
	return "unix"
}

// start takes the transport and runs the connection on it.
func (c *Client) start(ctx context.Context, r io.Reader, w io.Writer, closer io.Closer) {
	opts := append([]rpc.Option{rpc.WithLogger(c.log)}, c.rpcOpts...)
	opts = append(opts,
		rpc.WithNotificationHandler(c.onNotification),
		rpc.WithShutdownHandler(c.onShutdown),
	)
	c.conn = rpc.NewConn(r, w, closer, opts...)
	c.conn.Start(ctx)
	c.log.Info("connected")
}

func (c *Client) onNotification(method string, params []msgpack.Value) {
	if method == "redraw" {
		c.ui.Redraw(params)
		return
	}
	c.log.Debug("unhandled notification", slog.String("method", method))
}

// onShutdown tears the session down once the connection has terminated.
// A peer that hung up first gets the window closed.
func (c *Client) onShutdown(reason error) {
	c.shutdownOnce.Do(func() {
		window := c.ui.Window()
		if errors.Is(reason, rpc.ErrClosed) {
			c.log.Info("nvim exited")
			window.Close()
		} else if !errors.Is(reason, rpc.ErrShutdown) {
			c.log.Error("connection failed", slog.String("error", reason.Error()))
		}

		if c.sup != nil {
			c.sup.Shutdown(c.stopGrace)
		}
		window.Shutdown()
	})
}

// ID returns the session id used in log records.
func (c *Client) ID() string { return c.id }

// UI returns the redraw state machine.
func (c *Client) UI() *ui.Controller { return c.ui }

// Conn returns the underlying connection.
func (c *Client) Conn() *rpc.Conn { return c.conn }

// Process returns the spawned process, or nil for Connect.
func (c *Client) Process() *process.Process { return c.proc }

// Done is closed when the connection has terminated.
func (c *Client) Done() <-chan struct{} { return c.conn.Done() }

// Err reports why the connection terminated. See rpc.Conn.Err.
func (c *Client) Err() error { return c.conn.Err() }

// Close shuts the connection down and stops a spawned process.
func (c *Client) Close() error {
	return c.conn.Close()
}
