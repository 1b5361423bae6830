package ui

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller applies redraw notifications to the global grid.
//
// Redraw and everything it calls run on a single goroutine, the connection's
// reader. Completed grids are handed to a single presentation goroutine
// through GlobalGrid using three grids: one being written, one complete and
// one being presented. The option getters may be called from any goroutine.
type Controller struct {
	log    *slog.Logger
	window Window

	grids      [3]Grid
	writing    *Grid
	complete   atomic.Pointer[Grid]
	presenting *Grid

	hl    highlightTable
	modes []CursorAttrs
	mode  int

	optMu       sync.Mutex
	opts        Options
	title       string
	guifont     string
	showtabline Showtabline
	tabpages    []Tabpage
	selected    int64

	flushMu     sync.Mutex
	flushWaiter chan struct{}
}

// NewController returns a controller notifying window of changes.
// A nil window is replaced by NopWindow.
func NewController(window Window, opts ...Option) *Controller {
	if window == nil {
		window = NopWindow{}
	}
	c := &Controller{
		log:         slog.Default(),
		window:      window,
		hl:          newHighlightTable(),
		showtabline: ShowtablineMultiple,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.writing = &c.grids[0]
	c.complete.Store(&c.grids[1])
	c.presenting = &c.grids[2]
	return c
}

// Window returns the window the controller notifies.
func (c *Controller) Window() Window {
	return c.window
}

// GlobalGrid returns the most recently completed grid. It never blocks and
// must only be called from one goroutine at a time. The grid stays valid
// and unchanged until the next call.
func (c *Controller) GlobalGrid() *Grid {
	for {
		latest := c.complete.Load()
		if latest.DrawTick() <= c.presenting.DrawTick() {
			return c.presenting
		}
		if c.complete.CompareAndSwap(latest, c.presenting) {
			c.presenting = latest
			return latest
		}
	}
}

// ExpectFlush returns a channel that is closed by the next flush. While it
// is pending, the window is not notified of the flush or of option and
// title changes.
func (c *Controller) ExpectFlush() <-chan struct{} {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	if c.flushWaiter == nil {
		c.flushWaiter = make(chan struct{})
	}
	return c.flushWaiter
}

// CancelFlush drops the waiter returned by ExpectFlush if it is still
// pending, so the next flush notifies the window again. The channel is left
// open.
func (c *Controller) CancelFlush(waiter <-chan struct{}) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	if c.flushWaiter != nil && c.flushWaiter == waiter {
		c.flushWaiter = nil
	}
}

func (c *Controller) waiting() bool {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	return c.flushWaiter != nil
}

// Options returns the ext_* options.
func (c *Controller) Options() Options {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return c.opts
}

// Title returns the window title.
func (c *Controller) Title() string {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return c.title
}

// Guifont returns the raw guifont option. See ParseGuifont.
func (c *Controller) Guifont() string {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return c.guifont
}

// Showtabline returns the showtabline option.
func (c *Controller) Showtabline() Showtabline {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return c.showtabline
}

// Tabpages returns the tabs of the last tabline_update.
func (c *Controller) Tabpages() []Tabpage {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return slices.Clone(c.tabpages)
}

// SelectedTab returns the handle of the current tab page.
func (c *Controller) SelectedTab() int64 {
	c.optMu.Lock()
	defer c.optMu.Unlock()
	return c.selected
}

// Redraw applies the events of one redraw notification. Each event is an
// array of its name followed by one argument tuple per invocation.
func (c *Controller) Redraw(events []msgpack.Value) {
	for _, ev := range events {
		items := ev.Array()
		if len(items) == 0 || !items[0].IsString() {
			c.log.Error("redraw event type error", slog.String("event", msgpack.Format(ev)))
			continue
		}

		name := items[0].Str()
		handle, ok := redrawHandlers[name]
		if !ok {
			if !ignoredEvents[name] {
				c.log.Debug("unhandled redraw event", slog.String("event", name))
			}
			continue
		}

		for _, tuple := range items[1:] {
			if !tuple.IsArray() {
				c.log.Error("argument type error", slog.String("event", name),
					slog.String("type", msgpack.TypeString(tuple)))
				continue
			}
			a := args{vals: tuple.Array()}
			if !handle(c, &a) {
				c.log.Error("argument type error", slog.String("event", name),
					slog.String("type", msgpack.TypeString(tuple)))
			}
		}
	}
}

// flush publishes the writing grid and continues on a copy of it.
func (c *Controller) flush() {
	c.writing.tick.Add(1)
	completed := c.writing
	c.writing = c.complete.Swap(completed)
	c.writing.copyFrom(completed)

	c.flushMu.Lock()
	waiter := c.flushWaiter
	c.flushWaiter = nil
	c.flushMu.Unlock()

	if waiter != nil {
		close(waiter)
		return
	}
	c.window.Redraw()
}

func (c *Controller) blankCell() Cell {
	return newCell(" ", 0, c.hl[0])
}

// checkGrid reports whether grid names the global grid.
func (c *Controller) checkGrid(event string, grid int64) bool {
	if grid != 1 {
		c.log.Error("unknown grid", slog.String("event", event), slog.Int64("grid", grid))
		return false
	}
	return true
}

func (c *Controller) logBounds(event string, attrs ...any) {
	c.log.Error("out of bounds", append([]any{slog.String("event", event)}, attrs...)...)
}
