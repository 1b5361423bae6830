package present

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/dshills/nvgrid/internal/ui"
)

// Session is the part of a Neovim client the terminal drives.
type Session interface {
	UI() *ui.Controller
	Input(keys string) error
	InputMouse(button, action, modifiers string, row, col int) error
	Paste(data string) error
	TryResize(width, height int) error
	Done() <-chan struct{}
}

// Requests posted to the event loop as tcell.EventInterrupt payloads.
type request uint8

const (
	requestRedraw request = iota
	requestTitle
	requestClose
	requestQuit
)

// Terminal draws the global grid on a tcell screen. It implements ui.Window;
// the window callbacks only post events, Run does the work.
type Terminal struct {
	screen    tcell.Screen
	log       *slog.Logger
	trueColor bool
	detect    bool

	mu      sync.Mutex
	palette *palette

	redrawPending atomic.Bool
	closed        atomic.Bool

	mouse   mouseState
	paste   strings.Builder
	pasting bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(t *Terminal) {
		if log != nil {
			t.log = log
		}
	}
}

// WithScreen draws on screen instead of the controlling terminal.
func WithScreen(screen tcell.Screen) Option {
	return func(t *Terminal) {
		t.screen = screen
	}
}

// WithTrueColor overrides true color detection. Without true color, RGB
// colors are mapped to the nearest palette entry.
func WithTrueColor(on bool) Option {
	return func(t *Terminal) {
		t.trueColor = on
		t.detect = false
	}
}

// NewTerminal initializes the screen with mouse and bracketed paste
// reporting enabled.
func NewTerminal(opts ...Option) (*Terminal, error) {
	t := &Terminal{log: slog.Default(), detect: true}
	for _, opt := range opts {
		opt(t)
	}
	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return nil, err
	}
	t.screen.EnableMouse()
	t.screen.EnablePaste()

	if t.detect {
		t.trueColor = t.screen.Colors() > 256
	}
	if !t.trueColor {
		t.palette = newPalette(min(t.screen.Colors(), 256))
	}
	return t, nil
}

// Fini restores the terminal.
func (t *Terminal) Fini() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screen.Fini()
}

// Size returns the screen size in cells.
func (t *Terminal) Size() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.screen.Size()
}

func (t *Terminal) post(r request) {
	if err := t.screen.PostEvent(tcell.NewEventInterrupt(r)); err != nil {
		t.log.Debug("event queue full", slog.Int("request", int(r)))
		if r == requestRedraw {
			t.redrawPending.Store(false)
		}
	}
}

// Redraw schedules drawing the latest grid. Requests arriving before the
// previous one was handled are merged.
func (t *Terminal) Redraw() {
	if t.redrawPending.CompareAndSwap(false, true) {
		t.post(requestRedraw)
	}
}

func (t *Terminal) OptionsSet()     {}
func (t *Terminal) FontSet()        {}
func (t *Terminal) ShowtablineSet() {}

// TitleSet updates the terminal title.
func (t *Terminal) TitleSet() { t.post(requestTitle) }

// TablineUpdate updates the terminal title, which names the current tab.
func (t *Terminal) TablineUpdate() { t.post(requestTitle) }

// Close is called when Neovim exits.
func (t *Terminal) Close() {
	t.closed.Store(true)
	t.post(requestClose)
}

// Shutdown stops Run.
func (t *Terminal) Shutdown() { t.post(requestQuit) }

// Closed reports whether Neovim exited on its own.
func (t *Terminal) Closed() bool { return t.closed.Load() }

// Run handles screen events until the session shuts down or ctx is done.
// Keys, mouse events, pastes and resizes are forwarded to s.
func (t *Terminal) Run(ctx context.Context, s Session) error {
	resize := debouncer{delay: resizeDelay}
	defer resize.stop()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.Done():
		case <-stop:
			return
		}
		t.post(requestQuit)
	}()

	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}

		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			r, _ := ev.Data().(request)
			switch r {
			case requestRedraw:
				t.redrawPending.Store(false)
				t.Draw(s.UI().GlobalGrid())
			case requestTitle:
				t.setTitle(s.UI())
			case requestClose:
				t.log.Info("nvim closed the window")
			case requestQuit:
				return ctx.Err()
			}

		case *tcell.EventResize:
			w, h := ev.Size()
			t.mu.Lock()
			t.screen.Sync()
			t.mu.Unlock()
			resize.call(func() {
				t.forward("nvim_ui_try_resize", s.TryResize(w, h))
			})

		case *tcell.EventPaste:
			if ev.Start() {
				t.pasting = true
				t.paste.Reset()
				continue
			}
			t.pasting = false
			if t.paste.Len() > 0 {
				t.forward("nvim_paste", s.Paste(t.paste.String()))
			}

		case *tcell.EventKey:
			if t.pasting {
				t.pasteKey(ev)
				continue
			}
			if keys := KeyToInput(ev); keys != "" {
				t.forward("nvim_input", s.Input(keys))
			}

		case *tcell.EventMouse:
			button, action, ok := t.mouse.translate(ev)
			if !ok {
				continue
			}
			x, y := ev.Position()
			t.forward("nvim_input_mouse", s.InputMouse(button, action, modifierPrefix(ev.Modifiers()), y, x))
		}
	}
}

func (t *Terminal) forward(method string, err error) {
	if err != nil {
		t.log.Warn("forward failed", slog.String("method", method), slog.String("error", err.Error()))
	}
}

// pasteKey collects one key of a bracketed paste.
func (t *Terminal) pasteKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		t.paste.WriteRune(ev.Rune())
	case tcell.KeyEnter:
		t.paste.WriteByte('\n')
	case tcell.KeyTab:
		t.paste.WriteByte('\t')
	}
}

func (t *Terminal) setTitle(c *ui.Controller) {
	title := c.Title()
	if tabs := c.Tabpages(); len(tabs) > 1 {
		selected := c.SelectedTab()
		for i, tab := range tabs {
			if tab.Handle == selected {
				title = strings.TrimSpace(fmt.Sprintf("%s [%s %d/%d]", title, tab.Name, i+1, len(tabs)))
				break
			}
		}
	}
	t.mu.Lock()
	t.screen.SetTitle(title)
	t.mu.Unlock()
}

// Draw paints g and its cursor and shows the result. The right halves of
// double width characters are left to the terminal.
func (t *Terminal) Draw(g *ui.Grid) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Fill(' ', tcell.StyleDefault)
	for row := 0; row < g.Height(); row++ {
		cells := g.Row(row)
		for col := range cells {
			cell := &cells[col]
			text := cell.TextBytes()
			if len(text) == 0 {
				continue
			}
			primary, combining := splitCluster(text)
			t.screen.SetContent(col, row, primary, combining, t.style(cell.Attrs()))
		}
	}

	cur := g.Cursor()
	if cur.Hidden || cur.Row >= g.Height() || cur.Col >= g.Width() {
		t.screen.HideCursor()
	} else {
		t.screen.SetCursorStyle(cursorStyle(cur.Attrs))
		t.screen.ShowCursor(cur.Col, cur.Row)
	}
	t.screen.Show()
}

// splitCluster returns the first grapheme cluster of text as a primary rune
// and its combining runes.
func splitCluster(text []byte) (rune, []rune) {
	if len(text) == 1 && text[0] < utf8.RuneSelf {
		return rune(text[0]), nil
	}
	cluster, _, _, _ := uniseg.FirstGraphemeCluster(text, -1)
	primary, n := utf8.DecodeRune(cluster)
	var combining []rune
	for rest := cluster[n:]; len(rest) > 0; rest = rest[n:] {
		var r rune
		r, n = utf8.DecodeRune(rest)
		combining = append(combining, r)
	}
	return primary, combining
}

func (t *Terminal) color(c ui.Color) tcell.Color {
	if t.trueColor {
		return tcell.NewRGBColor(int32(c.R()), int32(c.G()), int32(c.B()))
	}
	return t.palette.nearest(c.RGB)
}

// style converts cell attributes. Reverse has already been applied to the
// colors.
func (t *Terminal) style(a ui.Attrs) tcell.Style {
	st := tcell.StyleDefault.
		Foreground(t.color(a.Foreground)).
		Background(t.color(a.Background)).
		Bold(a.Flags.Has(ui.Bold)).
		Italic(a.Flags.Has(ui.Italic)).
		StrikeThrough(a.Flags.Has(ui.Strikethrough))

	switch {
	case a.Flags.Has(ui.Undercurl):
		st = st.Underline(tcell.UnderlineStyleCurly, t.color(a.Special))
	case a.Flags.Has(ui.Underdouble):
		st = st.Underline(tcell.UnderlineStyleDouble, t.color(a.Special))
	case a.Flags.Has(ui.Underdotted):
		st = st.Underline(tcell.UnderlineStyleDotted, t.color(a.Special))
	case a.Flags.Has(ui.Underdashed):
		st = st.Underline(tcell.UnderlineStyleDashed, t.color(a.Special))
	case a.Flags.Has(ui.Underline):
		st = st.Underline(true)
	}
	return st
}

func cursorStyle(a ui.CursorAttrs) tcell.CursorStyle {
	switch a.Shape {
	case ui.CursorVertical:
		if a.Blinks {
			return tcell.CursorStyleBlinkingBar
		}
		return tcell.CursorStyleSteadyBar
	case ui.CursorHorizontal:
		if a.Blinks {
			return tcell.CursorStyleBlinkingUnderline
		}
		return tcell.CursorStyleSteadyUnderline
	default:
		if a.Blinks {
			return tcell.CursorStyleBlinkingBlock
		}
		return tcell.CursorStyleSteadyBlock
	}
}
