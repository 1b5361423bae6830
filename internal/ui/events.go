package ui

import (
	"log/slog"
	"slices"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// A redrawHandler applies one argument tuple. It returns false when the
// arguments have the wrong shape, before changing any state.
type redrawHandler func(c *Controller, a *args) bool

var redrawHandlers = map[string]redrawHandler{
	"grid_resize":        (*Controller).gridResize,
	"grid_line":          (*Controller).gridLine,
	"grid_clear":         (*Controller).gridClear,
	"grid_cursor_goto":   (*Controller).gridCursorGoto,
	"grid_scroll":        (*Controller).gridScroll,
	"grid_destroy":       (*Controller).gridDestroy,
	"hl_attr_define":     (*Controller).hlAttrDefine,
	"default_colors_set": (*Controller).defaultColorsSet,
	"mode_info_set":      (*Controller).modeInfoSet,
	"mode_change":        (*Controller).modeChange,
	"busy_start":         (*Controller).busyStart,
	"busy_stop":          (*Controller).busyStop,
	"flush":              (*Controller).flushEvent,
	"option_set":         (*Controller).optionSet,
	"set_title":          (*Controller).setTitle,
	"tabline_update":     (*Controller).tablineUpdate,
}

var ignoredEvents = map[string]bool{
	"mouse_on":     true,
	"mouse_off":    true,
	"set_icon":     true,
	"hl_group_set": true,
	"win_viewport": true,
	"update_menu":  true,
	"chdir":        true,
}

// maxHighlightID bounds hl_attr_define so a bogus id cannot exhaust memory.
const maxHighlightID = 1 << 20

// maxGridSize bounds each dimension of grid_resize.
const maxGridSize = 1 << 14

// Ext type of tab page handles.
const tabpageExtType = 2

func (c *Controller) gridResize(a *args) bool {
	grid, width, height := a.int(), a.int(), a.int()
	if !a.ok() {
		return false
	}
	if !c.checkGrid("grid_resize", grid) {
		return true
	}
	if width < 0 || height < 0 || width > maxGridSize || height > maxGridSize {
		c.logBounds("grid_resize", slog.Int64("width", width), slog.Int64("height", height))
		return true
	}
	c.writing.resize(int(width), int(height), c.blankCell())
	return true
}

func (c *Controller) gridClear(a *args) bool {
	grid := a.int()
	if !a.ok() {
		return false
	}
	if c.checkGrid("grid_clear", grid) {
		c.writing.fill(c.blankCell())
	}
	return true
}

func (c *Controller) gridDestroy(a *args) bool {
	grid := a.int()
	if !a.ok() {
		return false
	}
	c.checkGrid("grid_destroy", grid)
	return true
}

func (c *Controller) gridCursorGoto(a *args) bool {
	grid, row, col := a.int(), a.int(), a.int()
	if !a.ok() {
		return false
	}
	if !c.checkGrid("grid_cursor_goto", grid) {
		return true
	}
	g := c.writing
	if !g.inBounds(int(row), int(col)) {
		c.logBounds("grid_cursor_goto", slog.Int64("row", row), slog.Int64("col", col))
		return true
	}
	g.cursor.Row = int(row)
	g.cursor.Col = int(col)
	return true
}

func (c *Controller) gridScroll(a *args) bool {
	grid, top, bottom, left, right, rows := a.int(), a.int(), a.int(), a.int(), a.int(), a.int()
	a.int() // cols, always zero
	if !a.ok() {
		return false
	}
	if !c.checkGrid("grid_scroll", grid) {
		return true
	}
	g := c.writing
	if top < 0 || left < 0 || top >= bottom || left >= right ||
		bottom > int64(g.height) || right > int64(g.width) {
		c.logBounds("grid_scroll",
			slog.Int64("top", top), slog.Int64("bottom", bottom),
			slog.Int64("left", left), slog.Int64("right", right))
		return true
	}
	if rows <= top-bottom || rows >= bottom-top {
		c.logBounds("grid_scroll", slog.Int64("rows", rows),
			slog.Int64("top", top), slog.Int64("bottom", bottom))
		return true
	}
	g.scroll(int(top), int(bottom), int(left), int(right), int(rows))
	return true
}

func (c *Controller) gridLine(a *args) bool {
	grid, row, col, cells := a.int(), a.int(), a.int(), a.array()
	if !a.ok() {
		return false
	}
	if !c.checkGrid("grid_line", grid) {
		return true
	}
	g := c.writing
	if !g.inBounds(int(row), int(col)) {
		c.logBounds("grid_line", slog.Int64("row", row), slog.Int64("col", col))
		return true
	}

	line := g.Row(int(row))
	x := int(col)
	var hl uint64

	for _, cv := range cells {
		parts := cv.Array()
		if len(parts) == 0 || len(parts) > 3 || !parts[0].IsString() ||
			(len(parts) > 1 && !parts[1].IsInt()) || (len(parts) > 2 && !parts[2].IsInt()) {
			c.log.Error("cell type error", slog.String("event", "grid_line"),
				slog.String("cell", msgpack.Format(cv)))
			return true
		}

		repeat := uint64(1)
		if len(parts) > 1 {
			hl = parts[1].Uint()
		}
		if len(parts) > 2 {
			repeat = parts[2].Uint()
		}

		text := parts[0].Bytes()
		remaining := len(line) - x

		if len(text) == 0 {
			// Right half of the double width character to the left.
			if x == 0 {
				c.log.Error("double width cell at start of row", slog.String("event", "grid_line"),
					slog.Int64("row", row))
				return true
			}
			if remaining == 0 {
				c.logBounds("grid_line", slog.Int64("row", row), slog.Int("col", x))
				return true
			}
			left := &line[x-1]
			left.attrs.Flags = left.attrs.Flags.With(DoubleWidth)
			line[x] = Cell{hl: left.hl, attrs: left.attrs}
			x++
			continue
		}

		if repeat == 0 {
			continue
		}
		if repeat > uint64(remaining) {
			c.logBounds("grid_line", slog.Int64("row", row), slog.Int("col", x),
				slog.Uint64("repeat", repeat))
			return true
		}

		cell := Cell{hl: uint32(hl), attrs: c.hl.get(hl)}
		cell.setBytes(text)
		for range repeat {
			line[x] = cell
			x++
		}
	}
	return true
}

func (c *Controller) hlAttrDefine(a *args) bool {
	id, rgb := a.int(), a.pairs()
	if !a.ok() {
		return false
	}
	if id < 0 || id > maxHighlightID {
		c.logBounds("hl_attr_define", slog.Int64("id", id))
		return true
	}

	attrs := c.hl.define(int(id))
	for _, p := range rgb {
		if !p.Key.IsString() {
			c.log.Error("map key type error", slog.String("event", "hl_attr_define"),
				slog.String("type", msgpack.TypeString(p.Key)))
			continue
		}
		key, v := p.Key.Str(), p.Value

		var flag Flags
		switch key {
		case "foreground", "background", "special":
			if !v.IsInt() {
				c.logAttrType(key, v)
				continue
			}
			color := RGB(uint32(v.Uint()))
			switch key {
			case "foreground":
				attrs.Foreground = color
			case "background":
				attrs.Background = color
			default:
				attrs.Special = color
			}
			continue
		case "bold":
			flag = Bold
		case "italic":
			flag = Italic
		case "underline":
			flag = Underline
		case "undercurl":
			flag = Undercurl
		case "underdouble":
			flag = Underdouble
		case "underdotted":
			flag = Underdotted
		case "underdashed":
			flag = Underdashed
		case "strikethrough":
			flag = Strikethrough
		case "reverse":
			flag = Reverse
		default:
			c.log.Info("ignored highlight attribute", slog.String("key", key))
			continue
		}

		if !v.IsBool() {
			c.logAttrType(key, v)
			continue
		}
		if v.Bool() {
			attrs.Flags = attrs.Flags.With(flag)
		}
	}

	if attrs.Flags.Has(Reverse) {
		attrs.Foreground, attrs.Background = attrs.Background, attrs.Foreground
	}
	return true
}

func (c *Controller) logAttrType(key string, v msgpack.Value) {
	c.log.Error("map value type error", slog.String("event", "hl_attr_define"),
		slog.String("key", key), slog.String("type", msgpack.TypeString(v)))
}

func (c *Controller) defaultColorsSet(a *args) bool {
	fg, bg, sp := a.int(), a.int(), a.int()
	if !a.ok() {
		return false
	}

	pick := func(v int64, fallback uint32) Color {
		if v < 0 {
			return DefaultColor(fallback)
		}
		return DefaultColor(uint32(v))
	}
	def := Attrs{
		Foreground: pick(fg, FallbackForeground),
		Background: pick(bg, FallbackBackground),
		Special:    pick(sp, FallbackSpecial),
	}

	c.hl[0] = def
	for i := 1; i < len(c.hl); i++ {
		c.hl[i].resolveDefaults(def)
	}
	for i := range c.writing.cells {
		c.writing.cells[i].attrs.resolveDefaults(def)
	}
	for i := range c.modes {
		c.modes[i].resolveDefaults(def)
	}
	c.writing.cursor.Attrs.resolveDefaults(def)
	return true
}

func (c *Controller) modeInfoSet(a *args) bool {
	a.bool() // cursor_style_enabled
	infos := a.array()
	if !a.ok() {
		return false
	}

	c.modes = c.modes[:0]
	for _, info := range infos {
		if !info.IsMap() {
			c.log.Error("mode info type error", slog.String("event", "mode_info_set"),
				slog.String("type", msgpack.TypeString(info)))
			c.modes = append(c.modes, CursorAttrs{})
			continue
		}
		c.modes = append(c.modes, c.parseCursorAttrs(info.Map()))
	}

	if c.mode < len(c.modes) {
		c.writing.cursor.Attrs = c.modes[c.mode]
	}
	return true
}

func (c *Controller) modeChange(a *args) bool {
	a.str() // mode name
	idx := a.int()
	if !a.ok() {
		return false
	}
	if idx < 0 || idx >= int64(len(c.modes)) {
		c.logBounds("mode_change", slog.Int64("index", idx), slog.Int("modes", len(c.modes)))
		return true
	}
	c.mode = int(idx)
	c.writing.cursor.Attrs = c.modes[idx]
	return true
}

func (c *Controller) busyStart(*args) bool {
	c.writing.cursor.Hidden = true
	return true
}

func (c *Controller) busyStop(*args) bool {
	c.writing.cursor.Hidden = false
	return true
}

func (c *Controller) flushEvent(*args) bool {
	c.flush()
	return true
}

func (c *Controller) optionSet(a *args) bool {
	name, value := a.str(), a.any()
	if !a.ok() {
		return false
	}

	var notify func()
	c.optMu.Lock()
	switch name {
	case "guifont":
		if !value.IsString() {
			c.optMu.Unlock()
			return false
		}
		if s := value.Str(); s != c.guifont {
			c.guifont = s
			notify = c.window.FontSet
		}
	case "showtabline":
		if !value.IsInt() {
			c.optMu.Unlock()
			return false
		}
		n := value.Int()
		if n < int64(ShowtablineNever) || n > int64(ShowtablineAlways) {
			c.optMu.Unlock()
			c.logBounds("option_set", slog.String("option", name), slog.Int64("value", n))
			return true
		}
		if s := Showtabline(n); s != c.showtabline {
			c.showtabline = s
			notify = c.window.ShowtablineSet
		}
	default:
		field := c.opts.field(name)
		if field == nil {
			break
		}
		if !value.IsBool() {
			c.optMu.Unlock()
			return false
		}
		if *field != value.Bool() {
			*field = value.Bool()
			notify = c.window.OptionsSet
		}
	}
	c.optMu.Unlock()

	if notify != nil && !c.waiting() {
		notify()
	}
	return true
}

func (c *Controller) setTitle(a *args) bool {
	title := a.str()
	if !a.ok() {
		return false
	}

	c.optMu.Lock()
	changed := title != c.title
	c.title = title
	c.optMu.Unlock()

	if changed && !c.waiting() {
		c.window.TitleSet()
	}
	return true
}

func (c *Controller) tablineUpdate(a *args) bool {
	cur, tabs := a.any(), a.array()
	if !a.ok() {
		return false
	}
	selected, ok := tabpageHandle(cur)
	if !ok {
		return false
	}
	if len(tabs) == 0 {
		c.log.Error("empty tab list", slog.String("event", "tabline_update"))
		return true
	}

	pages := make([]Tabpage, 0, len(tabs))
	for _, tab := range tabs {
		pairs := tab.Map()
		handle, hok := msgpack.MapGet(pairs, "tab")
		name, nok := msgpack.MapGet(pairs, "name")
		h, ok := tabpageHandle(handle)
		if !tab.IsMap() || !hok || !nok || !ok || !name.IsString() {
			c.log.Error("tab type error", slog.String("event", "tabline_update"),
				slog.String("tab", msgpack.Format(tab)))
			return true
		}
		page := Tabpage{Handle: h, Name: name.Str()}
		if ft, ok := msgpack.MapGet(pairs, "filetype"); ok && ft.IsString() {
			page.Filetype = ft.Str()
		}
		pages = append(pages, page)
	}

	c.optMu.Lock()
	changed := selected != c.selected || !slices.Equal(pages, c.tabpages)
	c.selected = selected
	c.tabpages = pages
	c.optMu.Unlock()

	if changed {
		c.window.TablineUpdate()
	}
	return true
}

// tabpageHandle decodes a tab page handle extension value.
func tabpageHandle(v msgpack.Value) (int64, bool) {
	ext := v.Ext()
	if !v.IsExt() || ext.Type != tabpageExtType {
		return 0, false
	}
	return msgpack.UnpackInt(ext.Data)
}
