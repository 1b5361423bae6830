package ui

import (
	"log/slog"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// CursorShape is the shape of the cursor in a mode.
type CursorShape uint8

const (
	CursorBlock CursorShape = iota
	CursorVertical
	CursorHorizontal
)

// String returns the name Neovim uses for the shape.
func (s CursorShape) String() string {
	switch s {
	case CursorVertical:
		return "vertical"
	case CursorHorizontal:
		return "horizontal"
	default:
		return "block"
	}
}

// CursorAttrs describe how the cursor is drawn in one mode.
type CursorAttrs struct {
	Shape      CursorShape
	Percentage uint16
	BlinkWait  uint16
	BlinkOn    uint16
	BlinkOff   uint16
	ShortName  string
	Foreground Color
	Background Color
	Special    Color
	Blinks     bool
}

// Cursor is the cursor state of a grid.
type Cursor struct {
	Row    int
	Col    int
	Attrs  CursorAttrs
	Hidden bool
}

// parseCursorAttrs builds the cursor attributes of one mode_info_set entry.
// Unknown keys are ignored, keys of the wrong type are logged.
func (c *Controller) parseCursorAttrs(pairs []msgpack.Pair) CursorAttrs {
	var attrs CursorAttrs

	for _, p := range pairs {
		if !p.Key.IsString() {
			c.log.Error("map key type error", slog.String("event", "mode_info_set"),
				slog.String("type", msgpack.TypeString(p.Key)))
			continue
		}

		key, v := p.Key.Str(), p.Value
		switch key {
		case "cell_percentage", "blinkwait", "blinkon", "blinkoff", "attr_id":
			if !v.IsInt() {
				c.logValueType(key, v)
				continue
			}
		case "cursor_shape", "short_name":
			if !v.IsString() {
				c.logValueType(key, v)
				continue
			}
		}

		switch key {
		case "cell_percentage":
			attrs.Percentage = uint16(v.Uint())
		case "blinkwait":
			attrs.BlinkWait = uint16(v.Uint())
		case "blinkon":
			attrs.BlinkOn = uint16(v.Uint())
		case "blinkoff":
			attrs.BlinkOff = uint16(v.Uint())
		case "cursor_shape":
			attrs.Shape = c.parseCursorShape(v.Str())
		case "short_name":
			attrs.ShortName = v.Str()
		case "attr_id":
			hl := c.hl.get(v.Uint())
			attrs.Special = hl.Special
			if v.Uint() != 0 {
				attrs.Foreground = hl.Foreground
				attrs.Background = hl.Background
			} else {
				attrs.Foreground = hl.Background
				attrs.Background = hl.Foreground
			}
		}
	}

	attrs.Blinks = attrs.BlinkWait != 0 && attrs.BlinkOn != 0 && attrs.BlinkOff != 0
	return attrs
}

func (c *Controller) parseCursorShape(name string) CursorShape {
	switch name {
	case "block":
		return CursorBlock
	case "vertical":
		return CursorVertical
	case "horizontal":
		return CursorHorizontal
	}
	c.log.Error("unknown cursor shape", slog.String("event", "mode_info_set"),
		slog.String("shape", name))
	return CursorBlock
}

func (c *Controller) logValueType(key string, v msgpack.Value) {
	c.log.Error("map value type error", slog.String("event", "mode_info_set"),
		slog.String("key", key), slog.String("type", msgpack.TypeString(v)))
}

// resolveDefaults replaces default-tagged colors with those of def.
func (a *CursorAttrs) resolveDefaults(def Attrs) {
	tmp := Attrs{Foreground: a.Foreground, Background: a.Background, Special: a.Special}
	tmp.resolveDefaults(def)
	a.Foreground, a.Background, a.Special = tmp.Foreground, tmp.Background, tmp.Special
}
