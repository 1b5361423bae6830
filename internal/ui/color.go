package ui

import "fmt"

// Color is a 24-bit RGB color. Default marks a color that was derived from
// the default colors and must be recomputed when they change.
type Color struct {
	RGB     uint32
	Default bool
}

// RGB returns a concrete color.
func RGB(rgb uint32) Color {
	return Color{RGB: rgb & 0xffffff}
}

// DefaultColor returns a color tagged as coming from the default colors.
func DefaultColor(rgb uint32) Color {
	return Color{RGB: rgb & 0xffffff, Default: true}
}

// R returns the red component.
func (c Color) R() uint8 { return uint8(c.RGB >> 16) }

// G returns the green component.
func (c Color) G() uint8 { return uint8(c.RGB >> 8) }

// B returns the blue component.
func (c Color) B() uint8 { return uint8(c.RGB) }

// String returns the color in #RRGGBB form.
func (c Color) String() string {
	if c.Default {
		return fmt.Sprintf("default(#%06X)", c.RGB)
	}
	return fmt.Sprintf("#%06X", c.RGB)
}

// Fallback default colors used until Neovim sends default_colors_set, and
// whenever it sends -1 for one of them.
const (
	FallbackForeground uint32 = 0x000000
	FallbackBackground uint32 = 0xFFFFFF
	FallbackSpecial    uint32 = 0xFF0000
)

// Flags are the style bits of a highlight.
type Flags uint16

const (
	Bold Flags = 1 << iota
	Italic
	Underline
	Undercurl
	Underdouble
	Underdotted
	Underdashed
	Strikethrough
	Reverse
	DoubleWidth
)

// Has reports whether all bits of f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// With returns fl with f added.
func (fl Flags) With(f Flags) Flags {
	return fl | f
}

// Without returns fl with f removed.
func (fl Flags) Without(f Flags) Flags {
	return fl &^ f
}

// Attrs are the resolved attributes of a highlight group or cell.
type Attrs struct {
	Foreground Color
	Background Color
	Special    Color
	Flags      Flags
}

// defaultAttrs is the initial default highlight entry.
func defaultAttrs() Attrs {
	return Attrs{
		Foreground: DefaultColor(FallbackForeground),
		Background: DefaultColor(FallbackBackground),
		Special:    DefaultColor(FallbackSpecial),
	}
}

// resolveDefaults replaces default-tagged colors of a with those of def.
// Reversed attributes take the default foreground as background and vice
// versa.
func (a *Attrs) resolveDefaults(def Attrs) {
	reversed := a.Flags.Has(Reverse)
	if a.Foreground.Default {
		if reversed {
			a.Foreground = def.Background
		} else {
			a.Foreground = def.Foreground
		}
	}
	if a.Background.Default {
		if reversed {
			a.Background = def.Foreground
		} else {
			a.Background = def.Background
		}
	}
	if a.Special.Default {
		a.Special = def.Special
	}
}
