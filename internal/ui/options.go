package ui

import (
	"strconv"
	"strings"
)

// Options are the ext_* UI options reported by option_set.
type Options struct {
	ExtCmdline    bool
	ExtHlstate    bool
	ExtLinegrid   bool
	ExtMessages   bool
	ExtMultigrid  bool
	ExtPopupmenu  bool
	ExtTabline    bool
	ExtTermcolors bool
	ExtWildmenu   bool
}

// field returns the option named by an option_set event.
func (o *Options) field(name string) *bool {
	switch name {
	case "ext_cmdline":
		return &o.ExtCmdline
	case "ext_hlstate":
		return &o.ExtHlstate
	case "ext_linegrid":
		return &o.ExtLinegrid
	case "ext_messages":
		return &o.ExtMessages
	case "ext_multigrid":
		return &o.ExtMultigrid
	case "ext_popupmenu":
		return &o.ExtPopupmenu
	case "ext_tabline":
		return &o.ExtTabline
	case "ext_termcolors":
		return &o.ExtTermcolors
	case "ext_wildmenu":
		return &o.ExtWildmenu
	}
	return nil
}

// Showtabline is the value of the showtabline option.
type Showtabline int

const (
	ShowtablineNever Showtabline = iota
	ShowtablineMultiple
	ShowtablineAlways
)

// Tabpage describes one tab of the tabline.
type Tabpage struct {
	Handle   int64
	Name     string
	Filetype string
}

// Font is one entry of the guifont option.
type Font struct {
	Name string
	Size float64
}

// ParseGuifont splits a guifont value into its comma separated fonts. A
// trailing ":h<size>" sets the size of a font, otherwise defaultSize is used.
// Commas escaped with a backslash are part of the name.
func ParseGuifont(guifont string, defaultSize float64) []Font {
	var fonts []Font
	if guifont == "" {
		return fonts
	}

	var name strings.Builder
	flush := func() {
		s := strings.TrimLeft(name.String(), " ")
		name.Reset()
		if s != "" {
			fonts = append(fonts, makeFont(s, defaultSize))
		}
	}

	for i := 0; i < len(guifont); i++ {
		switch c := guifont[i]; {
		case c == '\\' && i+1 < len(guifont) && guifont[i+1] == ',':
			name.WriteByte(',')
			i++
		case c == ',':
			flush()
		default:
			name.WriteByte(c)
		}
	}
	flush()
	return fonts
}

func makeFont(s string, defaultSize float64) Font {
	i := strings.LastIndex(s, ":h")
	if i > 0 {
		if size, err := strconv.ParseFloat(s[i+2:], 64); err == nil && size > 0 {
			return Font{Name: s[:i], Size: size}
		}
	}
	return Font{Name: s, Size: defaultSize}
}
