package present

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// keyNames maps special keys to their names in Neovim key notation.
var keyNames = map[tcell.Key]string{
	tcell.KeyEnter:          "CR",
	tcell.KeyTab:            "Tab",
	tcell.KeyBackspace:      "BS",
	tcell.KeyBackspace2:     "BS",
	tcell.KeyEscape:         "Esc",
	tcell.KeyDelete:         "Del",
	tcell.KeyInsert:         "Insert",
	tcell.KeyHome:           "Home",
	tcell.KeyEnd:            "End",
	tcell.KeyPgUp:           "PageUp",
	tcell.KeyPgDn:           "PageDown",
	tcell.KeyUp:             "Up",
	tcell.KeyDown:           "Down",
	tcell.KeyLeft:           "Left",
	tcell.KeyRight:          "Right",
	tcell.KeyHelp:           "Help",
	tcell.KeyCtrlSpace:      "C-Space",
	tcell.KeyCtrlBackslash:  "C-Bslash",
	tcell.KeyCtrlRightSq:    "C-]",
	tcell.KeyCtrlCarat:      "C-^",
	tcell.KeyCtrlUnderscore: "C-_",
}

// KeyToInput translates a key event to Neovim key notation for nvim_input.
// It returns "" for keys Neovim has no name for.
func KeyToInput(ev *tcell.EventKey) string {
	mods := ev.Modifiers()

	switch k := ev.Key(); {
	case k == tcell.KeyRune:
		r := ev.Rune()
		// Shift is already part of the rune.
		mods &^= tcell.ModShift
		name, special := string(r), false
		switch r {
		case '<':
			name, special = "lt", true
		case ' ':
			name = "Space"
			if mods == tcell.ModNone {
				name = " "
			}
		}
		if mods == tcell.ModNone && !special {
			return name
		}
		return notation(mods, name)

	case k == tcell.KeyBacktab:
		return notation(mods|tcell.ModShift, "Tab")

	case keyNames[k] != "":
		return notation(mods, keyNames[k])

	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return notation(mods|tcell.ModCtrl, string(rune('a'+k-tcell.KeyCtrlA)))

	case k >= tcell.KeyF1 && k <= tcell.KeyF64:
		return notation(mods, fmt.Sprintf("F%d", k-tcell.KeyF1+1))
	}
	return ""
}

// notation wraps name in angle brackets with the modifier prefix. Names that
// already carry a modifier, like "C-Space", keep it.
func notation(mods tcell.ModMask, name string) string {
	prefix := modifierPrefix(mods)
	if strings.HasPrefix(name, "C-") {
		prefix = strings.ReplaceAll(prefix, "C-", "")
	}
	return "<" + prefix + name + ">"
}

// modifierPrefix returns mods in key notation, e.g. "C-S-".
func modifierPrefix(mods tcell.ModMask) string {
	var sb strings.Builder
	if mods&tcell.ModCtrl != 0 {
		sb.WriteString("C-")
	}
	if mods&tcell.ModShift != 0 {
		sb.WriteString("S-")
	}
	if mods&tcell.ModAlt != 0 {
		sb.WriteString("M-")
	}
	if mods&tcell.ModMeta != 0 {
		sb.WriteString("D-")
	}
	return sb.String()
}

// mouseState tracks the pressed button so that motion becomes drag and the
// button release names the button.
type mouseState struct {
	pressed string
}

var mouseButtons = []struct {
	mask tcell.ButtonMask
	name string
}{
	{tcell.Button1, "left"},
	{tcell.Button2, "right"},
	{tcell.Button3, "middle"},
}

var wheelActions = []struct {
	mask   tcell.ButtonMask
	action string
}{
	{tcell.WheelUp, "up"},
	{tcell.WheelDown, "down"},
	{tcell.WheelLeft, "left"},
	{tcell.WheelRight, "right"},
}

// translate returns the nvim_input_mouse button and action of ev. Motion
// without a pressed button is dropped.
func (m *mouseState) translate(ev *tcell.EventMouse) (button, action string, ok bool) {
	buttons := ev.Buttons()

	for _, w := range wheelActions {
		if buttons&w.mask != 0 {
			return "wheel", w.action, true
		}
	}

	for _, b := range mouseButtons {
		if buttons&b.mask == 0 {
			continue
		}
		if m.pressed == b.name {
			return b.name, "drag", true
		}
		m.pressed = b.name
		return b.name, "press", true
	}

	if m.pressed != "" {
		button = m.pressed
		m.pressed = ""
		return button, "release", true
	}
	return "", "", false
}
