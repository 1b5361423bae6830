package nvim

// Mode is the editor mode reported by nvim_get_mode. See :help mode().
type Mode uint8

const (
	// ModeCancelled is returned when the connection ended before a reply.
	ModeCancelled Mode = iota
	// ModeTimedOut is returned when Neovim did not answer in time, which
	// usually means it is blocked waiting for input.
	ModeTimedOut
	ModeUnknown
	ModeExVim
	ModeEx
	ModePromptEnter
	ModePromptMore
	ModePromptConfirm
	ModeTerminal
	ModeCommandLine
	ModeNormal
	ModeNormalCtrliInsert
	ModeNormalCtrliReplace
	ModeNormalCtrliVirtualReplace
	ModeOperatorPending
	ModeOperatorPendingForcedChar
	ModeOperatorPendingForcedLine
	ModeOperatorPendingForcedBlock
	ModeVisualChar
	ModeVisualLine
	ModeVisualBlock
	ModeSelectChar
	ModeSelectLine
	ModeSelectBlock
	ModeInsert
	ModeInsertCompletion
	ModeInsertCompletionCtrlx
	ModeReplace
	ModeReplaceCompletion
	ModeReplaceCompletionCtrlx
	ModeReplaceVirtual
	ModeShell
)

var modeNames = map[string]Mode{
	"n":      ModeNormal,
	"no":     ModeOperatorPending,
	"nov":    ModeOperatorPendingForcedChar,
	"noV":    ModeOperatorPendingForcedLine,
	"no\x16": ModeOperatorPendingForcedBlock,
	"niI":    ModeNormalCtrliInsert,
	"niR":    ModeNormalCtrliReplace,
	"niV":    ModeNormalCtrliVirtualReplace,
	"nt":     ModeNormal,
	"ntT":    ModeNormal,
	"v":      ModeVisualChar,
	"vs":     ModeVisualChar,
	"V":      ModeVisualLine,
	"Vs":     ModeVisualLine,
	"\x16":   ModeVisualBlock,
	"\x16s":  ModeVisualBlock,
	"s":      ModeSelectChar,
	"S":      ModeSelectLine,
	"\x13":   ModeSelectBlock,
	"i":      ModeInsert,
	"ic":     ModeInsertCompletion,
	"ix":     ModeInsertCompletionCtrlx,
	"R":      ModeReplace,
	"Rc":     ModeReplaceCompletion,
	"Rx":     ModeReplaceCompletionCtrlx,
	"Rv":     ModeReplaceVirtual,
	"Rvc":    ModeReplaceVirtual,
	"Rvx":    ModeReplaceVirtual,
	"c":      ModeCommandLine,
	"cr":     ModeCommandLine,
	"cv":     ModeExVim,
	"cvr":    ModeExVim,
	"ce":     ModeEx,
	"r":      ModePromptEnter,
	"rm":     ModePromptMore,
	"r?":     ModePromptConfirm,
	"!":      ModeShell,
	"t":      ModeTerminal,
}

// ParseMode converts the mode string of nvim_get_mode. Unrecognized strings
// map to ModeUnknown.
func ParseMode(s string) Mode {
	if m, ok := modeNames[s]; ok {
		return m
	}
	return ModeUnknown
}

// IsEx reports whether m is an Ex mode.
func (m Mode) IsEx() bool {
	return m == ModeEx || m == ModeExVim
}

// IsVisual reports whether m is a visual mode.
func (m Mode) IsVisual() bool {
	return m == ModeVisualChar || m == ModeVisualLine || m == ModeVisualBlock
}

// IsNormal reports whether m is a normal mode.
func (m Mode) IsNormal() bool {
	switch m {
	case ModeNormal, ModeNormalCtrliInsert, ModeNormalCtrliReplace, ModeNormalCtrliVirtualReplace:
		return true
	}
	return false
}

// IsSelect reports whether m is a select mode.
func (m Mode) IsSelect() bool {
	return m == ModeSelectChar || m == ModeSelectLine || m == ModeSelectBlock
}

// IsInsert reports whether m is an insert mode.
func (m Mode) IsInsert() bool {
	return m == ModeInsert || m == ModeInsertCompletion || m == ModeInsertCompletionCtrlx
}

// IsReplace reports whether m is a replace mode.
func (m Mode) IsReplace() bool {
	switch m {
	case ModeReplace, ModeReplaceCompletion, ModeReplaceCompletionCtrlx, ModeReplaceVirtual:
		return true
	}
	return false
}

// IsCommandLine reports whether the command line is active.
func (m Mode) IsCommandLine() bool {
	return m == ModeCommandLine
}

// IsTerminal reports whether a terminal buffer has focus in terminal mode.
func (m Mode) IsTerminal() bool {
	return m == ModeTerminal
}

// IsOperatorPending reports whether an operator is waiting for a motion.
func (m Mode) IsOperatorPending() bool {
	switch m {
	case ModeOperatorPending, ModeOperatorPendingForcedChar,
		ModeOperatorPendingForcedLine, ModeOperatorPendingForcedBlock:
		return true
	}
	return false
}

// IsPrompt reports whether Neovim is showing a prompt.
func (m Mode) IsPrompt() bool {
	return m == ModePromptEnter || m == ModePromptMore || m == ModePromptConfirm
}

// IsBusy reports whether the mode could not be determined because Neovim
// did not answer.
func (m Mode) IsBusy() bool {
	return m == ModeCancelled || m == ModeTimedOut || m == ModeUnknown
}
