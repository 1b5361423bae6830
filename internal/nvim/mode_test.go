package nvim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/nvgrid/internal/msgpack"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"n":      ModeNormal,
		"nt":     ModeNormal,
		"no\x16": ModeOperatorPendingForcedBlock,
		"v":      ModeVisualChar,
		"\x16":   ModeVisualBlock,
		"\x13":   ModeSelectBlock,
		"ic":     ModeInsertCompletion,
		"Rv":     ModeReplaceVirtual,
		"cv":     ModeExVim,
		"r?":     ModePromptConfirm,
		"!":      ModeShell,
		"t":      ModeTerminal,
		"zz":     ModeUnknown,
		"":       ModeUnknown,
	}
	for s, want := range tests {
		if got := ParseMode(s); got != want {
			t.Errorf("ParseMode(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestMode_Predicates(t *testing.T) {
	assert.True(t, ModeNormalCtrliInsert.IsNormal())
	assert.False(t, ModeInsert.IsNormal())
	assert.True(t, ModeInsertCompletionCtrlx.IsInsert())
	assert.True(t, ModeVisualLine.IsVisual())
	assert.False(t, ModeSelectLine.IsVisual())
	assert.True(t, ModeSelectLine.IsSelect())
	assert.True(t, ModeReplaceCompletion.IsReplace())
	assert.True(t, ModeCommandLine.IsCommandLine())
	assert.True(t, ModeTerminal.IsTerminal())
	assert.True(t, ModeOperatorPendingForcedLine.IsOperatorPending())
	assert.True(t, ModePromptMore.IsPrompt())
	assert.True(t, ModeEx.IsEx())
	assert.True(t, ModeExVim.IsEx())

	for _, m := range []Mode{ModeCancelled, ModeTimedOut, ModeUnknown} {
		assert.True(t, m.IsBusy())
	}
	assert.False(t, ModeNormal.IsBusy())
}

func TestHandles(t *testing.T) {
	assert.Equal(t, msgpack.ExtData{Type: TabpageExtType, Data: []byte{0xcd, 0x01, 0x2c}}, Tabpage(300).Ext())
	assert.Equal(t, msgpack.ExtData{Type: BufferExtType, Data: []byte{0x05}}, Buffer(5).Ext())

	var w Window
	assert.NoError(t, msgpack.ExtValue(WindowExtType, []byte{0xd0, 0x80}).Decode(&w))
	assert.Equal(t, Window(-128), w)

	var b Buffer
	assert.Error(t, msgpack.ExtValue(BufferExtType, []byte{0xc0}).Decode(&b))
	assert.Error(t, msgpack.ExtValue(WindowExtType, []byte{0x01}).Decode(&b))

	raw, err := msgpack.Marshal(&struct {
		Buf Buffer `msgpack:"buf"`
	}{Buf: 9})
	assert.NoError(t, err)
	var out struct {
		Buf Buffer `msgpack:"buf"`
	}
	assert.NoError(t, msgpack.Unmarshal(raw, &out))
	assert.Equal(t, Buffer(9), out.Buf)
}
