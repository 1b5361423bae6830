package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, []string{
		"HOME=/home/user",
		"NVGRID_CONFIG=/etc/nvgrid.toml",
		"NVGRID_UI_WIDTH=120",
		"NVGRID_UI_EXT_TABLINE=yes",
		"NVGRID_RPC_MODE_TIMEOUT=250ms",
		"NVGRID_RPC_READ_BUFFER_SIZE=4096",
		"NVGRID_LOG_LEVEL=debug",
		"NVGRID_NVIM_LISTEN=127.0.0.1:6666",
		`NVGRID_NVIM_ARGS=["--embed","--clean"]`,
	})
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.UI.Width)
	assert.True(t, cfg.UI.ExtTabline)
	assert.Equal(t, 250*time.Millisecond, cfg.RPC.ModeTimeout.Std())
	assert.Equal(t, 4096, cfg.RPC.ReadBufferSize)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:6666", cfg.Nvim.Listen)
	assert.Equal(t, []string{"--embed", "--clean"}, cfg.Nvim.Args)
}

func TestApplyEnv_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, []string{"PATH=/bin", "NVGRID_=x"}))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv_UnknownKey(t *testing.T) {
	err := ApplyEnv(Default(), []string{"NVGRID_UI_COLOR=red"})

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "environment", pe.Path)
	assert.Equal(t, "ui.color", pe.Key)
}

func TestEnvToPath(t *testing.T) {
	tests := []struct {
		env     string
		section string
		key     string
		ok      bool
	}{
		{"NVGRID_RPC_READ_BUFFER_SIZE", "rpc", "read_buffer_size", true},
		{"NVGRID_LOG_FILE", "log", "file", true},
		{"NVGRID_CONFIG", "", "", false},
		{"NVGRID_UI_", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			section, key, ok := envToPath(tt.env)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.section, section)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestParseEnvValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"OFF", false},
		{"42", int64(42)},
		{"-1", int64(-1)},
		{"1.5", 1.5},
		{"127.0.0.1:6666", "127.0.0.1:6666"},
		{"250ms", "250ms"},
		{`["a","b"]`, []any{"a", "b"}},
		{"[not json", "[not json"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseEnvValue(tt.in))
		})
	}
}
