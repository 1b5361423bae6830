package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Limits checked by Validate.
const (
	MaxGridSize       = 1 << 14
	MinReadBufferSize = 512
	MinWriteCapacity  = 4096
)

// Config is the complete nvgrid configuration.
type Config struct {
	Nvim NvimConfig `toml:"nvim"`
	UI   UIConfig   `toml:"ui"`
	RPC  RPCConfig  `toml:"rpc"`
	Log  LogConfig  `toml:"log"`
}

// NvimConfig selects the Neovim instance. When Listen is set nvgrid
// connects to it and the remaining fields are unused.
type NvimConfig struct {
	Path   string   `toml:"path"`
	Args   []string `toml:"args"`
	Env    []string `toml:"env,omitempty"`
	Dir    string   `toml:"dir,omitempty"`
	Listen string   `toml:"listen,omitempty"`
}

// UIConfig holds the attach parameters. A zero width or height uses the
// terminal size.
type UIConfig struct {
	Width         int      `toml:"width"`
	Height        int      `toml:"height"`
	AttachTimeout Duration `toml:"attach_timeout"`
	ExtTabline    bool     `toml:"ext_tabline"`
}

// AttachOptions returns the nvim_ui_attach options beyond the line grid.
func (u UIConfig) AttachOptions() map[string]bool {
	return map[string]bool{"ext_tabline": u.ExtTabline}
}

// RPCConfig tunes the connection.
type RPCConfig struct {
	ReadBufferSize      int      `toml:"read_buffer_size"`
	WriteBufferCapacity int      `toml:"write_buffer_capacity"`
	RequestTimeout      Duration `toml:"request_timeout"`
	ModeTimeout         Duration `toml:"mode_timeout"`
}

// LogConfig configures logging. An empty File discards log output.
type LogConfig struct {
	Level slog.Level `toml:"level"`
	File  string     `toml:"file,omitempty"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration.
func (d Duration) String() string { return time.Duration(d).String() }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Nvim: NvimConfig{
			Path: "nvim",
			Args: []string{"--embed"},
		},
		UI: UIConfig{
			AttachTimeout: Duration(5 * time.Second),
		},
		RPC: RPCConfig{
			ReadBufferSize:      16 * 1024,
			WriteBufferCapacity: 64 * 1024,
			RequestTimeout:      Duration(5 * time.Second),
			ModeTimeout:         Duration(100 * time.Millisecond),
		},
		Log: LogConfig{
			Level: slog.LevelInfo,
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nvgrid", "config.toml"), nil
}

// Load builds the configuration from the defaults, the file at path and the
// environment, then validates it. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := cfg.Decode(path, data); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays the TOML document data onto c. Keys absent from the
// document keep their current values; unknown keys are errors.
func (c *Config) Decode(path string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return newParseError(path, err)
	}
	return nil
}

// Encode writes c as a TOML document.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if c.Nvim.Listen == "" && strings.TrimSpace(c.Nvim.Path) == "" {
		add("nvim.path", "required unless nvim.listen is set", c.Nvim.Path, ErrCodeRequiredMissing)
	}
	for _, kv := range c.Nvim.Env {
		if !strings.Contains(kv, "=") {
			add("nvim.env", "entries must be NAME=value", kv, ErrCodeInvalidValue)
		}
	}
	if c.UI.Width < 0 || c.UI.Width > MaxGridSize {
		add("ui.width", fmt.Sprintf("must be between 0 and %d", MaxGridSize), c.UI.Width, ErrCodeOutOfRange)
	}
	if c.UI.Height < 0 || c.UI.Height > MaxGridSize {
		add("ui.height", fmt.Sprintf("must be between 0 and %d", MaxGridSize), c.UI.Height, ErrCodeOutOfRange)
	}
	if c.UI.AttachTimeout < 0 {
		add("ui.attach_timeout", "must not be negative", c.UI.AttachTimeout, ErrCodeOutOfRange)
	}
	if c.RPC.ReadBufferSize < MinReadBufferSize {
		add("rpc.read_buffer_size", fmt.Sprintf("must be at least %d", MinReadBufferSize), c.RPC.ReadBufferSize, ErrCodeOutOfRange)
	}
	if c.RPC.WriteBufferCapacity < MinWriteCapacity {
		add("rpc.write_buffer_capacity", fmt.Sprintf("must be at least %d", MinWriteCapacity), c.RPC.WriteBufferCapacity, ErrCodeOutOfRange)
	}
	if c.RPC.RequestTimeout < 0 {
		add("rpc.request_timeout", "must not be negative", c.RPC.RequestTimeout, ErrCodeOutOfRange)
	}
	if c.RPC.ModeTimeout <= 0 {
		add("rpc.mode_timeout", "must be positive", c.RPC.ModeTimeout, ErrCodeOutOfRange)
	}
	return errors.Join(errs...)
}
