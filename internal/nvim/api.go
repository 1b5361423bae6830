package nvim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/nvgrid/internal/msgpack"
	"github.com/dshills/nvgrid/internal/rpc"
)

// UIAttach attaches as a line grid UI of the given size and waits until
// Neovim has flushed the first complete screen.
func (c *Client) UIAttach(ctx context.Context, width, height int) error {
	return c.UIAttachOptions(ctx, width, height, nil)
}

// UIAttachOptions is UIAttach with additional ui options such as
// ext_tabline. The line grid and rgb options are always set.
func (c *Client) UIAttachOptions(ctx context.Context, width, height int, extra map[string]bool) error {
	flushed := c.ui.ExpectFlush()
	opts := map[string]any{"ext_linegrid": true, "rgb": true}
	for name, on := range extra {
		if name != "ext_linegrid" && name != "rgb" {
			opts[name] = on
		}
	}
	if err := c.conn.CallSync(ctx, 0, "nvim_ui_attach", nil, width, height, opts); err != nil {
		c.ui.CancelFlush(flushed)
		return err
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		c.ui.CancelFlush(flushed)
		return ctx.Err()
	case <-c.conn.Done():
		c.ui.CancelFlush(flushed)
		return c.conn.Err()
	}
}

// TryResize asks Neovim to resize the global grid.
func (c *Client) TryResize(width, height int) error {
	return c.conn.Command("nvim_ui_try_resize", width, height)
}

// Input sends keys in Neovim key notation, e.g. "<C-w>".
func (c *Client) Input(keys string) error {
	return c.conn.Command("nvim_input", keys)
}

// Feedkeys feeds keys as if typed, without remapping.
func (c *Client) Feedkeys(keys string) error {
	return c.conn.Command("nvim_feedkeys", keys, "n", true)
}

// Command runs an Ex command, ignoring the result.
func (c *Client) Command(cmd string) error {
	return c.conn.Command("nvim_command", cmd)
}

// CommandHandler runs an Ex command and delivers the reply to handler.
func (c *Client) CommandHandler(cmd string, handler rpc.ResponseHandler) error {
	return c.conn.Call("nvim_command", handler, cmd)
}

// Eval evaluates a Vimscript expression. The handler receives timedOut if
// no reply arrives within timeout.
func (c *Client) Eval(expr string, timeout time.Duration, handler rpc.ResponseHandler) error {
	return c.conn.CallTimeout(timeout, "nvim_eval", handler, expr)
}

// Paste pastes text in a single call.
func (c *Client) Paste(data string) error {
	return c.conn.Command("nvim_paste", data, false, -1)
}

// ErrWriteln shows msg as an error message.
func (c *Client) ErrWriteln(msg string) error {
	return c.conn.Command("nvim_err_writeln", msg)
}

// InputMouse sends a mouse event on the global grid. Button is one of
// "left", "right", "middle", "wheel", action one of "press", "drag",
// "release", "up", "down", "left", "right", and modifiers uses key notation
// such as "C-S".
func (c *Client) InputMouse(button, action, modifiers string, row, col int) error {
	return c.conn.Command("nvim_input_mouse", button, action, modifiers, 0, row, col)
}

// Quit quits Neovim. With confirm Neovim refuses while buffers are
// modified; otherwise changes are discarded.
func (c *Client) Quit(confirm bool) error {
	if confirm {
		return c.Command("qa")
	}
	return c.Command("qa!")
}

// SetCurrentTabpage switches to tab.
func (c *Client) SetCurrentTabpage(tab Tabpage) error {
	return c.conn.Command("nvim_set_current_tabpage", tab.Ext())
}

// CurrentBuffer returns the current buffer.
func (c *Client) CurrentBuffer(ctx context.Context) (Buffer, error) {
	var b Buffer
	err := c.Exec(ctx, "nvim_get_current_buf", &b)
	return b, err
}

type modeReply struct {
	Mode     string `msgpack:"mode"`
	Blocking bool   `msgpack:"blocking"`
}

// GetMode returns the current mode. It waits for the mode timeout at most
// and returns ModeTimedOut if Neovim does not answer, which happens while
// it waits for input in a prompt. ModeCancelled is returned when ctx is done
// or the connection is gone.
func (c *Client) GetMode(ctx context.Context) Mode {
	var reply modeReply
	err := c.conn.CallSync(ctx, c.modeTimeout, "nvim_get_mode", &reply)
	switch {
	case err == nil:
		return ParseMode(reply.Mode)
	case errors.Is(err, rpc.ErrTimeout):
		return ModeTimedOut
	case errors.Is(err, rpc.ErrShutdown), errors.Is(err, rpc.ErrClosed), ctx.Err() != nil:
		return ModeCancelled
	}
	c.log.Warn("nvim_get_mode failed", slog.String("error", err.Error()))
	return ModeUnknown
}

// Version is the Neovim version reported by nvim_get_api_info.
type Version struct {
	Major       int  `msgpack:"major"`
	Minor       int  `msgpack:"minor"`
	Patch       int  `msgpack:"patch"`
	APILevel    int  `msgpack:"api_level"`
	Prerelease  bool `msgpack:"prerelease"`
	APIPrelease bool `msgpack:"api_prerelease"`
}

// String formats the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Function describes one API function.
type Function struct {
	Name       string `msgpack:"name"`
	Since      int    `msgpack:"since"`
	Deprecated int    `msgpack:"deprecated_since"`
}

// APIInfo is the result of nvim_get_api_info.
type APIInfo struct {
	ChannelID int64
	Version   Version
	Functions []Function
	UIEvents  []string
}

type apiMetadata struct {
	Version   Version    `msgpack:"version"`
	Functions []Function `msgpack:"functions"`
	UIEvents  []struct {
		Name string `msgpack:"name"`
	} `msgpack:"ui_events"`
}

// GetAPIInfo returns the channel id and API metadata.
func (c *Client) GetAPIInfo(ctx context.Context) (*APIInfo, error) {
	var raw msgpack.Value
	if err := c.Exec(ctx, "nvim_get_api_info", &raw); err != nil {
		return nil, err
	}
	items := raw.Array()
	if len(items) != 2 || !items[0].IsInt() {
		return nil, fmt.Errorf("nvim_get_api_info: unexpected result %s", msgpack.TypeString(raw))
	}

	var meta apiMetadata
	if err := items[1].Decode(&meta); err != nil {
		return nil, fmt.Errorf("nvim_get_api_info: %w", err)
	}
	info := &APIInfo{
		ChannelID: items[0].Int(),
		Version:   meta.Version,
		Functions: meta.Functions,
	}
	for _, ev := range meta.UIEvents {
		info.UIEvents = append(info.UIEvents, ev.Name)
	}
	return info, nil
}

// BufferInfo is one entry of getbufinfo().
type BufferInfo struct {
	Number  int    `msgpack:"bufnr"`
	Name    string `msgpack:"name"`
	Changed int    `msgpack:"changed"`
	Hidden  int    `msgpack:"hidden"`
	Listed  int    `msgpack:"listed"`
	Line    int    `msgpack:"lnum"`
}

// Modified reports whether the buffer has unsaved changes.
func (b BufferInfo) Modified() bool { return b.Changed != 0 }

// GetBufferInfo returns information about all buffers.
func (c *Client) GetBufferInfo(ctx context.Context) ([]BufferInfo, error) {
	var infos []BufferInfo
	err := c.Exec(ctx, "nvim_call_function", &infos, "getbufinfo", []any{})
	return infos, err
}

// Exec calls method synchronously and decodes the result into result,
// which may be nil. The request timeout applies.
func (c *Client) Exec(ctx context.Context, method string, result any, args ...any) error {
	return c.conn.CallSync(ctx, c.requestTimeout, method, result, args...)
}
