package nvim

import (
	"fmt"

	vmsgpack "github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/nvgrid/internal/msgpack"
)

// Extension types Neovim uses for remote object handles.
const (
	BufferExtType  = 0
	WindowExtType  = 1
	TabpageExtType = 2
)

// Handles decode from results with Value.Decode. As arguments they are
// passed through their Ext method, since vmihailenco/msgpack can only encode
// them through a pointer.

// Buffer is a remote buffer handle.
type Buffer int64

// Window is a remote window handle.
type Window int64

// Tabpage is a remote tab page handle.
type Tabpage int64

func init() {
	vmsgpack.RegisterExt(BufferExtType, (*Buffer)(nil))
	vmsgpack.RegisterExt(WindowExtType, (*Window)(nil))
	vmsgpack.RegisterExt(TabpageExtType, (*Tabpage)(nil))
}

func marshalHandle(h int64) ([]byte, error) {
	var b msgpack.Bytes
	msgpack.NewEncoder(&b).PackInt(h)
	return b, nil
}

func unmarshalHandle(kind string, p []byte) (int64, error) {
	h, ok := msgpack.UnpackInt(p)
	if !ok {
		return 0, fmt.Errorf("nvim: invalid %s handle % x", kind, p)
	}
	return h, nil
}

// MarshalMsgpack encodes the handle payload.
func (b Buffer) MarshalMsgpack() ([]byte, error) { return marshalHandle(int64(b)) }

// UnmarshalMsgpack decodes the handle payload.
func (b *Buffer) UnmarshalMsgpack(p []byte) error {
	h, err := unmarshalHandle("buffer", p)
	*b = Buffer(h)
	return err
}

func (w Window) MarshalMsgpack() ([]byte, error) { return marshalHandle(int64(w)) }

func (w *Window) UnmarshalMsgpack(p []byte) error {
	h, err := unmarshalHandle("window", p)
	*w = Window(h)
	return err
}

func (t Tabpage) MarshalMsgpack() ([]byte, error) { return marshalHandle(int64(t)) }

func (t *Tabpage) UnmarshalMsgpack(p []byte) error {
	h, err := unmarshalHandle("tabpage", p)
	*t = Tabpage(h)
	return err
}

func handleExt(typ int8, h int64) msgpack.ExtData {
	p, _ := marshalHandle(h)
	return msgpack.ExtData{Type: typ, Data: p}
}

// Ext returns the handle as an extension value for use as an argument.
func (b Buffer) Ext() msgpack.ExtData { return handleExt(BufferExtType, int64(b)) }

// Ext returns the handle as an extension value for use as an argument.
func (w Window) Ext() msgpack.ExtData { return handleExt(WindowExtType, int64(w)) }

// Ext returns the handle as an extension value for use as an argument.
func (t Tabpage) Ext() msgpack.ExtData { return handleExt(TabpageExtType, int64(t)) }
