package present

import (
	"sync"
	"time"
)

// resizeDelay is how long the terminal size must stay put before Neovim is
// asked to resize. Dragging a window edge produces a burst of events.
const resizeDelay = 50 * time.Millisecond

// debouncer runs the function of the latest call once no call has been made
// for delay. The function runs on a timer goroutine.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64 // detects stale timers
}

func (d *debouncer) call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.seq == seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// stop cancels a pending call.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
