//go:build !linux

package ringbuf

import "errors"

var errNoMirror = errors.New("ringbuf: mirrored mapping not supported on this platform")

func allocMirrored(size int) (region, error) {
	return nil, errNoMirror
}
