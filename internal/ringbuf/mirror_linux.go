//go:build linux

package ringbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapRegion is a memory file mapped twice, back to back, so that the second
// half of the address range aliases the first.
type mmapRegion struct {
	base unsafe.Pointer
	size int
	buf  []byte
}

func allocMirrored(size int) (region, error) {
	fd, err := unix.MemfdCreate("ringbuf", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, fmt.Errorf("ftruncate: %w", err)
	}

	// Reserve the whole range first so both halves land next to each other.
	base, err := unix.MmapPtr(-1, 0, nil, uintptr(2*size),
		unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mmap reserve: %w", err)
	}

	for _, off := range []int{0, size} {
		addr := unsafe.Add(base, off)
		_, err := unix.MmapPtr(fd, 0, addr, uintptr(size),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED)
		if err != nil {
			_ = unix.MunmapPtr(base, uintptr(2*size))
			return nil, fmt.Errorf("mmap mirror at +%d: %w", off, err)
		}
	}

	return &mmapRegion{
		base: base,
		size: size,
		buf:  unsafe.Slice((*byte)(base), 2*size),
	}, nil
}

func (r *mmapRegion) bytes() []byte  { return r.buf }
func (r *mmapRegion) mirrored() bool { return true }

func (r *mmapRegion) free() {
	if r.base == nil {
		return
	}
	if err := unix.MunmapPtr(r.base, uintptr(2*r.size)); err != nil {
		panic(fmt.Sprintf("ringbuf: munmap: %v", err))
	}
	r.base = nil
	r.buf = nil
}
