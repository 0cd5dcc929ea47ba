//go:build linux

package ring

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// doubleMappedMem backs a ring buffer with a single anonymous memfd mapped
// twice into a contiguous 2*cap virtual address range, so bytes [cap, 2*cap)
// alias bytes [0, cap). Any window of up to cap bytes starting anywhere in
// [0, cap) is therefore a valid contiguous slice; offsets are reduced
// modulo cap before slicing.
type doubleMappedMem struct {
	region []byte // len == 2*cap, reserved via a PROT_NONE placeholder mapping
	cap    int
}

func newMem(capacity int) (mem, error) {
	pageSize := unix.Getpagesize()
	if capacity%pageSize != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a multiple of the page size %d", capacity, pageSize)
	}

	fd, err := unix.MemfdCreate("flashdb-ringbuf", 0)
	if err != nil {
		return nil, fmt.Errorf("ring: memfd_create: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		return nil, fmt.Errorf("ring: ftruncate: %w", err)
	}

	// Reserve a contiguous 2*capacity address range with a placeholder
	// mapping, then replace each half with a fixed mapping of the same fd.
	placeholder, err := unix.Mmap(-1, 0, 2*capacity, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("ring: reserve address range: %w", err)
	}
	base := uintptr(unsafe.Pointer(&placeholder[0]))

	if err := mmapFixed(base, fd, capacity); err != nil {
		unix.Munmap(placeholder)
		return nil, fmt.Errorf("ring: map first half: %w", err)
	}
	if err := mmapFixed(base+uintptr(capacity), fd, capacity); err != nil {
		unix.Munmap(placeholder)
		return nil, fmt.Errorf("ring: map second half: %w", err)
	}

	return &doubleMappedMem{region: placeholder, cap: capacity}, nil
}

// mmapFixed maps fd's first length bytes at the exact address addr,
// replacing whatever mapping (the PROT_NONE placeholder) is already there.
func mmapFixed(addr uintptr, fd int, length int) error {
	flags := unix.MAP_SHARED | unix.MAP_FIXED
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		uintptr(length),
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(flags),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func (m *doubleMappedMem) Cap() int { return m.cap }

func (m *doubleMappedMem) ReadSlice(off uint64, length int) []byte {
	start := int(off % uint64(m.cap))
	return m.region[start : start+length]
}

func (m *doubleMappedMem) WriteWindow(off uint64, maxLen int) []byte {
	start := int(off % uint64(m.cap))
	return m.region[start : start+maxLen]
}

func (m *doubleMappedMem) Close() error {
	return unix.Munmap(m.region)
}
