// Package ring implements the fixed-capacity circular byte buffer used to
// stage bytes between a socket and the RESP parser. Its defining trick is
// mapping the backing memory twice, consecutively, so any window of up to
// Cap() bytes starting at an arbitrary monotonic index is addressable as one
// contiguous slice; the parser never has to special-case wrap-around.
package ring

import "fmt"

// Buffer is a fixed-capacity ring of bytes addressed by two monotonically
// increasing 64-bit indices: read and write. Bytes in [read, write) are
// unread payload; bytes in [write, read+cap) are free space.
//
// Buffer itself only tracks the indices and exposes the backing storage;
// concrete platforms supply the storage layout (doubly-mapped memory where
// available, a plain slice otherwise) through the mem interface.
type Buffer struct {
	mem   mem
	cap   uint64
	write uint64
	read  uint64
}

// mem is the platform seam. ReadSlice returns length bytes starting at
// logical offset off for read-only use by the parser; on platforms without
// doubly-mapped memory it may hand back a scratch copy when the window
// wraps. WriteWindow returns a slice of the real backing storage, safe to
// write into directly, of up to maxLen bytes. On platforms without
// doubly-mapped memory it is clamped to the contiguous run before wrap, so
// the caller may need more than one call to fill Free() bytes.
type mem interface {
	ReadSlice(off uint64, length int) []byte
	WriteWindow(off uint64, maxLen int) []byte
	Cap() int
	Close() error
}

// New creates a ring buffer of the given capacity, which must be a power of
// two and a multiple of the platform page size (spec §4.1). It uses the
// doubly-mapped implementation where the platform supports it and falls
// back to a plain buffer with internal copy-on-wrap otherwise.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("ring: capacity %d is not a power of two", capacity)
	}
	m, err := newMem(capacity)
	if err != nil {
		return nil, err
	}
	return &Buffer{mem: m, cap: uint64(capacity)}, nil
}

// Cap returns the buffer's fixed capacity in bytes.
func (b *Buffer) Cap() int { return int(b.cap) }

// Len returns the number of unread bytes currently buffered.
func (b *Buffer) Len() int { return int(b.write - b.read) }

// Free returns the number of bytes that may be written before the buffer is
// full (capacity minus the unread backlog).
func (b *Buffer) Free() int { return int(b.cap) - b.Len() }

// WriteSlice returns a contiguous slice into which new bytes may be copied
// (typically via a socket read). With doubly-mapped memory its length is
// Free(); with the plain fallback it is clamped to the run before the wrap
// point and may be shorter. The caller must call Advance with however many
// bytes it actually wrote.
func (b *Buffer) WriteSlice() []byte {
	return b.mem.WriteWindow(b.write, b.Free())
}

// Advance records that n bytes were written into the slice returned by the
// most recent WriteSlice call.
func (b *Buffer) Advance(n int) { b.write += uint64(n) }

// Bytes returns a contiguous view of the unread region [read, write), for
// feeding directly into the parser.
func (b *Buffer) Bytes() []byte {
	return b.mem.ReadSlice(b.read, b.Len())
}

// Consume advances the read index by n bytes, as reported consumed by the
// parser. n must not exceed Len().
func (b *Buffer) Consume(n int) { b.read += uint64(n) }

// Reset drops all buffered bytes without freeing the backing storage.
func (b *Buffer) Reset() {
	b.read = 0
	b.write = 0
}

// Close releases the backing storage (unmaps memory where applicable).
func (b *Buffer) Close() error { return b.mem.Close() }
