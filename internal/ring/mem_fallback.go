//go:build !linux

package ring

// plainMem is the portable fallback described in spec §4.1: a single flat
// buffer with explicit wrap handling done here, behind the same Slice
// contract, instead of doubly-mapped memory. A window that straddles the
// wrap point is copied into a scratch buffer so callers still see one
// contiguous slice; on Linux this copy never happens.
type plainMem struct {
	buf     []byte
	scratch []byte
	cap     int
}

func newMem(capacity int) (mem, error) {
	return &plainMem{buf: make([]byte, capacity), cap: capacity}, nil
}

func (m *plainMem) Cap() int { return m.cap }

// ReadSlice may return a scratch copy when the requested window wraps past
// the end of the backing array; safe because the parser only ever reads it
// before the buffer is mutated again.
func (m *plainMem) ReadSlice(off uint64, length int) []byte {
	if length == 0 {
		return nil
	}
	start := int(off % uint64(m.cap))
	end := start + length
	if end <= m.cap {
		return m.buf[start:end]
	}
	if cap(m.scratch) < length {
		m.scratch = make([]byte, length)
	}
	m.scratch = m.scratch[:length]
	n := copy(m.scratch, m.buf[start:m.cap])
	copy(m.scratch[n:], m.buf[:end-m.cap])
	return m.scratch
}

// WriteWindow always returns real backing storage, clamped to the
// contiguous run before wrap; the caller loops if it needs more.
func (m *plainMem) WriteWindow(off uint64, maxLen int) []byte {
	if maxLen == 0 {
		return nil
	}
	start := int(off % uint64(m.cap))
	if start+maxLen > m.cap {
		maxLen = m.cap - start
	}
	return m.buf[start : start+maxLen]
}

func (m *plainMem) Close() error { return nil }
