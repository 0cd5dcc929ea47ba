// Package snapshot supplies the filesystem-backed store.OpenReader and
// store.OpenWriter seams SAVE and LOAD use (spec §4.4, §6). It manages a
// single fixed path rather than a directory of timestamped snapshots,
// since the spec has exactly one save file and no snapshot history or
// listing API.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flashdb/respkv/internal/store"
)

// Manager owns the single snapshot file SAVE writes and LOAD reads.
type Manager struct {
	path string
}

// NewManager creates a Manager writing to path, creating its parent
// directory if necessary.
func NewManager(path string) (*Manager, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
		}
	}
	return &Manager{path: path}, nil
}

// OpenWriter returns a WriteCloser whose contents replace the snapshot
// file atomically on Close. A fresh snapshot is either fully written or
// not visible at all, so a SAVE that fails partway never corrupts the
// previous one.
func (m *Manager) OpenWriter() (store.WriteCloser, error) {
	f, err := os.CreateTemp(filepath.Dir(m.path), ".snapshot-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	return &atomicWriter{f: f, finalPath: m.path}, nil
}

// OpenReader opens the snapshot file for LOAD.
func (m *Manager) OpenReader() (store.ReadCloser, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", m.path, err)
	}
	return f, nil
}

type atomicWriter struct {
	f         *os.File
	finalPath string
	writeErr  error // first Write failure; Close then discards the temp file
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil && w.writeErr == nil {
		w.writeErr = err
	}
	return n, err
}

func (w *atomicWriter) Close() error {
	if err := w.f.Close(); err != nil {
		os.Remove(w.f.Name())
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if w.writeErr != nil {
		os.Remove(w.f.Name())
		return fmt.Errorf("snapshot: write temp file: %w", w.writeErr)
	}
	if err := os.Rename(w.f.Name(), w.finalPath); err != nil {
		os.Remove(w.f.Name())
		return fmt.Errorf("snapshot: rename into place: %w", err)
	}
	return nil
}
