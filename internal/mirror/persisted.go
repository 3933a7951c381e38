package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Persisted is a Value that survives restarts as a JSON text file. A missing
// or unreadable file yields the default value instead of an error.
type Persisted[T any] struct {
	mu   sync.RWMutex
	path string
	v    T
	def  T
}

// OpenPersisted loads path, falling back to def.
func OpenPersisted[T any](path string, def T) *Persisted[T] {
	p := &Persisted[T]{path: path, v: def, def: def}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return p
	case err != nil:
		slog.Warn("Could not read persisted state, using default.", "path", path, "error", err)
		return p
	}

	var loaded T
	if err := json.Unmarshal(data, &loaded); err != nil {
		slog.Warn("Persisted state is corrupt, using default.", "path", path, "error", err)
		return p
	}
	p.v = loaded
	return p
}

func (p *Persisted[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}

// Set updates the in-memory value and writes it through to disk. The
// in-memory value is updated even when the write fails.
func (p *Persisted[T]) Set(v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.v = v
	return p.writeLocked()
}

// Reset restores the default and removes the file.
func (p *Persisted[T]) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.v = p.def
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove persisted state %s: %w", p.path, err)
	}
	return nil
}

func (p *Persisted[T]) writeLocked() error {
	data, err := json.Marshal(p.v)
	if err != nil {
		return fmt.Errorf("failed to encode persisted state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", p.path, err)
	}
	return nil
}
