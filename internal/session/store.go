// internal/session/store.go
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoRecord means nothing has been persisted yet.
var ErrNoRecord = errors.New("session: no record stored")

// Store is the retained memory holding one record block.
// Load and Save move a whole block; partial reads or writes never surface.
type Store interface {
	Load() ([]byte, error)
	Save(block []byte) error
}

// Read loads and validates the record. Any failure means "absent".
func Read(s Store) (Record, error) {
	b, err := s.Load()
	if err != nil {
		return Record{}, err
	}
	return Decode(b)
}

// Write seals nothing: the caller decides when the checksum changed.
func Write(s Store, r Record) error {
	b, err := r.Encode()
	if err != nil {
		return err
	}
	return s.Save(b)
}

// ---- file-backed store ----

// FileStore keeps the block in a file that survives process restarts.
// Save writes a temp file and renames it, so a crash leaves the old block intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session: file path required")
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load() ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	return b, nil
}

func (f *FileStore) Save(block []byte) error {
	if len(block)%BlockSize != 0 {
		return fmt.Errorf("session: block of %d bytes is not a %d-byte multiple", len(block), BlockSize)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(block); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("session: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	return nil
}

// ---- in-memory store ----

// MemStore is a Store for tests and for nodes without retained storage.
type MemStore struct {
	mu     sync.Mutex
	block  []byte
	writes int
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block == nil {
		return nil, ErrNoRecord
	}
	out := make([]byte, len(m.block))
	copy(out, m.block)
	return out, nil
}

func (m *MemStore) Save(block []byte) error {
	if len(block)%BlockSize != 0 {
		return fmt.Errorf("session: block of %d bytes is not a %d-byte multiple", len(block), BlockSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = append([]byte(nil), block...)
	m.writes++
	return nil
}

// Writes counts successful Save calls.
func (m *MemStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
