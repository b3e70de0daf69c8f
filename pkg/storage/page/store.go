package page

import (
	"io"
	"os"
	"sync"
)

// ByteStore is the random-access byte store a file of pages lives in.
type ByteStore interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current length of the store in bytes.
	Size() (int64, error)

	// Sync makes previously written bytes durable.
	Sync() error

	Close() error
}

// osStore adapts an *os.File to ByteStore.
type osStore struct {
	*os.File
}

func (s osStore) Size() (int64, error) {
	info, err := s.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// MemStore is an in-memory ByteStore. WriteAt beyond the end grows the
// store, zero-filling any gap.
type MemStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemStore returns a store holding a copy of initial.
func NewMemStore(initial []byte) *MemStore {
	data := make([]byte, len(initial))
	copy(data, initial)
	return &MemStore{data: data}
}

func (m *MemStore) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemStore) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	return copy(m.data[off:], p), nil
}

func (m *MemStore) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}

func (m *MemStore) Sync() error  { return nil }
func (m *MemStore) Close() error { return nil }

// Bytes returns a copy of the store's contents.
func (m *MemStore) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
