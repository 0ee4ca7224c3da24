package store

import "sync"

// ensure interface is implemented
var _ Index = (*MemoryIndex)(nil)

// MemoryIndex is an in-memory Index for tests and deployments that do not
// need dedup history to survive a restart.
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string]string
	closed  bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]string)}
}

// Lookup returns the destination key recorded for the fingerprint.
func (m *MemoryIndex) Lookup(fingerprint string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	key, ok := m.entries[fingerprint]
	return key, ok, nil
}

// Record inserts the fingerprint if absent, first writer wins.
func (m *MemoryIndex) Record(fingerprint, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	if existing, ok := m.entries[fingerprint]; ok {
		return existing, false, nil
	}
	m.entries[fingerprint] = key
	return key, true, nil
}

// Delete removes a fingerprint from the index.
func (m *MemoryIndex) Delete(fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, fingerprint)
	return nil
}

// Len returns the number of recorded fingerprints.
func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close marks the index closed; later calls fail with ErrClosed.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
