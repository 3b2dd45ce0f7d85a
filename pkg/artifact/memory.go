package artifact

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data      []byte
	createdAt time.Time
}

// MemoryDriver implements Driver using an in-memory map. Used when no
// artifact directory is configured, and by tests.
type MemoryDriver struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryDriver creates an empty in-memory artifact store.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put stores a copy of data under a fresh id.
func (m *MemoryDriver) Put(data []byte) (string, error) {
	payload := make([]byte, len(data))
	copy(payload, data)

	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{data: payload, createdAt: m.now()}
	return id, nil
}

// Get retrieves the payload for id.
func (m *MemoryDriver) Get(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound{ID: id}
	}
	return entry.data, nil
}

// Reap removes entries created before cutoff.
func (m *MemoryDriver) Reap(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if entry.createdAt.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored artifacts.
func (m *MemoryDriver) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for the in-memory driver.
func (m *MemoryDriver) Close() error {
	return nil
}
