package checkpoint

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]storedEnvelope // conversationID -> envelope
	closed bool
}

// storedEnvelope holds envelope bytes with metadata for List().
type storedEnvelope struct {
	data      []byte
	stage     string
	turn      int
	updatedAt time.Time
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedEnvelope),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(conversationID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data to avoid retaining caller's slice
	stored := make([]byte, len(data))
	copy(stored, data)

	// Metadata for List comes from the envelope itself; a payload that
	// doesn't parse is still stored verbatim.
	var meta struct {
		Stage string `json:"stage"`
		Turn  int    `json:"turn"`
	}
	_ = json.Unmarshal(data, &meta)

	m.data[conversationID] = storedEnvelope{
		data:      stored,
		stage:     meta.Stage,
		turn:      meta.Turn,
		updatedAt: time.Now().UTC(),
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(conversationID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	cp, ok := m.data[conversationID]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(cp.data))
	copy(result, cp.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for id, cp := range m.data {
		infos = append(infos, Info{
			ConversationID: id,
			Stage:          cp.stage,
			Turn:           cp.turn,
			UpdatedAt:      cp.updatedAt,
			Size:           int64(len(cp.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, conversationID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored conversations. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
