package cache

import (
	"errors"
	"sync"
)

// ErrQuotaExceeded is returned by a Storage that has no room for a write.
var ErrQuotaExceeded = errors.New("cache: storage quota exceeded")

// Storage is an index-addressable string key/value store, modelled on the
// browser's localStorage. Key(i) must enumerate every stored key for
// 0 <= i < Len(); removing a key may shift the indices of the keys after it.
type Storage interface {
	Len() (int, error)
	Key(i int) (string, bool, error)
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// MemoryStorage is an in-memory Storage that keeps keys in insertion order.
// A positive quota caps the total bytes of keys plus values.
//
// MemoryStorage is safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	keys  []string
	items map[string]string
	size  int
	quota int
}

// NewMemoryStorage returns an empty MemoryStorage. quota <= 0 means unlimited.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string), quota: quota}
}

func (m *MemoryStorage) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys), nil
}

func (m *MemoryStorage) Key(i int) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.keys) {
		return "", false, nil
	}
	return m.keys[i], true, nil
}

func (m *MemoryStorage) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, exists := m.items[key]
	next := m.size + len(value)
	if exists {
		next -= len(old)
	} else {
		next += len(key)
	}
	if m.quota > 0 && next > m.quota {
		return ErrQuotaExceeded
	}

	if !exists {
		m.keys = append(m.keys, key)
	}
	m.items[key] = value
	m.size = next
	return nil
}

func (m *MemoryStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items[key]
	if !ok {
		return nil
	}
	delete(m.items, key)
	m.size -= len(key) + len(v)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return nil
}
