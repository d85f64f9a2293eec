// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"sync"
	"time"
)

// KV defines the interface for the persistent key/value cache. Writes
// are last-writer-wins per key and always replace a key's full value.
type KV interface {
	// Get returns the value for key, or ok=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores the value under key with a time-to-live. A non-positive
	// ttl means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// MemoryKV implements KV in process memory. It backs tests and
// cache-less operation.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	expireAt time.Time // zero means no expiry
}

// NewMemoryKV creates a new in-memory key/value store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

// Get returns the value for key if present and unexpired.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores the value under key, replacing any existing entry.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expireAt: expireAt}
	return nil
}

// Delete removes the key.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryKV) Close() error {
	return nil
}

var _ KV = (*MemoryKV)(nil)
