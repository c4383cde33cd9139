// Package blob abstracts the key-value blob store used to persist dedup
// state between runs and to publish each run's dataset output.
//
// The core depends on nothing beyond get/set by string key with
// last-write-wins semantics per key. Implementations: in-memory (tests),
// local filesystem with atomic writes, and any S3-compatible object store.
package blob

import (
	"context"
	"sync"

	"github.com/agentstation/mcpmap/pkg/errors"
)

// Store is a key-value blob store.
type Store interface {
	// Get returns the blob stored under key, or errors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the blob under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error
}

// Memory is an in-memory Store, safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
