// ABOUTME: Backend interface for storing whole collection documents
// ABOUTME: Includes an in-memory backend for tests and ephemeral deployments

package store

import (
	"context"
	"sync"
)

// Backend stores one opaque document per collection. Save must replace a
// document atomically: a concurrent Load observes either the previous or
// the new document, never a mix.
type Backend interface {
	// Load returns the stored document, or ErrNotFound if there is none.
	Load(ctx context.Context, c Collection) ([]byte, error)

	// Save replaces the document for c.
	Save(ctx context.Context, c Collection, doc []byte) error

	// Name identifies the backend in logs.
	Name() string

	Close() error
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[Collection][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[Collection][]byte)}
}

func (m *MemoryBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[c]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *MemoryBackend) Save(ctx context.Context, c Collection, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(doc))
	copy(stored, doc)

	m.mu.Lock()
	m.docs[c] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
