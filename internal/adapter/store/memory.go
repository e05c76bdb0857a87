package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

// MemoryStore keeps documents in process memory. It is safe for concurrent
// use and is the default store when no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]json.RawMessage)}
}

// Create appends doc to the collection.
func (s *MemoryStore) Create(ctx context.Context, collection string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[collection] = append(s.docs[collection], data)
	return nil
}

// Find returns the collection's documents selected by q.
func (s *MemoryStore) Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := s.docs[collection]
	snapshot := docs[:len(docs):len(docs)]
	s.mu.RUnlock()

	return apply(snapshot, q)
}

// Collections returns a copy of every collection's documents in insertion
// order, keyed by collection name.
func (s *MemoryStore) Collections() map[string][]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]json.RawMessage, len(s.docs))
	for name, docs := range s.docs {
		out[name] = append([]json.RawMessage(nil), docs...)
	}
	return out
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
