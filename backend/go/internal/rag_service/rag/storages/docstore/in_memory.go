package docstore

import (
	"context"
	"sync"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// InMemoryDocStore is a thread-safe, in-memory implementation of the DocStore interface.
type InMemoryDocStore struct {
	mu   sync.RWMutex
	docs map[string]*schema.Document
}

// NewInMemoryDocStore creates a new instance of InMemoryDocStore.
func NewInMemoryDocStore() *InMemoryDocStore {
	return &InMemoryDocStore{
		docs: make(map[string]*schema.Document),
	}
}

// Add stores documents by ID. A later document with the same ID replaces the earlier one.
func (s *InMemoryDocStore) Add(ctx context.Context, docs []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return nil
}

// Get retrieves a map of documents from the store by their IDs. Unknown IDs are omitted.
func (s *InMemoryDocStore) Get(ctx context.Context, ids []string) (map[string]*schema.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*schema.Document, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			result[id] = doc
		}
	}
	return result, nil
}

// Len returns the number of stored documents.
func (s *InMemoryDocStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// compile-time check to ensure InMemoryDocStore implements the DocStore interface
var _ interfaces.DocStore = (*InMemoryDocStore)(nil)
