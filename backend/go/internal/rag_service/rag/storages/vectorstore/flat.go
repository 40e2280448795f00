package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// FlatStore is an exact, in-memory vector index. Every search scans all
// vectors, which is fine for a knowledge base of a few thousand segments.
type FlatStore struct {
	mu   sync.RWMutex
	docs []*schema.Document
	dim  int
}

// NewFlatStore creates an empty FlatStore.
func NewFlatStore() *FlatStore {
	return &FlatStore{}
}

// Add appends documents in order. All embeddings must share one dimension.
func (s *FlatStore) Add(ctx context.Context, docs []*schema.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		if dim == 0 {
			dim = len(doc.Embedding)
		}
		if len(doc.Embedding) != dim {
			return fmt.Errorf("document %s has dimension %d, want %d", doc.ID, len(doc.Embedding), dim)
		}
	}
	s.dim = dim
	s.docs = append(s.docs, docs...)
	return nil
}

// Search returns the k nearest documents by squared L2 distance.
func (s *FlatStore) Search(ctx context.Context, embedding []float32, k int) ([]schema.ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.docs) == 0 {
		return []schema.ScoredDocument{}, nil
	}
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, index has %d", len(embedding), s.dim)
	}

	hits := make([]schema.ScoredDocument, len(s.docs))
	for i, doc := range s.docs {
		hits[i] = schema.ScoredDocument{Document: doc, Distance: squaredL2(embedding, doc.Embedding)}
	}
	sortHits(hits)

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Count returns the number of stored vectors.
func (s *FlatStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

var _ interfaces.VectorStore = (*FlatStore)(nil)
