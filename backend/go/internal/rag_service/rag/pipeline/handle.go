package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
)

// Index is a built, immutable knowledge index. Nothing writes to its stores
// after it has been published.
type Index struct {
	Vectors  interfaces.VectorStore
	Docs     interfaces.DocStore
	Embedder interfaces.EmbeddingModel // same provider that embedded the segments
	Segments int
	Sources  []string // sources that contributed at least one segment
	BuiltAt  time.Time
}

// IndexHandle owns the index for the request path. It starts empty and is
// published exactly once.
type IndexHandle struct {
	p atomic.Pointer[Index]
}

// NewIndexHandle returns an empty handle.
func NewIndexHandle() *IndexHandle {
	return &IndexHandle{}
}

// Publish makes idx visible to readers. Publishing twice is an error.
func (h *IndexHandle) Publish(idx *Index) error {
	if idx == nil {
		return errors.New("cannot publish a nil index")
	}
	if !h.p.CompareAndSwap(nil, idx) {
		return errors.New("index already published")
	}
	return nil
}

// Get returns the published index or an IndexNotReady error.
func (h *IndexHandle) Get() (*Index, error) {
	idx := h.p.Load()
	if idx == nil {
		return nil, newError(KindIndexNotReady, "", ErrIndexNotReady)
	}
	return idx, nil
}

// Ready reports whether an index has been published.
func (h *IndexHandle) Ready() bool {
	return h.p.Load() != nil
}
