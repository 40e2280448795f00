package embeddings

import (
	"context"
	"fmt"

	"PrepBot/backend/go/internal/embedding"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
)

// Adapter adapts a provider embedding client to the generic EmbeddingModel
// interface, sending at most batchSize texts per provider call.
type Adapter struct {
	client    embedding.Embedding
	batchSize int
}

// NewAdapter creates a new adapter. batchSize <= 0 sends everything in one call.
func NewAdapter(client embedding.Embedding, batchSize int) *Adapter {
	return &Adapter{client: client, batchSize: batchSize}
}

// Embed embeds texts in order, batch by batch.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	size := a.batchSize
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := a.client.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
