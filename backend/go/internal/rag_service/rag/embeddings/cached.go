package embeddings

import (
	"context"

	"PrepBot/backend/go/internal/cache"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/pkg/logger"
)

// Cached serves repeated texts from a VectorCache and embeds the rest.
// Cache failures are logged and fall through to the underlying model.
type Cached struct {
	next  interfaces.EmbeddingModel
	cache cache.VectorCache
	model string
	log   *logger.Logger
}

// NewCached wraps next. model namespaces the cache keys.
func NewCached(next interfaces.EmbeddingModel, c cache.VectorCache, model string, log *logger.Logger) *Cached {
	return &Cached{next: next, cache: c, model: model, log: log}
}

// Embed returns vectors in input order.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		vec, ok, err := c.cache.Get(ctx, cache.Key(c.model, text))
		if err != nil {
			c.log.WithError(err).Warn("embedding cache read failed")
		}
		if ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		if err := c.cache.Set(ctx, cache.Key(c.model, texts[i]), vectors[j]); err != nil {
			c.log.WithError(err).Warn("embedding cache write failed")
		}
	}
	return out, nil
}

var _ interfaces.EmbeddingModel = (*Cached)(nil)
