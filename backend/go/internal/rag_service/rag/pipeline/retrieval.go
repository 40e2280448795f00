package pipeline

import (
	"context"
	"fmt"

	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/pkg/logger"
)

// DefaultTopK is the number of segments retrieved per question.
const DefaultTopK = 4

// RetrievalPipeline embeds a question and returns its nearest segments.
type RetrievalPipeline struct {
	topK int
	log  *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline. topK <= 0 uses DefaultTopK.
func NewRetrievalPipeline(topK int, log *logger.Logger) *RetrievalPipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalPipeline{topK: topK, log: log}
}

// Run returns up to topK segments ordered by ascending distance.
func (p *RetrievalPipeline) Run(ctx context.Context, idx *Index, question string) ([]schema.ScoredDocument, error) {
	// 1. Embed the question
	vectors, err := idx.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, newError(KindEmbedding, "embed question", err)
	}
	if len(vectors) != 1 {
		return nil, newError(KindEmbedding, "embed question", fmt.Errorf("got %d vectors for 1 question", len(vectors)))
	}

	// 2. Search the vector store
	hits, err := idx.Vectors.Search(ctx, vectors[0], p.topK)
	if err != nil {
		return nil, newError(KindRetrieval, "search", err)
	}
	if len(hits) == 0 {
		return hits, nil
	}

	// 3. Resolve segment text from the DocStore where the vector store only keeps IDs
	var missing []string
	for _, h := range hits {
		if h.Document.Text == "" {
			missing = append(missing, h.Document.ID)
		}
	}
	if len(missing) == 0 {
		return hits, nil
	}
	full, err := idx.Docs.Get(ctx, missing)
	if err != nil {
		return nil, newError(KindRetrieval, "load segments", err)
	}

	resolved := make([]schema.ScoredDocument, 0, len(hits))
	for _, h := range hits {
		if h.Document.Text == "" {
			doc, ok := full[h.Document.ID]
			if !ok {
				p.log.Warn(fmt.Sprintf("Could not find segment %s in doc store", h.Document.ID))
				return nil, newError(KindRetrieval, "load segments", fmt.Errorf("segment %s not found in doc store", h.Document.ID))
			}
			h.Document = doc
		}
		resolved = append(resolved, h)
	}
	return resolved, nil
}
