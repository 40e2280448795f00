package interfaces

import (
	"context"

	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// Loader is the interface for loading data from a source (e.g., file, URL)
// and converting it into a list of Document objects.
type Loader interface {
	Load(ctx context.Context, source string) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// DocStore is the interface for storing and retrieving document chunks by their ID.
type DocStore interface {
	Add(ctx context.Context, docs []*schema.Document) error
	Get(ctx context.Context, ids []string) (map[string]*schema.Document, error)
	Len() int
}

// VectorStore is the interface for storing and querying document vectors.
//
// Search returns at most k hits ordered by ascending squared L2 distance;
// equal distances keep insertion order (Document.Ordinal).
// Returned documents carry at least ID and Ordinal; text may need to be
// resolved through a DocStore.
type VectorStore interface {
	Add(ctx context.Context, docs []*schema.Document) error
	Search(ctx context.Context, embedding []float32, k int) ([]schema.ScoredDocument, error)
	Count(ctx context.Context) (int, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}
