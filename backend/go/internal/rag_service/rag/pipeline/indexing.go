package pipeline

import (
	"context"
	"fmt"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// LoaderResolver picks the loader for a source identifier.
type LoaderResolver interface {
	ForSource(source string) (interfaces.Loader, error)
}

// VectorStoreFactory creates an empty vector store for vectors of dimension dim.
type VectorStoreFactory func(ctx context.Context, dim int) (interfaces.VectorStore, error)

// IndexingPipeline orchestrates the process of loading, splitting, embedding, and storing documents.
type IndexingPipeline struct {
	loaders        LoaderResolver
	splitter       interfaces.Splitter
	embedder       interfaces.EmbeddingModel
	queryEmbedder  interfaces.EmbeddingModel
	docStore       interfaces.DocStore
	newVectorStore VectorStoreFactory
	log            *logger.Logger

	failurePolicy string
	concurrency   int
	fetchTimeout  time.Duration
}

// IndexingOption configures an IndexingPipeline.
type IndexingOption func(*IndexingPipeline)

// WithFailurePolicy sets how a failing source is handled: config.FailurePolicyAbort or config.FailurePolicySkip.
func WithFailurePolicy(policy string) IndexingOption {
	return func(p *IndexingPipeline) { p.failurePolicy = policy }
}

// WithConcurrency limits how many sources are fetched at once.
func WithConcurrency(n int) IndexingOption {
	return func(p *IndexingPipeline) { p.concurrency = n }
}

// WithFetchTimeout bounds each source fetch.
func WithFetchTimeout(d time.Duration) IndexingOption {
	return func(p *IndexingPipeline) { p.fetchTimeout = d }
}

// WithQueryEmbedder sets the embedder stored on the Index for questions. It
// must wrap the same provider as the indexing embedder (e.g. add a cache).
func WithQueryEmbedder(e interfaces.EmbeddingModel) IndexingOption {
	return func(p *IndexingPipeline) { p.queryEmbedder = e }
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	loaders LoaderResolver,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	docStore interfaces.DocStore,
	newVectorStore VectorStoreFactory,
	log *logger.Logger,
	opts ...IndexingOption,
) *IndexingPipeline {
	p := &IndexingPipeline{
		loaders:        loaders,
		splitter:       splitter,
		embedder:       embedder,
		docStore:       docStore,
		newVectorStore: newVectorStore,
		log:            log,
		failurePolicy:  config.FailurePolicyAbort,
		concurrency:    4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queryEmbedder == nil {
		p.queryEmbedder = p.embedder
	}
	return p
}

// Load fetches every source and returns the text units in source order.
// Under the abort policy the first failure cancels the remaining fetches;
// under skip a failing source contributes nothing. The returned slice of
// contributing sources is in configured order.
func (p *IndexingPipeline) Load(ctx context.Context, sources []string) ([]*schema.Document, []string, error) {
	slots := make([][]*schema.Document, len(sources))
	eg, gCtx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		eg.SetLimit(p.concurrency)
	}

	for i, source := range sources {
		eg.Go(func() error {
			docs, err := p.loadOne(gCtx, source)
			if err != nil {
				if p.failurePolicy == config.FailurePolicySkip {
					p.log.WithError(err).WithField("source", source).Warn("Skipping knowledge source")
					return nil
				}
				return newError(KindIngestion, "load "+source, err)
			}
			slots[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var units []*schema.Document
	var contributing []string
	for i, docs := range slots {
		if len(docs) > 0 {
			units = append(units, docs...)
			contributing = append(contributing, sources[i])
		}
	}
	return units, contributing, nil
}

func (p *IndexingPipeline) loadOne(ctx context.Context, source string) ([]*schema.Document, error) {
	loader, err := p.loaders.ForSource(source)
	if err != nil {
		return nil, err
	}
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(map[string]interface{}{
		"source":   source,
		"units":    len(docs),
		"duration": time.Since(start).String(),
	}).Debug("Loaded knowledge source")
	return docs, nil
}

// Build loads, splits, embeds and stores all sources and returns the finished
// index. Any embedding failure fails the whole build; no partial index is returned.
func (p *IndexingPipeline) Build(ctx context.Context, sources []string) (*Index, error) {
	p.log.Info(fmt.Sprintf("Building index from %d knowledge sources", len(sources)))

	// 1. Load the data
	units, contributing, err := p.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	p.log.Info(fmt.Sprintf("Loaded %d text units from %d sources", len(units), len(contributing)))

	// 2. Split documents into segments
	segments, err := p.splitter.Split(ctx, units)
	if err != nil {
		return nil, newError(KindIngestion, "split", err)
	}
	if len(segments) == 0 {
		return nil, newError(KindIngestion, "split", fmt.Errorf("knowledge sources produced no text"))
	}
	for i, seg := range segments {
		seg.Ordinal = i
	}
	p.log.Info(fmt.Sprintf("Split into %d segments", len(segments)))

	// 3. Embed the segments
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, newError(KindEmbedding, "embed segments", err)
	}
	if len(embeddings) != len(segments) {
		return nil, newError(KindEmbedding, "embed segments",
			fmt.Errorf("got %d vectors for %d segments", len(embeddings), len(segments)))
	}
	for i, seg := range segments {
		seg.Embedding = embeddings[i]
	}

	vectorStore, err := p.newVectorStore(ctx, len(embeddings[0]))
	if err != nil {
		return nil, newError(KindIngestion, "create vector store", err)
	}

	// 4. Store the segments concurrently
	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := p.docStore.Add(gCtx, segments); err != nil {
			return newError(KindIngestion, "store documents", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := vectorStore.Add(gCtx, segments); err != nil {
			return newError(KindIngestion, "store vectors", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	p.log.Info(fmt.Sprintf("Index built with %d segments", len(segments)))
	return &Index{
		Vectors:  vectorStore,
		Docs:     p.docStore,
		Embedder: p.queryEmbedder,
		Segments: len(segments),
		Sources:  contributing,
		BuiltAt:  time.Now(),
	}, nil
}
