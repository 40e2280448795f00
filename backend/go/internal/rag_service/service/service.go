package service

import (
	"context"
	"fmt"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/pipeline"
	"PrepBot/backend/go/internal/rag_service/rag/splitters"
	"PrepBot/backend/go/internal/rag_service/rag/storages/docstore"
	"PrepBot/backend/go/pkg/logger"
)

// Dependencies are the capabilities the service is assembled from.
// NewDependencies builds them from configuration; tests pass fakes.
type Dependencies struct {
	Loaders        pipeline.LoaderResolver
	Embedder       interfaces.EmbeddingModel // used to embed segments at build time
	QueryEmbedder  interfaces.EmbeddingModel // optional, wraps Embedder (e.g. with a cache)
	LLM            interfaces.LLM
	NewVectorStore pipeline.VectorStoreFactory
}

// Status is a point-in-time view of the index.
type Status struct {
	Ready    bool
	Segments int
	Sources  []string
	BuiltAt  time.Time
}

// Server answers questions against an index that is built once.
type Server struct {
	log     *logger.Logger
	sources []string
	handle  *pipeline.IndexHandle
	indexer *pipeline.IndexingPipeline
	chat    *pipeline.ChatPipeline
}

// NewServer creates a new Server. The index is empty until BuildIndex succeeds.
func NewServer(cfg *config.AppConfig, deps Dependencies, log *logger.Logger) (*Server, error) {
	splitter, err := newSplitter(cfg.Splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	indexOpts := []pipeline.IndexingOption{
		pipeline.WithFailurePolicy(cfg.Knowledge.FailurePolicy),
		pipeline.WithConcurrency(cfg.Knowledge.Concurrency),
		pipeline.WithFetchTimeout(config.Duration(cfg.Knowledge.FetchTimeout, 0)),
	}
	if deps.QueryEmbedder != nil {
		indexOpts = append(indexOpts, pipeline.WithQueryEmbedder(deps.QueryEmbedder))
	}

	handle := pipeline.NewIndexHandle()
	indexer := pipeline.NewIndexingPipeline(
		deps.Loaders,
		splitter,
		deps.Embedder,
		docstore.NewInMemoryDocStore(),
		deps.NewVectorStore,
		log.WithField("component", "indexing"),
		indexOpts...,
	)

	chatLog := log.WithField("component", "chat")
	chat := pipeline.NewChatPipeline(
		handle,
		pipeline.NewQueryGrader(cfg.Retrieval.DomainKeywords),
		pipeline.NewRetrievalPipeline(cfg.Retrieval.TopK, chatLog),
		pipeline.NewQAPipeline(deps.LLM, chatLog),
		chatLog,
	)

	return &Server{
		log:     log,
		sources: append([]string(nil), cfg.Knowledge.Sources...),
		handle:  handle,
		indexer: indexer,
		chat:    chat,
	}, nil
}

func newSplitter(cfg config.SplitterConfig) (*splitters.RecursiveCharacterSplitter, error) {
	var opts []splitters.Option
	if cfg.Unit == config.UnitTokens {
		length, err := splitters.NewTokenLength()
		if err != nil {
			return nil, err
		}
		opts = append(opts, splitters.WithLengthFunction(length))
	}
	return splitters.NewRecursiveCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.Separators, opts...)
}

// BuildIndex builds the index from the configured sources and publishes it.
// It must be called once; on failure nothing is published.
func (s *Server) BuildIndex(ctx context.Context) error {
	start := time.Now()
	idx, err := s.indexer.Build(ctx, s.sources)
	if err != nil {
		s.log.WithError(err).WithField("kind", pipeline.KindOf(err).String()).Error("Index build failed")
		return err
	}
	if err := s.handle.Publish(idx); err != nil {
		return err
	}
	s.log.WithFields(map[string]interface{}{
		"segments": idx.Segments,
		"sources":  len(idx.Sources),
		"duration": time.Since(start).String(),
	}).Info("Index is ready")
	return nil
}

// Chat answers a single question.
func (s *Server) Chat(ctx context.Context, question string) *pipeline.Result {
	res := s.chat.Run(ctx, question)
	fields := map[string]interface{}{
		"outcome":   res.Outcome.String(),
		"retrieved": res.Retrieved,
		"relevant":  res.Relevant,
	}
	if res.Err != nil {
		s.log.WithFields(fields).WithError(res.Err).WithField("kind", pipeline.KindOf(res.Err).String()).Warn("Chat request failed")
	} else {
		s.log.WithFields(fields).Info("Chat request handled")
	}
	return res
}

// Status reports whether the index is ready and what it contains.
func (s *Server) Status() Status {
	idx, err := s.handle.Get()
	if err != nil {
		return Status{}
	}
	return Status{
		Ready:    true,
		Segments: idx.Segments,
		Sources:  idx.Sources,
		BuiltAt:  idx.BuiltAt,
	}
}
