package service

import (
	"context"
	"fmt"
	"io"

	"PrepBot/backend/go/internal/cache"
	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/database/milvus"
	"PrepBot/backend/go/internal/database/minio"
	"PrepBot/backend/go/internal/database/redis"
	"PrepBot/backend/go/internal/embedding"
	"PrepBot/backend/go/internal/llm"
	"PrepBot/backend/go/internal/rag_service/rag/embeddings"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/llms"
	"PrepBot/backend/go/internal/rag_service/rag/loaders"
	"PrepBot/backend/go/internal/rag_service/rag/storages/vectorstore"
	pkghttp "PrepBot/backend/go/pkg/http"
	"PrepBot/backend/go/pkg/logger"

	goredis "github.com/go-redis/redis/v8"
	gominio "github.com/minio/minio-go/v7"
)

// NewDependencies connects the configured providers and stores. The returned
// cleanup function releases every client that was opened, also on error.
func NewDependencies(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (Dependencies, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("Failed to close client")
			}
		}
	}
	fail := func(err error) (Dependencies, func(), error) {
		cleanup()
		return Dependencies{}, func() {}, err
	}

	// 1. Embeddings
	emdModel, err := embedding.NewEmdModel(cfg.Embedding)
	if err != nil {
		return fail(fmt.Errorf("failed to create embedding model: %w", err))
	}
	embedder := embeddings.NewAdapter(emdModel, cfg.Embedding.BatchSize)

	var rdb *goredis.Client
	if cfg.Cache.Provider == "redis" {
		rdb, err = redis.GetClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, redis.Close)
	}
	vecCache, err := cache.New(cfg.Cache, rdb)
	if err != nil {
		return fail(err)
	}
	var queryEmbedder interfaces.EmbeddingModel
	if vecCache != nil {
		name := cfg.Embedding.Provider + "/" + cfg.Embedding.Model
		queryEmbedder = embeddings.NewCached(embedder, vecCache, name, log.WithField("component", "embedding_cache"))
	}

	// 2. Completion
	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fail(fmt.Errorf("failed to create LLM client: %w", err))
	}
	if c, ok := llmClient.(io.Closer); ok {
		closers = append(closers, c.Close)
	}
	var completer interfaces.LLM = llms.NewAdapter(llmClient, cfg.LLM.MaxTokens)
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := pkghttp.NewCircuitBreaker(cfg.Middleware.CircuitBreaker, log.WithField("component", "llm"))
		if err != nil {
			return fail(err)
		}
		completer = llms.NewGuarded(completer, breaker)
	}

	// 3. Loaders
	webClient, err := pkghttp.NewClient(
		cfg.Middleware.CircuitBreaker,
		config.Duration(cfg.Knowledge.FetchTimeout, 0),
		log.WithField("component", "fetch"),
		pkghttp.WithUserAgent(cfg.Knowledge.UserAgent),
	)
	if err != nil {
		return fail(err)
	}
	var objects *gominio.Client
	if cfg.Databases.MinIO.Endpoint != "" {
		objects, err = minio.GetClient(ctx, &cfg.Databases.MinIO)
		if err != nil {
			return fail(err)
		}
	}
	registry := loaders.NewRegistry(webClient, objects, cfg.Knowledge.Extract, cfg.Knowledge.MaxBodyBytes)

	// 4. Vector store
	var newVectorStore func(ctx context.Context, dim int) (interfaces.VectorStore, error)
	switch cfg.Retrieval.VectorStore {
	case "milvus":
		milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, milvusClient.Close)
		storeLog := log.WithField("component", "milvus")
		newVectorStore = func(ctx context.Context, dim int) (interfaces.VectorStore, error) {
			return vectorstore.NewMilvusStore(ctx, milvusClient, dim, storeLog)
		}
	default:
		newVectorStore = func(context.Context, int) (interfaces.VectorStore, error) {
			return vectorstore.NewFlatStore(), nil
		}
	}

	return Dependencies{
		Loaders:        registry,
		Embedder:       embedder,
		QueryEmbedder:  queryEmbedder,
		LLM:            completer,
		NewVectorStore: newVectorStore,
	}, cleanup, nil
}
