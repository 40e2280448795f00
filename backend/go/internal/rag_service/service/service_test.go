package service

import (
	"context"
	"errors"
	"testing"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/embedding"
	"PrepBot/backend/go/internal/rag_service/rag/embeddings"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/pipeline"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/internal/rag_service/rag/storages/vectorstore"
	"PrepBot/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLoader map[string]string

func (l staticLoader) ForSource(string) (interfaces.Loader, error) { return l, nil }

func (l staticLoader) Load(_ context.Context, source string) ([]*schema.Document, error) {
	text, ok := l[source]
	if !ok {
		return nil, errors.New("not found: " + source)
	}
	return []*schema.Document{{
		ID:       source,
		Text:     text,
		Metadata: map[string]interface{}{schema.MetadataKeySource: source},
	}}, nil
}

type cannedLLM struct{ prompts []string }

func (c *cannedLLM) Complete(_ context.Context, prompt string, _ float32) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return "Practice with timed mock interviews.", nil
}

func newTestServer(t *testing.T, sources staticLoader, llm interfaces.LLM) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Knowledge.Sources = nil
	for s := range sources {
		cfg.Knowledge.Sources = append(cfg.Knowledge.Sources, s)
	}

	model, err := embedding.NewHashingModel(64)
	require.NoError(t, err)
	srv, err := NewServer(cfg, Dependencies{
		Loaders:  sources,
		Embedder: embeddings.NewAdapter(model, 8),
		LLM:      llm,
		NewVectorStore: func(context.Context, int) (interfaces.VectorStore, error) {
			return vectorstore.NewFlatStore(), nil
		},
	}, logger.Discard())
	require.NoError(t, err)
	return srv
}

func TestServer_BuildAndChat(t *testing.T) {
	llm := &cannedLLM{}
	srv := newTestServer(t, staticLoader{
		"handbook": "Mock interviews help you practice coding under time pressure.",
	}, llm)

	assert.False(t, srv.Status().Ready)
	res := srv.Chat(context.Background(), "coding interview tips")
	assert.Equal(t, pipeline.KindIndexNotReady, pipeline.KindOf(res.Err))

	require.NoError(t, srv.BuildIndex(context.Background()))
	status := srv.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, 1, status.Segments)
	assert.Equal(t, []string{"handbook"}, status.Sources)
	assert.False(t, status.BuiltAt.IsZero())

	res = srv.Chat(context.Background(), "How do mock interviews help with coding?")
	require.NoError(t, res.Err)
	assert.Equal(t, pipeline.OutcomeAnswered, res.Outcome)
	assert.Equal(t, "Practice with timed mock interviews.", res.Answer)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Mock interviews help you practice coding under time pressure.")

	res = srv.Chat(context.Background(), "Best pizza in town?")
	assert.Equal(t, pipeline.OutcomeOutOfDomain, res.Outcome)
	assert.Len(t, llm.prompts, 1)
}

func TestServer_BuildIndexFailureLeavesIndexUnpublished(t *testing.T) {
	srv := newTestServer(t, staticLoader{"empty": ""}, &cannedLLM{})

	err := srv.BuildIndex(context.Background())
	require.Error(t, err)
	assert.Equal(t, pipeline.KindIngestion, pipeline.KindOf(err))
	assert.False(t, srv.Status().Ready)
}

func TestNewDependencies_LocalStack(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3"
	cfg.Middleware.CircuitBreaker.Enabled = true

	deps, cleanup, err := NewDependencies(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Loaders)
	assert.NotNil(t, deps.Embedder)
	assert.NotNil(t, deps.QueryEmbedder, "lru cache is enabled by default")
	assert.NotNil(t, deps.LLM)

	store, err := deps.NewVectorStore(context.Background(), 384)
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.FlatStore{}, store)

	_, err = deps.Loaders.ForSource("https://www.techinterviewhandbook.org/coding-interview-prep/")
	assert.NoError(t, err)
}

func TestNewDependencies_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = "word2vec"
	_, cleanup, err := NewDependencies(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
	cleanup()
}
