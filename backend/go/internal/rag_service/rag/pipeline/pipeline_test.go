package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/internal/rag_service/rag/splitters"
	"PrepBot/backend/go/internal/rag_service/rag/storages/docstore"
	"PrepBot/backend/go/internal/rag_service/rag/storages/vectorstore"
	"PrepBot/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var domainKeywords = []string{"software", "coding", "interview"}

type fakeLoader struct {
	docs map[string][]*schema.Document
	errs map[string]error
}

func (f *fakeLoader) ForSource(string) (interfaces.Loader, error) { return f, nil }

func (f *fakeLoader) Load(_ context.Context, source string) ([]*schema.Document, error) {
	if err := f.errs[source]; err != nil {
		return nil, err
	}
	return f.docs[source], nil
}

// keywordEmbedder maps text onto counts of a fixed vocabulary.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var vocabulary = []string{"interview", "coding", "resume", "algorithm", "pizza"}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		vec := make([]float32, len(vocabulary))
		for j, w := range vocabulary {
			vec[j] = float32(strings.Count(lower, w))
		}
		out[i] = vec
	}
	return out, nil
}

type recordingLLM struct {
	prompts      []string
	temperatures []float32
	answer       string
	err          error
}

func (l *recordingLLM) Complete(_ context.Context, prompt string, temperature float32) (string, error) {
	l.prompts = append(l.prompts, prompt)
	l.temperatures = append(l.temperatures, temperature)
	return l.answer, l.err
}

func textDoc(source, text string) *schema.Document {
	return &schema.Document{
		ID:       source,
		Text:     text,
		Metadata: map[string]interface{}{schema.MetadataKeySource: source},
	}
}

func newTestIndexer(t *testing.T, loader *fakeLoader, emb interfaces.EmbeddingModel, opts ...IndexingOption) *IndexingPipeline {
	t.Helper()
	splitter, err := splitters.NewRecursiveCharacterSplitter(250, 0, nil)
	require.NoError(t, err)
	factory := func(context.Context, int) (interfaces.VectorStore, error) {
		return vectorstore.NewFlatStore(), nil
	}
	return NewIndexingPipeline(loader, splitter, emb, docstore.NewInMemoryDocStore(), factory, logger.Discard(), opts...)
}

func buildChat(t *testing.T, idx *Index, llm interfaces.LLM) (*ChatPipeline, *IndexHandle) {
	t.Helper()
	handle := NewIndexHandle()
	if idx != nil {
		require.NoError(t, handle.Publish(idx))
	}
	log := logger.Discard()
	chat := NewChatPipeline(handle, NewQueryGrader(domainKeywords),
		NewRetrievalPipeline(DefaultTopK, log), NewQAPipeline(llm, log), log)
	return chat, handle
}

func corpus() *fakeLoader {
	return &fakeLoader{docs: map[string][]*schema.Document{
		"a": {textDoc("a", "A coding interview tests algorithm skills. Practice coding every day.")},
		"b": {textDoc("b", "Prepare your resume before the interview. Keep the resume to one page.")},
		"c": {textDoc("c", "Pizza is best with basil.")},
	}}
}

func TestIndexingPipeline_Build(t *testing.T) {
	emb := &keywordEmbedder{}
	idx, err := newTestIndexer(t, corpus(), emb).Build(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Segments)
	assert.Equal(t, []string{"a", "b", "c"}, idx.Sources)
	assert.Equal(t, 3, idx.Docs.Len())
	n, err := idx.Vectors.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, emb.calls, "segments are embedded in one call")
}

func TestIndexingPipeline_AbortOnSourceFailure(t *testing.T) {
	loader := corpus()
	loader.errs = map[string]error{"b": errors.New("connection refused")}

	_, err := newTestIndexer(t, loader, &keywordEmbedder{}).Build(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Equal(t, KindIngestion, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIndexingPipeline_SkipFailingSource(t *testing.T) {
	loader := corpus()
	loader.errs = map[string]error{"b": errors.New("404")}

	idx, err := newTestIndexer(t, loader, &keywordEmbedder{}, WithFailurePolicy(config.FailurePolicySkip)).
		Build(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, idx.Sources)
	assert.Equal(t, 2, idx.Segments)
}

func TestIndexingPipeline_EmptyCorpus(t *testing.T) {
	loader := &fakeLoader{docs: map[string][]*schema.Document{"a": {textDoc("a", "   ")}}}
	_, err := newTestIndexer(t, loader, &keywordEmbedder{}).Build(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, KindIngestion, KindOf(err))
}

func TestIndexingPipeline_EmbeddingFailure(t *testing.T) {
	emb := &keywordEmbedder{err: errors.New("quota exceeded")}
	_, err := newTestIndexer(t, corpus(), emb).Build(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, KindEmbedding, KindOf(err))
}

func TestIndexingPipeline_OrdinalsFollowSourceOrder(t *testing.T) {
	long := strings.Repeat("coding interview ", 40)
	loader := &fakeLoader{docs: map[string][]*schema.Document{
		"x": {textDoc("x", long)},
		"y": {textDoc("y", "resume")},
	}}
	idx, err := newTestIndexer(t, loader, &keywordEmbedder{}, WithConcurrency(1)).
		Build(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Greater(t, idx.Segments, 2)

	hits, err := idx.Vectors.Search(context.Background(), []float32{0, 0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, idx.Segments-1, hits[0].Document.Ordinal)
}

func TestIndexHandle(t *testing.T) {
	h := NewIndexHandle()
	assert.False(t, h.Ready())
	_, err := h.Get()
	assert.ErrorIs(t, err, ErrIndexNotReady)
	assert.Equal(t, KindIndexNotReady, KindOf(err))

	idx := &Index{}
	require.NoError(t, h.Publish(idx))
	assert.True(t, h.Ready())
	got, err := h.Get()
	require.NoError(t, err)
	assert.Same(t, idx, got)

	assert.Error(t, h.Publish(&Index{}))
	assert.Error(t, NewIndexHandle().Publish(nil))
}

func TestQueryGrader(t *testing.T) {
	g := NewQueryGrader(domainKeywords)
	tests := []struct {
		question string
		want     Grade
	}{
		{"How do I prepare for a coding interview?", GradeContinue},
		{"What is SOFTWARE architecture?", GradeContinue},
		{"Tips for interviewing", GradeContinue},
		{"What's the best pizza topping?", GradeExit},
		{"", GradeExit},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Grade(tt.question))
		})
	}
}

func TestDocumentGrader(t *testing.T) {
	var g DocumentGrader
	doc := &schema.Document{Text: "Practice Behavioral questions."}
	assert.Equal(t, GradeYes, g.Grade("behavioral tips?", doc))
	assert.Equal(t, GradeNo, g.Grade("software?", doc))

	// Tokens are substrings, so short tokens match inside longer words.
	assert.Equal(t, GradeYes, g.Grade("act", doc))

	hits := []schema.ScoredDocument{
		{Document: &schema.Document{ID: "1", Text: "graphs"}},
		{Document: &schema.Document{ID: "2", Text: "trees and graphs"}},
		{Document: &schema.Document{ID: "3", Text: "Trees"}},
	}
	kept := g.Filter("trees", hits)
	require.Len(t, kept, 2)
	assert.Equal(t, "2", kept[0].Document.ID)
	assert.Equal(t, "3", kept[1].Document.ID)
}

func TestBuildPrompt(t *testing.T) {
	docs := []schema.ScoredDocument{
		{Document: &schema.Document{Text: "first"}},
		{Document: &schema.Document{Text: "second"}},
	}
	want := "Using the following context, answer the question.\n\n" +
		"Context:\nfirst\n\nsecond\n\n" +
		"Question: What is coding?\nAnswer:"
	assert.Equal(t, want, BuildPrompt("What is coding?", docs))
}

func TestChatPipeline_Answered(t *testing.T) {
	idx, err := newTestIndexer(t, corpus(), &keywordEmbedder{}).Build(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	llm := &recordingLLM{answer: "Practice daily."}
	chat, _ := buildChat(t, idx, llm)

	res := chat.Run(context.Background(), "How to prepare for a coding interview?")
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeAnswered, res.Outcome)
	assert.Equal(t, "Practice daily.", res.Answer)
	assert.Equal(t, []Stage{StageReceivedQuestion, StageQueryGated, StageRetrieved, StageDocumentGated, StageGenerated}, res.Stages)
	assert.Equal(t, 3, res.Retrieved)

	require.Len(t, llm.prompts, 1)
	assert.Equal(t, []float32{0}, llm.temperatures)
	prompt := llm.prompts[0]
	assert.True(t, strings.HasPrefix(prompt, "Using the following context, answer the question.\n\nContext:\nA coding interview"))
	assert.True(t, strings.HasSuffix(prompt, "\n\nQuestion: How to prepare for a coding interview?\nAnswer:"))
}

func TestChatPipeline_OutOfDomain(t *testing.T) {
	emb := &keywordEmbedder{}
	idx, err := newTestIndexer(t, corpus(), emb).Build(context.Background(), []string{"a"})
	require.NoError(t, err)
	calls := emb.calls
	llm := &recordingLLM{answer: "unused"}
	chat, _ := buildChat(t, idx, llm)

	res := chat.Run(context.Background(), "What's the best pizza topping?")
	assert.Equal(t, OutcomeOutOfDomain, res.Outcome)
	assert.Equal(t, OutOfDomainAnswer, res.Answer)
	assert.Equal(t, []Stage{StageReceivedQuestion}, res.Stages)
	assert.Equal(t, calls, emb.calls, "no retrieval for out-of-domain questions")
	assert.Empty(t, llm.prompts)
}

func TestChatPipeline_NoRelevantDocuments(t *testing.T) {
	loader := &fakeLoader{docs: map[string][]*schema.Document{
		"a": {textDoc("a", "Pizza dough needs time to rise.")},
	}}
	idx, err := newTestIndexer(t, loader, &keywordEmbedder{}).Build(context.Background(), []string{"a"})
	require.NoError(t, err)
	llm := &recordingLLM{answer: "unused"}
	chat, _ := buildChat(t, idx, llm)

	res := chat.Run(context.Background(), "software?")
	assert.Equal(t, OutcomeNoRelevantDocuments, res.Outcome)
	assert.Equal(t, NoRelevantDocumentsAnswer, res.Answer)
	assert.Equal(t, 1, res.Retrieved)
	assert.Equal(t, 0, res.Relevant)
	assert.Empty(t, llm.prompts)
}

func TestChatPipeline_IndexNotReady(t *testing.T) {
	chat, handle := buildChat(t, nil, &recordingLLM{})

	res := chat.Run(context.Background(), "coding interview tips")
	assert.Equal(t, OutcomeErrored, res.Outcome)
	assert.Equal(t, KindIndexNotReady, KindOf(res.Err))
	assert.Equal(t, "vector store is not ready", res.Err.Error())
	assert.False(t, handle.Ready())

	// The query gate still runs first.
	res = chat.Run(context.Background(), "pizza?")
	assert.Equal(t, OutcomeOutOfDomain, res.Outcome)
}

func TestChatPipeline_InvalidQuestion(t *testing.T) {
	chat, _ := buildChat(t, nil, &recordingLLM{})
	for _, q := range []string{"", "  \n\t"} {
		res := chat.Run(context.Background(), q)
		assert.Equal(t, OutcomeErrored, res.Outcome)
		assert.Equal(t, KindInvalidRequest, KindOf(res.Err))
		assert.ErrorIs(t, res.Err, ErrInvalidRequest)
		assert.Empty(t, res.Stages)
	}
}

func TestChatPipeline_Failures(t *testing.T) {
	idx, err := newTestIndexer(t, corpus(), &keywordEmbedder{}).Build(context.Background(), []string{"a"})
	require.NoError(t, err)

	t.Run("generation", func(t *testing.T) {
		chat, _ := buildChat(t, idx, &recordingLLM{err: errors.New("upstream 500")})
		res := chat.Run(context.Background(), "coding interview")
		assert.Equal(t, OutcomeErrored, res.Outcome)
		assert.Equal(t, KindGeneration, KindOf(res.Err))
		assert.Contains(t, res.Err.Error(), "upstream 500")
	})

	t.Run("empty completion", func(t *testing.T) {
		chat, _ := buildChat(t, idx, &recordingLLM{answer: "  "})
		res := chat.Run(context.Background(), "coding interview")
		assert.Equal(t, KindGeneration, KindOf(res.Err))
	})

	t.Run("query embedding", func(t *testing.T) {
		broken := *idx
		broken.Embedder = &keywordEmbedder{err: fmt.Errorf("timeout")}
		chat, _ := buildChat(t, &broken, &recordingLLM{answer: "x"})
		res := chat.Run(context.Background(), "coding interview")
		assert.Equal(t, KindEmbedding, KindOf(res.Err))
	})
}

type idOnlyStore struct{ hits []schema.ScoredDocument }

func (s idOnlyStore) Add(context.Context, []*schema.Document) error { return nil }
func (s idOnlyStore) Search(context.Context, []float32, int) ([]schema.ScoredDocument, error) {
	return s.hits, nil
}
func (s idOnlyStore) Count(context.Context) (int, error) { return len(s.hits), nil }

func TestRetrievalPipeline_ResolvesTextFromDocStore(t *testing.T) {
	docs := docstore.NewInMemoryDocStore()
	require.NoError(t, docs.Add(context.Background(), []*schema.Document{
		{ID: "s1", Text: "coding drills", Ordinal: 0},
		{ID: "s2", Text: "mock interviews", Ordinal: 1},
	}))
	idx := &Index{
		Vectors: idOnlyStore{hits: []schema.ScoredDocument{
			{Document: &schema.Document{ID: "s1", Ordinal: 0}, Distance: 0.5},
			{Document: &schema.Document{ID: "s2", Ordinal: 1}, Distance: 0.7},
		}},
		Docs:     docs,
		Embedder: &keywordEmbedder{},
	}

	hits, err := NewRetrievalPipeline(0, logger.Discard()).Run(context.Background(), idx, "coding")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "coding drills", hits[0].Document.Text)
	assert.Equal(t, float32(0.5), hits[0].Distance)
	assert.Equal(t, "mock interviews", hits[1].Document.Text)
}

func TestRetrievalPipeline_MissingSegmentIsRetrievalError(t *testing.T) {
	docs := docstore.NewInMemoryDocStore()
	require.NoError(t, docs.Add(context.Background(), []*schema.Document{
		{ID: "s1", Text: "coding drills", Ordinal: 0},
	}))
	idx := &Index{
		Vectors: idOnlyStore{hits: []schema.ScoredDocument{
			{Document: &schema.Document{ID: "s1", Ordinal: 0}, Distance: 0.5},
			{Document: &schema.Document{ID: "gone", Ordinal: 1}, Distance: 0.7},
		}},
		Docs:     docs,
		Embedder: &keywordEmbedder{},
	}

	hits, err := NewRetrievalPipeline(0, logger.Discard()).Run(context.Background(), idx, "coding")
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, KindRetrieval, KindOf(err))
	assert.Contains(t, err.Error(), "gone")
}
