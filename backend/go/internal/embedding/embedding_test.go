package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PrepBot/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedOne(t *testing.T, m Embedding, text string) []float32 {
	t.Helper()
	vectors, err := m.EmbedBatch(context.Background(), []string{text})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	return vectors[0]
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingModel_DeterministicAndNormalized(t *testing.T) {
	m, err := NewHashingModel(64)
	require.NoError(t, err)

	a := embedOne(t, m, "Coding interview tips")
	b := embedOne(t, m, "coding INTERVIEW tips!")

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)

	c := embedOne(t, m, "system design")
	assert.NotEqual(t, a, c)
}

func TestHashingModel_EmptyTextIsZeroVector(t *testing.T) {
	m, err := NewHashingModel(8)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), embedOne(t, m, "   "))
}

func TestHashingModel_BatchMatchesSingle(t *testing.T) {
	m, err := NewHashingModel(32)
	require.NoError(t, err)

	batch, err := m.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, embedOne(t, m, "two"), batch[1])

	_, err = NewHashingModel(0)
	assert.Error(t, err)
}

func TestNewEmdModel(t *testing.T) {
	m, err := NewEmdModel(config.EmbeddingConfig{Provider: "hashing", Dimension: 16})
	require.NoError(t, err)
	assert.IsType(t, &HashingModel{}, m)

	_, err = NewEmdModel(config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}

func TestOpenAIModel_EmbedBatchRestoresOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m","data":[
			{"object":"embedding","index":1,"embedding":[0.3,0.4]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	m, err := NewOpenAIModel("sk-test", "m", srv.URL+"/v1")
	require.NoError(t, err)

	got, err := m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, got)
}

func TestOllamaModel_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[1,0,0]]}`))
	}))
	defer srv.Close()

	m, err := NewOllamaModel("nomic-embed-text", srv.URL)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0, 0}, embedOne(t, m, "hello"))

	_, err = m.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err, "one vector for two inputs is a count mismatch")
}

func TestHuggingFaceModel(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Inputs  []string        `json:"inputs"`
			Options map[string]bool `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Options["wait_for_model"])
		if body.Inputs[0] == "fail" {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[[0.5,0.5]]`))
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("", "", srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, 0.5}, embedOne(t, m, "hello"))
	assert.Equal(t, "/"+defaultHuggingFaceModel, gotPath)

	_, err = m.EmbedBatch(context.Background(), []string{"fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
