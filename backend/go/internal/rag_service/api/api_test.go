package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/internal/rag_service/rag/pipeline"
	"PrepBot/backend/go/internal/rag_service/service"
	"PrepBot/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	result   *pipeline.Result
	status   service.Status
	question string
	calls    int
}

func (f *fakeService) Chat(_ context.Context, question string) *pipeline.Result {
	f.calls++
	f.question = question
	return f.result
}

func (f *fakeService) Status() service.Status { return f.status }

func do(t *testing.T, svc ChatService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := SetupRouter(NewHandler(svc))
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat_Answered(t *testing.T) {
	svc := &fakeService{result: &pipeline.Result{Outcome: pipeline.OutcomeAnswered, Answer: "Use STAR."}}
	w := do(t, svc, http.MethodPost, "/chat", `{"question":"How to answer behavioral interview questions?"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"answer": "Use STAR."}, decode(t, w))
	assert.Equal(t, "How to answer behavioral interview questions?", svc.question)
}

func TestChat_AdvisoryOutcomes(t *testing.T) {
	for _, res := range []*pipeline.Result{
		{Outcome: pipeline.OutcomeOutOfDomain, Answer: pipeline.OutOfDomainAnswer},
		{Outcome: pipeline.OutcomeNoRelevantDocuments, Answer: pipeline.NoRelevantDocumentsAnswer},
	} {
		t.Run(res.Outcome.String(), func(t *testing.T) {
			w := do(t, &fakeService{result: res}, http.MethodPost, "/chat", `{"question":"q"}`)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, res.Answer, decode(t, w)["answer"])
		})
	}
}

func TestChat_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"empty body": "",
		"not json":   "question=hi",
		"wrong type": `{"question": 42}`,
		"json array": `["coding"]`,
	} {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{}
			w := do(t, svc, http.MethodPost, "/chat", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"No question provided"}`, w.Body.String())
			assert.Zero(t, svc.calls)
		})
	}
}

func TestChat_ErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "missing question",
			err:      &pipeline.Error{Kind: pipeline.KindInvalidRequest, Err: pipeline.ErrInvalidRequest},
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"No question provided"}`,
		},
		{
			name:     "index not ready",
			err:      &pipeline.Error{Kind: pipeline.KindIndexNotReady, Err: pipeline.ErrIndexNotReady},
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"error":"Vector store is not ready"}`,
		},
		{
			name:     "generation",
			err:      &pipeline.Error{Kind: pipeline.KindGeneration, Op: "generate", Err: errors.New("rate limited")},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"generate: rate limited"}`,
		},
		{
			name:     "embedding",
			err:      &pipeline.Error{Kind: pipeline.KindEmbedding, Op: "embed question", Err: errors.New("timeout")},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"embed question: timeout"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{result: &pipeline.Result{Outcome: pipeline.OutcomeErrored, Err: tt.err}}
			w := do(t, svc, http.MethodPost, "/chat", `{"question":"coding?"}`)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHealth(t *testing.T) {
	w := do(t, &fakeService{}, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"building"}`, w.Body.String())

	built := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w = do(t, &fakeService{status: service.Status{Ready: true, Segments: 12, Sources: []string{"a"}, BuiltAt: built}},
		http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","segments":12,"sources":["a"],"built_at":"2026-01-02T03:04:05Z"}`, w.Body.String())
}

func TestChat_MethodNotAllowed(t *testing.T) {
	w := do(t, &fakeService{}, http.MethodGet, "/chat", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat_EndToEndWithServer(t *testing.T) {
	// Unpublished index behind a real service.Server: in-domain questions get 503,
	// out-of-domain questions are still answered by the query gate.
	srv := newUnbuiltServer(t)

	w := do(t, srv, http.MethodPost, "/chat", `{"question":"coding interview tips"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Vector store is not ready"}`, w.Body.String())

	w = do(t, srv, http.MethodPost, "/chat", `{"question":"What's the best pizza topping?"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pipeline.OutOfDomainAnswer, decode(t, w)["answer"])

	w = do(t, srv, http.MethodPost, "/chat", `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func newUnbuiltServer(t *testing.T) *service.Server {
	t.Helper()
	srv, err := service.NewServer(config.Default(), service.Dependencies{}, logger.Discard())
	require.NoError(t, err)
	return srv
}
