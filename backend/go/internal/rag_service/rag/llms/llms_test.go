package llms

import (
	"context"
	"errors"
	"testing"

	"PrepBot/backend/go/internal/llm"
	"PrepBot/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	last *llm.CompletionRequest
	text string
	err  error
}

func (f *fakeClient) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Text: f.text}, nil
}

func TestAdapter_Complete(t *testing.T) {
	client := &fakeClient{text: "  Use a heap.\n"}
	a := NewAdapter(client, 256)

	got, err := a.Complete(context.Background(), "prompt", 0)
	require.NoError(t, err)
	assert.Equal(t, "Use a heap.", got)
	assert.Equal(t, "prompt", client.last.Prompt)
	assert.Equal(t, float32(0), client.last.Temperature)
	assert.Equal(t, 256, client.last.MaxTokens)

	client.text = "   "
	_, err = a.Complete(context.Background(), "prompt", 0)
	assert.Error(t, err)
}

type scriptedLLM struct {
	calls int
	err   error
}

func (s *scriptedLLM) Complete(context.Context, string, float32) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestGuarded_OpensAfterFailures(t *testing.T) {
	inner := &scriptedLLM{err: errors.New("upstream 500")}
	g := NewGuarded(inner, circuitbreaker.New(circuitbreaker.WithFailureThreshold(2)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := g.Complete(ctx, "p", 0)
		assert.EqualError(t, err, "upstream 500")
	}
	_, err := g.Complete(ctx, "p", 0)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestGuarded_CancellationDoesNotTrip(t *testing.T) {
	inner := &scriptedLLM{err: context.Canceled}
	breaker := circuitbreaker.New(circuitbreaker.WithFailureThreshold(1))
	g := NewGuarded(inner, breaker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Complete(ctx, "p", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.Closed, breaker.State())
}
