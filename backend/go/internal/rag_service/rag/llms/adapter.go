package llms

import (
	"context"
	"fmt"
	"strings"

	"PrepBot/backend/go/internal/llm"
	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
)

// Adapter adapts a provider LLM client to the generic LLM interface.
type Adapter struct {
	client    llm.LLM
	maxTokens int
}

// NewAdapter creates a new adapter.
func NewAdapter(client llm.LLM, maxTokens int) *Adapter {
	return &Adapter{client: client, maxTokens: maxTokens}
}

// Complete sends one stateless completion request and returns the trimmed text.
func (a *Adapter) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := a.client.Complete(ctx, &llm.CompletionRequest{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("llm returned an empty completion")
	}
	return text, nil
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
