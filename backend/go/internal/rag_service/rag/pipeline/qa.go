package pipeline

import (
	"context"
	"fmt"
	"strings"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
	"PrepBot/backend/go/pkg/logger"
)

// BuildPrompt joins the segment texts with blank lines and wraps them in the
// answer instruction, followed by the verbatim question and an "Answer:" marker.
func BuildPrompt(question string, docs []schema.ScoredDocument) string {
	var sb strings.Builder
	sb.WriteString("Using the following context, answer the question.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(strings.Join(schema.Texts(docs), "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// QAPipeline is responsible for generating an answer based on a query and retrieved documents.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline. The LLM is shared by all requests.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run builds the prompt and calls the LLM once at temperature 0.
func (p *QAPipeline) Run(ctx context.Context, question string, docs []schema.ScoredDocument) (string, error) {
	if len(docs) == 0 {
		return "", newError(KindGeneration, "generate", fmt.Errorf("no context segments"))
	}
	prompt := BuildPrompt(question, docs)
	p.log.Debug(fmt.Sprintf("Sending prompt with %d context segments to LLM", len(docs)))

	answer, err := p.llm.Complete(ctx, prompt, 0)
	if err != nil {
		return "", newError(KindGeneration, "generate", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", newError(KindGeneration, "generate", fmt.Errorf("empty completion"))
	}
	return answer, nil
}
