package pipeline

import (
	"context"
	"fmt"
	"strings"

	"PrepBot/backend/go/pkg/logger"
)

// Fixed advisory answers for the two early exits.
const (
	OutOfDomainAnswer = "The question does not seem relevant to the Software Engineering and " +
		"Coding Interview domain. Please ask a relevant question!"
	NoRelevantDocumentsAnswer = "No relevant documents were found. Please try a different question " +
		"related to Software Engineering or Coding Interviews."
)

// Outcome is the terminal state of a chat request.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeOutOfDomain
	OutcomeNoRelevantDocuments
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeOutOfDomain:
		return "out_of_domain"
	case OutcomeNoRelevantDocuments:
		return "no_relevant_documents"
	default:
		return "errored"
	}
}

// Stage is a step the request passed through.
type Stage string

const (
	StageReceivedQuestion Stage = "received_question"
	StageQueryGated       Stage = "query_gated"
	StageRetrieved        Stage = "retrieved"
	StageDocumentGated    Stage = "document_gated"
	StageGenerated        Stage = "generated"
)

// Result describes how a question was handled.
type Result struct {
	Outcome   Outcome
	Answer    string
	Stages    []Stage
	Retrieved int
	Relevant  int
	Err       error // set only when Outcome is OutcomeErrored
}

// ChatPipeline runs the request state machine:
// question check, query gate, retrieval, document gate, generation.
type ChatPipeline struct {
	handle    *IndexHandle
	query     *QueryGrader
	documents DocumentGrader
	retrieval *RetrievalPipeline
	qa        *QAPipeline
	log       *logger.Logger
}

// NewChatPipeline creates a new ChatPipeline.
func NewChatPipeline(handle *IndexHandle, query *QueryGrader, retrieval *RetrievalPipeline, qa *QAPipeline, log *logger.Logger) *ChatPipeline {
	return &ChatPipeline{
		handle:    handle,
		query:     query,
		retrieval: retrieval,
		qa:        qa,
		log:       log,
	}
}

// Run answers one question. It never retries; any failure ends the request
// with OutcomeErrored and a classified error.
func (p *ChatPipeline) Run(ctx context.Context, question string) *Result {
	res := &Result{}
	fail := func(err error) *Result {
		res.Outcome = OutcomeErrored
		res.Err = err
		return res
	}

	// Whitespace-only questions are rejected the same as a missing one.
	if strings.TrimSpace(question) == "" {
		return fail(newError(KindInvalidRequest, "", ErrInvalidRequest))
	}
	res.Stages = append(res.Stages, StageReceivedQuestion)

	if p.query.Grade(question) == GradeExit {
		p.log.Info("Question is not relevant to the domain")
		res.Outcome = OutcomeOutOfDomain
		res.Answer = OutOfDomainAnswer
		return res
	}
	res.Stages = append(res.Stages, StageQueryGated)

	idx, err := p.handle.Get()
	if err != nil {
		return fail(err)
	}

	retrieved, err := p.retrieval.Run(ctx, idx, question)
	if err != nil {
		return fail(err)
	}
	res.Retrieved = len(retrieved)
	res.Stages = append(res.Stages, StageRetrieved)
	p.log.Debug(fmt.Sprintf("Retrieved %d segments", len(retrieved)))

	relevant := p.documents.Filter(question, retrieved)
	res.Relevant = len(relevant)
	res.Stages = append(res.Stages, StageDocumentGated)
	p.log.Debug(fmt.Sprintf("Filtered down to %d relevant segments", len(relevant)))

	if len(relevant) == 0 {
		p.log.Info("No relevant documents were found for the question")
		res.Outcome = OutcomeNoRelevantDocuments
		res.Answer = NoRelevantDocumentsAnswer
		return res
	}

	answer, err := p.qa.Run(ctx, question, relevant)
	if err != nil {
		return fail(err)
	}
	res.Stages = append(res.Stages, StageGenerated)
	res.Outcome = OutcomeAnswered
	res.Answer = answer
	return res
}
