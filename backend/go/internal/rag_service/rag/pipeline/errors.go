package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so the request boundary can map them
// to responses without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindIngestion: a knowledge source could not be fetched or parsed. Startup only.
	KindIngestion
	// KindEmbedding: the embedding capability failed.
	KindEmbedding
	// KindIndexNotReady: a question arrived before the index was published.
	KindIndexNotReady
	// KindRetrieval: the vector store failed to answer a search.
	KindRetrieval
	// KindGeneration: the completion capability failed or returned nothing.
	KindGeneration
	// KindInvalidRequest: the question was missing or empty.
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindIngestion:
		return "ingestion"
	case KindEmbedding:
		return "embedding"
	case KindIndexNotReady:
		return "index_not_ready"
	case KindRetrieval:
		return "retrieval"
	case KindGeneration:
		return "generation"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

var (
	// ErrIndexNotReady is returned by IndexHandle.Get before Publish.
	ErrIndexNotReady = errors.New("vector store is not ready")
	// ErrInvalidRequest is returned for a missing or blank question.
	ErrInvalidRequest = errors.New("no question provided")
)

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
