package pipeline

import (
	"strings"

	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// Grade is a relevance gate decision.
type Grade string

const (
	GradeContinue Grade = "continue"
	GradeExit     Grade = "exit"
	GradeYes      Grade = "yes"
	GradeNo       Grade = "no"
)

// QueryGrader keeps questions that mention at least one domain keyword.
type QueryGrader struct {
	keywords []string
}

// NewQueryGrader creates a grader over keywords, matched case-insensitively.
func NewQueryGrader(keywords []string) *QueryGrader {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &QueryGrader{keywords: lowered}
}

// Grade returns GradeContinue when the question contains any keyword as a substring.
func (g *QueryGrader) Grade(question string) Grade {
	lower := strings.ToLower(question)
	for _, k := range g.keywords {
		if strings.Contains(lower, k) {
			return GradeContinue
		}
	}
	return GradeExit
}

// DocumentGrader is a lexical-overlap filter over retrieved segments.
type DocumentGrader struct{}

// Grade returns GradeYes when any whitespace-delimited token of the question
// occurs, case-insensitively, anywhere in the segment text.
func (DocumentGrader) Grade(question string, doc *schema.Document) Grade {
	return gradeTokens(strings.Fields(strings.ToLower(question)), strings.ToLower(doc.Text))
}

// Filter grades docs in order and keeps the survivors in their original order.
func (DocumentGrader) Filter(question string, docs []schema.ScoredDocument) []schema.ScoredDocument {
	tokens := strings.Fields(strings.ToLower(question))
	kept := make([]schema.ScoredDocument, 0, len(docs))
	for _, d := range docs {
		if gradeTokens(tokens, strings.ToLower(d.Document.Text)) == GradeYes {
			kept = append(kept, d)
		}
	}
	return kept
}

func gradeTokens(tokens []string, text string) Grade {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return GradeYes
		}
	}
	return GradeNo
}
