package splitters

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"

	"github.com/google/uuid"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// LengthFunc measures a piece of text in the splitter's unit.
type LengthFunc func(string) int

// RuneLength counts Unicode code points.
func RuneLength(s string) int { return utf8.RuneCountInString(s) }

// RecursiveCharacterSplitter splits text on the first separator that occurs in
// it, recursing into pieces that are still too long with the remaining
// separators, then merges adjacent pieces back up to ChunkSize.
// Separators stay attached to the start of the piece that follows them.
type RecursiveCharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	length       LengthFunc
}

// Option configures a RecursiveCharacterSplitter.
type Option func(*RecursiveCharacterSplitter)

// WithLengthFunction replaces the default rune count.
func WithLengthFunction(fn LengthFunc) Option {
	return func(s *RecursiveCharacterSplitter) {
		s.length = fn
	}
}

// NewRecursiveCharacterSplitter creates a splitter. A nil or empty separator
// list falls back to DefaultSeparators.
func NewRecursiveCharacterSplitter(chunkSize, chunkOverlap int, separators []string, opts ...Option) (*RecursiveCharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	s := &RecursiveCharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   append([]string(nil), separators...),
		length:       RuneLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split splits every document into segments. Segments never span two input
// documents, and each carries a copy of its parent's metadata plus
// parent_id and chunk_index.
func (s *RecursiveCharacterSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, text := range s.SplitText(doc.Text) {
			md := copyMetadata(doc.Metadata)
			md[schema.MetadataKeyParentID] = doc.ID
			md[schema.MetadataKeyChunkIndex] = i

			chunks = append(chunks, &schema.Document{
				ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", doc.ID, i))).String(),
				Text:     text,
				Metadata: md,
			})
		}
	}
	return chunks, nil
}

// SplitText splits a single text. The result is deterministic and every
// element is non-empty, trimmed and no longer than ChunkSize.
func (s *RecursiveCharacterSplitter) SplitText(text string) []string {
	return s.splitText(text, s.Separators)
}

func (s *RecursiveCharacterSplitter) splitText(text string, separators []string) []string {
	var final []string

	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if s.length(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) > 0 {
			final = append(final, s.splitText(piece, next)...)
		} else {
			final = append(final, s.hardSplit(piece)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// splitKeepingSeparator splits text on sep, prefixing every piece after the
// first with the separator. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	var out []string
	if sep == "" {
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	for i, part := range strings.Split(text, sep) {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily joins pieces into chunks of at most ChunkSize, carrying up to
// ChunkOverlap of trailing pieces into the next chunk.
func (s *RecursiveCharacterSplitter) merge(pieces []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := s.length(piece)
		if total+n > s.ChunkSize {
			if len(current) > 0 {
				if text := strings.TrimSpace(strings.Join(current, "")); text != "" {
					docs = append(docs, text)
				}
				for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
					total -= s.length(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
	}
	if text := strings.TrimSpace(strings.Join(current, "")); text != "" {
		docs = append(docs, text)
	}
	return docs
}

// hardSplit cuts an unsplittable piece into rune runs that fit ChunkSize.
func (s *RecursiveCharacterSplitter) hardSplit(piece string) []string {
	piece = strings.TrimSpace(piece)
	if piece == "" {
		return nil
	}
	if s.length(piece) <= s.ChunkSize {
		return []string{piece}
	}

	var out []string
	var sb strings.Builder
	for _, r := range piece {
		candidate := sb.String() + string(r)
		if sb.Len() > 0 && s.length(candidate) > s.ChunkSize {
			if text := strings.TrimSpace(sb.String()); text != "" {
				out = append(out, text)
			}
			sb.Reset()
		}
		sb.WriteRune(r)
	}
	if text := strings.TrimSpace(sb.String()); text != "" {
		out = append(out, text)
	}
	return out
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	newMd := make(map[string]interface{}, len(md)+2)
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}

// compile-time check to ensure RecursiveCharacterSplitter implements the Splitter interface
var _ interfaces.Splitter = (*RecursiveCharacterSplitter)(nil)
