package loaders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// imageRegex matches Markdown image syntax, e.g. ![alt text](path/to/image.jpg).
var imageRegex = regexp.MustCompile(`!\[(.*?)\]\(.*?\)`)

// Load reads a Markdown file. Image references are replaced by their alt text,
// since image paths carry nothing a text index can match on.
func (l *MarkdownLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := imageRegex.ReplaceAllString(string(content), "$1")

	doc := newDocument(path, 0, text, map[string]interface{}{
		schema.MetadataKeyFileName:    filepath.Base(path),
		schema.MetadataKeyContentType: "text/markdown",
	})
	return []*schema.Document{doc}, nil
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
