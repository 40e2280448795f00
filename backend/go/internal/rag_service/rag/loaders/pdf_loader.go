package loaders

import (
	"context"
	"os"
	"path/filepath"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file and returns a Document for each page that has text.
func (l *PdfLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	documents, err := pdfDocuments(path, f, info.Size())
	if err != nil {
		return nil, err
	}
	for _, doc := range documents {
		doc.Metadata[schema.MetadataKeyFileName] = filepath.Base(path)
	}
	return documents, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
