package loaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"

	"github.com/minio/minio-go/v7"
)

// Registry picks a Loader for each knowledge source.
type Registry struct {
	web    *WebLoader
	object *ObjectLoader
	byExt  map[string]interfaces.Loader
}

// NewRegistry creates a Registry. objects may be nil when no s3:// sources are configured.
func NewRegistry(web Doer, objects *minio.Client, mode string, maxBytes int64) *Registry {
	md := NewMarkdownLoader()
	return &Registry{
		web:    NewWebLoader(web, mode, maxBytes),
		object: NewObjectLoader(objects, mode, maxBytes),
		byExt: map[string]interfaces.Loader{
			".txt":      NewTxtLoader(),
			".md":       md,
			".markdown": md,
			".pdf":      NewPdfLoader(),
			".xlsx":     NewXlsxLoader(),
		},
	}
}

// ForSource returns the loader for a source identifier: http(s) URLs, s3:// URIs,
// or local files by extension.
func (r *Registry) ForSource(source string) (interfaces.Loader, error) {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return r.web, nil
	case strings.HasPrefix(lower, "s3://"):
		return r.object, nil
	}

	ext := strings.ToLower(filepath.Ext(source))
	if loader, ok := r.byExt[ext]; ok {
		return loader, nil
	}
	return nil, fmt.Errorf("no loader for source %q", source)
}
