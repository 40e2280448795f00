package loaders

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"
)

// Doer is the subset of an HTTP client the web loader needs.
// Both *http.Client and the circuit-breaking pkg/http Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebLoader implements the Loader interface for fetching and parsing web pages.
type WebLoader struct {
	client   Doer
	mode     string
	maxBytes int64
}

// NewWebLoader creates a new WebLoader. mode selects plain text or Markdown
// extraction for HTML pages; maxBytes caps the body size (0 means unlimited).
func NewWebLoader(client Doer, mode string, maxBytes int64) *WebLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebLoader{client: client, mode: mode, maxBytes: maxBytes}
}

// Load fetches content from a URL, extracts the text, and returns it as text units.
func (l *WebLoader) Load(ctx context.Context, url string) ([]*schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	raw, err := readLimited(resp.Body, l.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return documentsFromBytes(url, raw, l.mode)
}

// readLimited reads r fully, failing if it holds more than max bytes.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > max {
		return nil, fmt.Errorf("content exceeds %d bytes", max)
	}
	return raw, nil
}

// compile-time check to ensure WebLoader implements the Loader interface
var _ interfaces.Loader = (*WebLoader)(nil)
