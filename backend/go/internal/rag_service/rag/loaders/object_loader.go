package loaders

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/internal/rag_service/rag/schema"

	"github.com/minio/minio-go/v7"
)

// ObjectLoader reads s3://bucket/key sources from a MinIO (or any S3-compatible) store.
type ObjectLoader struct {
	client   *minio.Client
	mode     string
	maxBytes int64
}

// NewObjectLoader creates a new ObjectLoader.
func NewObjectLoader(client *minio.Client, mode string, maxBytes int64) *ObjectLoader {
	return &ObjectLoader{client: client, mode: mode, maxBytes: maxBytes}
}

// ParseObjectURI splits s3://bucket/key into its bucket and key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid object uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid object uri %q: want s3://bucket/key", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid object uri %q: missing key", uri)
	}
	return u.Host, key, nil
}

// Load downloads the object and extracts its content by sniffed type.
func (l *ObjectLoader) Load(ctx context.Context, uri string) ([]*schema.Document, error) {
	if l.client == nil {
		return nil, fmt.Errorf("object store is not configured for %s", uri)
	}
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	obj, err := l.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", uri, err)
	}
	defer obj.Close()

	raw, err := readLimited(obj, l.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", uri, err)
	}

	documents, err := documentsFromBytes(uri, raw, l.mode)
	if err != nil {
		return nil, err
	}
	for _, doc := range documents {
		doc.Metadata[schema.MetadataKeyFileName] = path.Base(key)
	}
	return documents, nil
}

// compile-time check to ensure ObjectLoader implements the Loader interface
var _ interfaces.Loader = (*ObjectLoader)(nil)
