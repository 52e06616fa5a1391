package sink

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

const gcsScheme = "gs://"

// IsGCSURI reports whether path names a GCS object.
func IsGCSURI(path string) bool {
	return strings.HasPrefix(path, gcsScheme)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, _ = strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}

// GCSSink uploads JSON Lines to a single GCS object.
type GCSSink struct {
	client   *storage.Client
	bucket   string
	object   string
	compress bool
}

var _ Sink = (*GCSSink)(nil)

// NewGCS creates a GCS-backed sink for uri. The object name gains GzipSuffix
// when compress is set.
func NewGCS(client *storage.Client, uri string, compress bool) (*GCSSink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	bucket, object, err := ParseGCSURI(OutputPath(uri, compress))
	if err != nil {
		return nil, err
	}
	return &GCSSink{client: client, bucket: bucket, object: object, compress: compress}, nil
}

// Write uploads items and returns the gs:// URI of the object.
func (s *GCSSink) Write(ctx context.Context, items []gazette.Item) (string, error) {
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"
	if s.compress {
		writer.ContentType = "application/gzip"
	}
	if err := encodeTo(writer, items, s.compress); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("upload object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("upload object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object), nil
}
