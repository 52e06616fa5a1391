// Package sink writes pipeline output as JSON Lines to a local file or a GCS
// object, and optionally as rows in Postgres.
package sink

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

// GzipSuffix is appended to output paths when compression is on.
const GzipSuffix = ".gz"

// Sink persists a finished item set and reports where it went.
type Sink interface {
	Write(ctx context.Context, items []gazette.Item) (string, error)
}

// OutputPath returns path with GzipSuffix appended when compress is set and
// the path does not already carry it.
func OutputPath(path string, compress bool) string {
	if compress && !strings.HasSuffix(path, GzipSuffix) {
		return path + GzipSuffix
	}
	return path
}

// Encode writes one JSON object per item, newline terminated. Non-ASCII and
// HTML characters are written as is.
func Encode(w io.Writer, items []gazette.Item) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range items {
		if err := enc.Encode(items[i].Record()); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}

// encodeTo wraps w in a gzip writer when compress is set.
func encodeTo(w io.Writer, items []gazette.Item, compress bool) error {
	if !compress {
		return Encode(w, items)
	}
	zw := gzip.NewWriter(w)
	if err := Encode(zw, items); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}

// FileSink writes JSON Lines to the local filesystem.
type FileSink struct {
	path     string
	compress bool
}

var _ Sink = (*FileSink)(nil)

// NewFile creates a FileSink. The effective path gains GzipSuffix when
// compress is set.
func NewFile(path string, compress bool) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	return &FileSink{path: OutputPath(path, compress), compress: compress}, nil
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

// Write creates parent directories and replaces the file with items. An
// empty item set produces an empty dataset.
func (s *FileSink) Write(_ context.Context, items []gazette.Item) (string, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create parent directories: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if err := encodeTo(f, items, s.compress); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", s.path, err)
	}
	return s.path, nil
}
