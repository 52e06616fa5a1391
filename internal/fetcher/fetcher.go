// Package fetcher defines the fetch contract shared by the catalog and
// document stages.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotFound marks a permanent 400/404 answer. It is never retried.
	ErrNotFound = errors.New("resource not found")
	// ErrUnavailable marks a fetch that failed on every attempt.
	ErrUnavailable = errors.New("resource unavailable")
)

// Fetcher retrieves a URL with bounded retries. Implementations never panic
// and report every failure as ErrNotFound or ErrUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) (Response, error)
}

// Response is a successful fetch: status 200 with a non-empty body.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Attempts   int
	Duration   time.Duration
}

// IsHTTPURL reports whether rawURL looks fetchable (http:// or https:// prefix).
func IsHTTPURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}
