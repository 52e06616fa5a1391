// Package collyfetcher implements fetcher.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/fetcher"
	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
	"github.com/JakeFAU/boe-sumario-crawler/internal/metrics"
)

// Config controls collector and retry behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxTries bounds the number of GET attempts per Fetch call.
	MaxTries int
	// BackoffBase is raised to the attempt number to get the pause in seconds
	// before the next attempt.
	BackoffBase float64
	// MaxBodyBytes caps response bodies; zero means unlimited.
	MaxBodyBytes int
}

// Sleeper pauses between attempts. It returns early when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithSleeper replaces the pause used between attempts.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) {
		if s != nil {
			f.sleep = s
		}
	}
}

// WithTransport replaces the HTTP transport of the base collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.baseCollector.WithTransport(rt)
		}
	}
}

// Fetcher implements fetcher.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	sleep         Sleeper
	logger        *zap.Logger
}

var _ fetcher.Fetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Fetcher {
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 3
	}
	if cfg.BackoffBase < 1 {
		cfg.BackoffBase = 1.6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	// Retries revisit the same URL, and 4xx/5xx bodies must reach OnResponse
	// so the status can be classified.
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.MaxBodySize = cfg.MaxBodyBytes
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	f := &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		sleep:         pause,
		logger:        logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs rawURL until it answers 200 with a body, a permanent 400/404 is
// seen, or MaxTries attempts have been made. A canceled ctx ends the loop with
// the context error rather than ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) (fetcher.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxTries; attempt++ {
		result, err := f.get(ctx, rawURL, headers)
		switch {
		case err != nil:
			lastErr = err
			metrics.ObserveFetch(rawURL, metrics.FetchRetry, 0)
			f.logger.Warn("Fetch attempt failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		case result.StatusCode == http.StatusOK && len(result.Body) > 0:
			result.Attempts = attempt
			metrics.ObserveFetch(rawURL, metrics.FetchOK, len(result.Body))
			return result, nil
		case result.StatusCode == http.StatusBadRequest || result.StatusCode == http.StatusNotFound:
			metrics.ObserveFetch(rawURL, metrics.FetchNotFound, 0)
			f.logger.Debug("Resource not published",
				zap.String("url", rawURL),
				zap.Int("status_code", result.StatusCode),
			)
			return fetcher.Response{}, fmt.Errorf("%w: HTTP %d %s", fetcher.ErrNotFound, result.StatusCode, rawURL)
		default:
			lastErr = fmt.Errorf("unexpected HTTP %d with %d body bytes", result.StatusCode, len(result.Body))
			metrics.ObserveFetch(rawURL, metrics.FetchRetry, 0)
			f.logger.Warn("Fetch attempt rejected",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("status_code", result.StatusCode),
			)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			f.logger.Debug("Fetch canceled",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
			)
			return fetcher.Response{}, fmt.Errorf("fetch %s: %w", rawURL, ctxErr)
		}
		if attempt < f.cfg.MaxTries {
			f.sleep(ctx, f.backoff(attempt))
		}
	}

	metrics.ObserveFetch(rawURL, metrics.FetchExhausted, 0)
	f.logger.Error("Fetch gave up",
		zap.String("url", rawURL),
		zap.Int("max_tries", f.cfg.MaxTries),
		zap.Error(lastErr),
	)
	return fetcher.Response{}, fmt.Errorf("%w: %s: %w", fetcher.ErrUnavailable, rawURL, lastErr)
}

// backoff returns BackoffBase^attempt seconds.
func (f *Fetcher) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(f.cfg.BackoffBase, float64(attempt)) * float64(time.Second))
}

func (f *Fetcher) get(ctx context.Context, rawURL string, headers http.Header) (fetcher.Response, error) {
	var (
		result   fetcher.Response
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, headers, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return fetcher.Response{}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	headers http.Header,
	start time.Time,
	result *fetcher.Response,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		copyHeaders(headers, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		var hdr http.Header
		if r.Headers != nil {
			hdr = r.Headers.Clone()
		}
		*result = fetcher.Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    hdr,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func copyHeaders(headers http.Header, r *colly.Request) {
	for key, values := range headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
