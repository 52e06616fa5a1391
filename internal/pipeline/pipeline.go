// Package pipeline drives the day-by-day catalog crawl and the optional
// per-item text attachment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/extract"
	"github.com/JakeFAU/boe-sumario-crawler/internal/fetcher"
	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
	"github.com/JakeFAU/boe-sumario-crawler/internal/metrics"
	"github.com/JakeFAU/boe-sumario-crawler/internal/sumario"
	"github.com/JakeFAU/boe-sumario-crawler/internal/theme"
)

// DefaultBaseURL is the public BOE host.
const DefaultBaseURL = "https://www.boe.es"

// TruncationMarker is appended to text cut by AttachOptions.Truncate.
const TruncationMarker = "…"

const catalogPath = "/datosabiertos/api/boe/sumario/"

// Clock abstracts time for throughput metering.
type Clock interface {
	Now() time.Time
}

// Throttle blocks until the next unit of work may proceed.
type Throttle interface {
	Wait(ctx context.Context) error
}

// TextExtractor resolves an item to its document text.
type TextExtractor interface {
	Extract(ctx context.Context, it gazette.Item) (extract.Result, error)
}

// Pipeline holds the collaborators shared by catalog building and text
// attachment. It keeps no state between calls.
type Pipeline struct {
	fetcher      fetcher.Fetcher
	extractor    TextExtractor
	classifier   *theme.Classifier
	dayThrottle  Throttle
	itemThrottle Throttle
	clock        Clock
	logger       *zap.Logger
	baseURL      string
	userAgent    string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithBaseURL sets the host serving the catalog endpoint.
func WithBaseURL(base string) Option {
	return func(p *Pipeline) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent sent with catalog requests.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) { p.userAgent = ua }
}

// WithExtractor replaces the document extractor used by AttachText.
func WithExtractor(e TextExtractor) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithClassifier replaces the default theme table.
func WithClassifier(c *theme.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithThrottles sets the per-day and per-item throttles.
func WithThrottles(day, item Throttle) Option {
	return func(p *Pipeline) {
		if day != nil {
			p.dayThrottle = day
		}
		if item != nil {
			p.itemThrottle = item
		}
	}
}

// WithClock replaces the clock used for throughput metering.
func WithClock(c Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// New builds a Pipeline around f. Without options it uses the default theme
// table, no throttling, and an extractor with the default strategies.
func New(f fetcher.Fetcher, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:      f,
		classifier:   theme.New(theme.DefaultThemes()),
		dayThrottle:  noThrottle{},
		itemThrottle: noThrottle{},
		clock:        utcClock{},
		logger:       logging.OrNop(logger),
		baseURL:      DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.extractor == nil {
		p.extractor = extract.New(f, p.logger, extract.DefaultStrategies(p.userAgent)...)
	}
	return p
}

// CatalogURL returns the daily summary URL for date under base.
func CatalogURL(base string, date time.Time) string {
	return strings.TrimRight(base, "/") + catalogPath + date.Format("20060102")
}

// BuildCatalog returns the items of every summary published in year, ordered
// by date and then by position in the day's document.
func (p *Pipeline) BuildCatalog(ctx context.Context, year int) ([]gazette.Item, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return p.BuildRange(ctx, from, to)
}

// BuildRange crawls every calendar date in the closed interval [from, to].
// A day that is not published, cannot be fetched, or cannot be parsed
// contributes no items and does not stop the crawl. The only error returned
// is context cancellation, together with the items gathered so far.
func (p *Pipeline) BuildRange(ctx context.Context, from, to time.Time) ([]gazette.Item, error) {
	from = truncateDay(from)
	to = truncateDay(to)

	var out []gazette.Item
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("build catalog: %w", err)
		}
		out = append(out, p.catalogDay(ctx, day)...)
		if err := p.dayThrottle.Wait(ctx); err != nil {
			return out, fmt.Errorf("build catalog: %w", err)
		}
	}
	return out, nil
}

func (p *Pipeline) catalogDay(ctx context.Context, day time.Time) []gazette.Item {
	date := day.Format(gazette.DateLayout)
	rawURL := CatalogURL(p.baseURL, day)
	p.logger.Info("Fetching summary", zap.String("date", date))

	resp, err := p.fetcher.Fetch(ctx, rawURL, p.catalogHeaders())
	switch {
	case errors.Is(err, fetcher.ErrNotFound):
		metrics.ObserveDay(metrics.DayMissing)
		return nil
	case err != nil:
		metrics.ObserveDay(metrics.DayFailed)
		return nil
	}

	parsed, err := sumario.Parse(resp.Body)
	if err != nil {
		metrics.ObserveDay(metrics.DayMalformed)
		p.logger.Warn("Summary parse failed",
			zap.String("date", date),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil
	}

	items := make([]gazette.Item, 0, len(parsed))
	for _, it := range parsed {
		it.Title = strings.TrimSpace(it.Title)
		if it.Title == "" {
			continue
		}
		it.Stamp(day)
		it.Theme = p.classifier.Classify(it.Title)
		metrics.ObserveItem(it.Theme)
		items = append(items, it)
	}
	metrics.ObserveDay(metrics.DayPublished)
	p.logger.Info("Summary parsed",
		zap.String("date", date),
		zap.Int("items", len(items)),
		zap.Int("dropped", len(parsed)-len(items)),
	)
	return items
}

func (p *Pipeline) catalogHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/xml")
	if p.userAgent != "" {
		h.Set("User-Agent", p.userAgent)
	}
	return h
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type noThrottle struct{}

func (noThrottle) Wait(ctx context.Context) error { return ctx.Err() }

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
