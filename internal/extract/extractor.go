// Package extract resolves a gazette item to the plain text of its document.
//
// Sources are tried as an ordered list of strategies: the structured XML
// document first, the rendered HTML page second. The first strategy that
// yields non-empty text wins; later strategies are not fetched.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/fetcher"
	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
)

// ErrNoText is returned when no strategy produced text for an item.
var ErrNoText = errors.New("no text extracted")

// Source names reported in Result.Source.
const (
	SourceXML  = "xml"
	SourceHTML = "html"
	// SourceNone labels attempts where no strategy produced text.
	SourceNone = "none"
)

// Strategy is one way of turning an item into text.
type Strategy struct {
	Name string
	// URL picks the locator this strategy fetches from the item.
	URL func(gazette.Item) string
	// Headers are sent with the fetch.
	Headers http.Header
	// Parse turns a fetched body into normalized text.
	Parse func(body []byte, it gazette.Item) (string, error)
}

// Result is the text attached to an item and the strategy that produced it.
type Result struct {
	Text   string
	Source string
	URL    string
}

// Extractor runs strategies in order against a Fetcher.
type Extractor struct {
	fetcher    fetcher.Fetcher
	strategies []Strategy
	logger     *zap.Logger
}

// New builds an Extractor. With no strategies, DefaultStrategies is used
// with an empty User-Agent.
func New(f fetcher.Fetcher, logger *zap.Logger, strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies("")
	}
	return &Extractor{
		fetcher:    f,
		strategies: strategies,
		logger:     logging.OrNop(logger),
	}
}

// DefaultStrategies returns the XML-then-HTML chain. The XML fetch asks for
// application/xml; the page fetch only sends the User-Agent.
func DefaultStrategies(userAgent string) []Strategy {
	xmlHeaders := http.Header{}
	xmlHeaders.Set("Accept", "application/xml")
	pageHeaders := http.Header{}
	if userAgent != "" {
		xmlHeaders.Set("User-Agent", userAgent)
		pageHeaders.Set("User-Agent", userAgent)
	}
	return []Strategy{
		{
			Name:    SourceXML,
			URL:     func(it gazette.Item) string { return it.XMLURL },
			Headers: xmlHeaders,
			Parse: func(body []byte, _ gazette.Item) (string, error) {
				return FromStructured(body)
			},
		},
		{
			Name:    SourceHTML,
			URL:     func(it gazette.Item) string { return it.HTMLURL },
			Headers: pageHeaders,
			Parse: func(body []byte, it gazette.Item) (string, error) {
				return FromPage(body, it.Title)
			},
		},
	}
}

// Extract tries each strategy whose URL is an http(s) URL and returns the
// first non-empty text. Fetch and parse failures only skip that strategy.
func (e *Extractor) Extract(ctx context.Context, it gazette.Item) (Result, error) {
	for _, s := range e.strategies {
		rawURL := s.URL(it)
		if !fetcher.IsHTTPURL(rawURL) {
			continue
		}
		resp, err := e.fetcher.Fetch(ctx, rawURL, s.Headers)
		if err != nil {
			e.logger.Debug("Document unavailable",
				zap.String("id", it.ID),
				zap.String("source", s.Name),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		text, err := s.Parse(resp.Body, it)
		if err != nil {
			e.logger.Warn("Document parse failed",
				zap.String("id", it.ID),
				zap.String("source", s.Name),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		if text != "" {
			return Result{Text: text, Source: s.Name, URL: rawURL}, nil
		}
	}
	return Result{}, fmt.Errorf("%w for %s", ErrNoText, it.ID)
}
