package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/boe-sumario-crawler/internal/extract"
	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
	"github.com/JakeFAU/boe-sumario-crawler/internal/metrics"
)

// AttachOptions bounds text attachment. Zero values mean no limit.
type AttachOptions struct {
	// MaxItems stops attachment after this many items received text.
	MaxItems int
	// Truncate keeps at most this many characters, followed by
	// TruncationMarker.
	Truncate int
}

// AttachText fills Text for items in order, in place, and returns the slice.
// An item whose text cannot be extracted keeps an empty Text. The item
// throttle is waited on after every attempt. The only error returned is
// context cancellation.
func (p *Pipeline) AttachText(ctx context.Context, items []gazette.Item, opts AttachOptions) ([]gazette.Item, error) {
	start := p.clock.Now()
	attached := 0
	for i := range items {
		if opts.MaxItems > 0 && attached >= opts.MaxItems {
			break
		}
		if err := ctx.Err(); err != nil {
			return items, fmt.Errorf("attach text: %w", err)
		}

		it := &items[i]
		res, err := p.extractor.Extract(ctx, *it)
		if err != nil {
			metrics.ObserveExtraction(extract.SourceNone)
			p.logger.Warn("Empty text",
				zap.String("id", describe(*it)),
				zap.Error(err),
			)
		} else {
			it.Text = Truncate(res.Text, opts.Truncate)
			attached++
			metrics.ObserveExtraction(res.Source)

			rate := docsPerMinute(attached, p.clock.Now().Sub(start).Minutes())
			metrics.SetDocsPerMinute(rate)
			p.logger.Info("Text attached",
				zap.String("id", it.ID),
				zap.String("source", res.Source),
				zap.Int("chars", len([]rune(it.Text))),
				zap.Float64("docs_per_min", rate),
			)
		}

		if err := p.itemThrottle.Wait(ctx); err != nil {
			return items, fmt.Errorf("attach text: %w", err)
		}
	}
	return items, nil
}

// Truncate cuts s to n characters and appends TruncationMarker. Text of at
// most n characters, or any text when n is not positive, is returned as is.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + TruncationMarker
}

func docsPerMinute(done int, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return float64(done) / minutes
}

func describe(it gazette.Item) string {
	switch {
	case it.ID != "":
		return it.ID
	case it.HTMLURL != "":
		return it.HTMLURL
	default:
		return it.XMLURL
	}
}
