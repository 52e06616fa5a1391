package sink

import (
	"context"
	"fmt"

	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

// Multi writes the same items to every sink in order and returns the
// locations written. It stops at the first failure.
func Multi(ctx context.Context, items []gazette.Item, sinks ...Sink) ([]string, error) {
	locations := make([]string, 0, len(sinks))
	for _, s := range sinks {
		loc, err := s.Write(ctx, items)
		if err != nil {
			return locations, fmt.Errorf("write sink: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
