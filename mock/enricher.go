package mock

import (
	"context"

	"github.com/fwojciec/unfurl"
)

var _ unfurl.Enricher = (*Enricher)(nil)

// Enricher is a mock implementation of unfurl.Enricher.
type Enricher struct {
	EnrichFn func(ctx context.Context, req unfurl.EnrichRequest) (*unfurl.PageMetadata, error)
}

func (e *Enricher) Enrich(ctx context.Context, req unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
	return e.EnrichFn(ctx, req)
}
