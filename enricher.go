package unfurl

import "context"

// EnrichRequest is the input to an enrichment service.
type EnrichRequest struct {
	URL string

	// HTML is the page body when one was fetched, otherwise empty.
	HTML string
}

// Enricher is an optional third-party service that produces preview
// metadata when no other strategy could. Failures are reported as
// EUNAVAILABLE and never reach callers of the engine.
type Enricher interface {
	Enrich(ctx context.Context, req EnrichRequest) (*PageMetadata, error)
}

// VideoExtractor runs the platform-specific pipeline for video URLs.
type VideoExtractor interface {
	// ExtractVideo returns whatever metadata the pipeline could gather,
	// recording each strategy it tried in attempt.
	ExtractVideo(ctx context.Context, pageURL string, attempt *ExtractionAttempt) PageMetadata
}
