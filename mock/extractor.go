package mock

import (
	"context"

	"github.com/fwojciec/unfurl"
)

var _ unfurl.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of unfurl.ContentExtractor.
type ContentExtractor struct {
	ExtractContentFn func(html, pageURL string) (*unfurl.PageMetadata, error)
}

func (e *ContentExtractor) ExtractContent(html, pageURL string) (*unfurl.PageMetadata, error) {
	return e.ExtractContentFn(html, pageURL)
}

var _ unfurl.VideoExtractor = (*VideoExtractor)(nil)

// VideoExtractor is a mock implementation of unfurl.VideoExtractor.
type VideoExtractor struct {
	ExtractVideoFn func(ctx context.Context, pageURL string, attempt *unfurl.ExtractionAttempt) unfurl.PageMetadata
}

func (e *VideoExtractor) ExtractVideo(ctx context.Context, pageURL string, attempt *unfurl.ExtractionAttempt) unfurl.PageMetadata {
	return e.ExtractVideoFn(ctx, pageURL, attempt)
}
