package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/unfurl"
)

// Ensure LoggingContentExtractor implements unfurl.ContentExtractor.
var _ unfurl.ContentExtractor = (*LoggingContentExtractor)(nil)

// LoggingContentExtractor wraps a ContentExtractor with logging.
type LoggingContentExtractor struct {
	next   unfurl.ContentExtractor
	logger *slog.Logger
}

// NewLoggingContentExtractor creates a new LoggingContentExtractor.
func NewLoggingContentExtractor(next unfurl.ContentExtractor, logger *slog.Logger) *LoggingContentExtractor {
	return &LoggingContentExtractor{next: next, logger: logger}
}

// ExtractContent logs the extracted fields and delegates to the wrapped
// extractor.
func (e *LoggingContentExtractor) ExtractContent(html, pageURL string) (m *unfurl.PageMetadata, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"url", pageURL,
			"html_bytes", len(html),
			"duration", time.Since(begin),
		}
		if m != nil {
			attrs = append(attrs, "missing", m.Missing())
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		e.logger.Debug("content extraction", attrs...)
	}(time.Now())
	return e.next.ExtractContent(html, pageURL)
}
