package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/unfurl"
)

// Ensure LoggingEnricher implements unfurl.Enricher.
var _ unfurl.Enricher = (*LoggingEnricher)(nil)

// LoggingEnricher wraps an Enricher with logging.
type LoggingEnricher struct {
	next   unfurl.Enricher
	logger *slog.Logger
	name   string
}

// NewLoggingEnricher creates a new LoggingEnricher.
func NewLoggingEnricher(next unfurl.Enricher, logger *slog.Logger, name string) *LoggingEnricher {
	return &LoggingEnricher{next: next, logger: logger, name: name}
}

// Enrich logs the request outcome and delegates to the wrapped enricher.
func (e *LoggingEnricher) Enrich(ctx context.Context, req unfurl.EnrichRequest) (m *unfurl.PageMetadata, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"enricher", e.name,
			"url", req.URL,
			"html_bytes", len(req.HTML),
			"duration", time.Since(begin),
		}
		if m != nil {
			attrs = append(attrs, "title", m.Title)
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		e.logger.Debug("enrich", attrs...)
	}(time.Now())
	return e.next.Enrich(ctx, req)
}
