// Package slog provides logging decorators for unfurl services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/unfurl"
)

// Ensure LoggingFetcher implements unfurl.Fetcher.
var _ unfurl.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   unfurl.Fetcher
	logger *slog.Logger
	name   string
}

// NewLoggingFetcher creates a new LoggingFetcher. name distinguishes
// fetchers in the log, such as "primary" and "render".
func NewLoggingFetcher(next unfurl.Fetcher, logger *slog.Logger, name string) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger, name: name}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (resp *unfurl.Response, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"fetcher", f.name,
			"url", url,
			"duration", time.Since(begin),
		}
		if resp != nil {
			attrs = append(attrs,
				"status", resp.StatusCode,
				"bytes", len(resp.Body),
				"effective_url", resp.EffectiveURL,
			)
		}
		if err != nil {
			attrs = append(attrs, "err", err)
		}
		f.logger.Debug("fetch", attrs...)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
