package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/unfurl"
)

// Ensure LoggingLinkService implements unfurl.LinkService.
var _ unfurl.LinkService = (*LoggingLinkService)(nil)

// LoggingLinkService wraps a LinkService with logging. Lookups log at debug
// level and writes at info level.
type LoggingLinkService struct {
	next   unfurl.LinkService
	logger *slog.Logger
}

// NewLoggingLinkService creates a new LoggingLinkService.
func NewLoggingLinkService(next unfurl.LinkService, logger *slog.Logger) *LoggingLinkService {
	return &LoggingLinkService{next: next, logger: logger}
}

func (s *LoggingLinkService) CreateLink(ctx context.Context, link *unfurl.LinkRecord) (err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelInfo, "create link", begin, err, "code", link.Code, "url", link.OriginalURL)
	}(time.Now())
	return s.next.CreateLink(ctx, link)
}

func (s *LoggingLinkService) FindLinkByCode(ctx context.Context, code string) (link *unfurl.LinkRecord, err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelDebug, "find link", begin, err, "code", code)
	}(time.Now())
	return s.next.FindLinkByCode(ctx, code)
}

func (s *LoggingLinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (link *unfurl.LinkRecord, err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelDebug, "find link by url", begin, err, "url", normalizedURL)
	}(time.Now())
	return s.next.FindLinkByURL(ctx, normalizedURL)
}

func (s *LoggingLinkService) FindLinks(ctx context.Context, filter unfurl.LinkFilter) (links []*unfurl.LinkRecord, err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelDebug, "find links", begin, err,
			"offset", filter.Offset,
			"limit", filter.Limit,
			"count", len(links),
		)
	}(time.Now())
	return s.next.FindLinks(ctx, filter)
}

func (s *LoggingLinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (link *unfurl.LinkRecord, err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelInfo, "update link", begin, err,
			"code", code,
			"weak", unfurl.IsWeak(&metadata),
		)
	}(time.Now())
	return s.next.UpdateLinkMetadata(ctx, code, metadata)
}

func (s *LoggingLinkService) DeleteLink(ctx context.Context, code string) (err error) {
	defer func(begin time.Time) {
		s.log(slog.LevelInfo, "delete link", begin, err, "code", code)
	}(time.Now())
	return s.next.DeleteLink(ctx, code)
}

func (s *LoggingLinkService) log(level slog.Level, msg string, begin time.Time, err error, attrs ...any) {
	attrs = append(attrs, "duration", time.Since(begin))
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	s.logger.Log(context.Background(), level, msg, attrs...)
}
