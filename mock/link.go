package mock

import (
	"context"

	"github.com/fwojciec/unfurl"
)

var _ unfurl.LinkService = (*LinkService)(nil)

// LinkService is a mock implementation of unfurl.LinkService.
type LinkService struct {
	CreateLinkFn         func(ctx context.Context, link *unfurl.LinkRecord) error
	FindLinkByCodeFn     func(ctx context.Context, code string) (*unfurl.LinkRecord, error)
	FindLinkByURLFn      func(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error)
	FindLinksFn          func(ctx context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error)
	UpdateLinkMetadataFn func(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error)
	DeleteLinkFn         func(ctx context.Context, code string) error
}

func (s *LinkService) CreateLink(ctx context.Context, link *unfurl.LinkRecord) error {
	return s.CreateLinkFn(ctx, link)
}

func (s *LinkService) FindLinkByCode(ctx context.Context, code string) (*unfurl.LinkRecord, error) {
	return s.FindLinkByCodeFn(ctx, code)
}

func (s *LinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error) {
	return s.FindLinkByURLFn(ctx, normalizedURL)
}

func (s *LinkService) FindLinks(ctx context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
	return s.FindLinksFn(ctx, filter)
}

func (s *LinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
	return s.UpdateLinkMetadataFn(ctx, code, metadata)
}

func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	return s.DeleteLinkFn(ctx, code)
}
