// Package lru provides an in-process read-through cache in front of a link
// store.
package lru

import (
	"context"

	"github.com/fwojciec/unfurl"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of records kept when no size is given.
const DefaultSize = 1024

// Compile-time interface verification.
var _ unfurl.LinkService = (*LinkService)(nil)

// LinkService caches link lookups by code. Writes go through to the
// underlying store and refresh the cached entry.
type LinkService struct {
	next  unfurl.LinkService
	cache *lru.Cache[string, unfurl.LinkRecord]
}

// NewLinkService wraps next with a cache holding up to size records.
func NewLinkService(next unfurl.LinkService, size int) (*LinkService, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, unfurl.LinkRecord](size)
	if err != nil {
		return nil, err
	}
	return &LinkService{next: next, cache: cache}, nil
}

// Len returns the number of cached records.
func (s *LinkService) Len() int {
	return s.cache.Len()
}

func (s *LinkService) CreateLink(ctx context.Context, link *unfurl.LinkRecord) error {
	if err := s.next.CreateLink(ctx, link); err != nil {
		return err
	}
	s.cache.Add(link.Code, *link)
	return nil
}

func (s *LinkService) FindLinkByCode(ctx context.Context, code string) (*unfurl.LinkRecord, error) {
	if link, ok := s.cache.Get(code); ok {
		return &link, nil
	}
	link, err := s.next.FindLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cache.Add(code, *link)
	return link, nil
}

func (s *LinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error) {
	return s.next.FindLinkByURL(ctx, normalizedURL)
}

func (s *LinkService) FindLinks(ctx context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
	return s.next.FindLinks(ctx, filter)
}

func (s *LinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
	link, err := s.next.UpdateLinkMetadata(ctx, code, metadata)
	if err != nil {
		s.cache.Remove(code)
		return nil, err
	}
	s.cache.Add(code, *link)
	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	s.cache.Remove(code)
	return s.next.DeleteLink(ctx, code)
}
