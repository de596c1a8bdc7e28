package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "unfurl"

// Compile-time interface verification.
var _ unfurl.LinkService = (*LinkService)(nil)

// LinkService implements unfurl.LinkService on Redis. Each record is a JSON
// string under its code. A sorted set per normalized URL holds its codes by
// creation time, and a global sorted set indexes codes by update time.
type LinkService struct {
	client *redis.Client
	prefix string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewLinkService creates a new LinkService. An empty prefix selects
// DefaultPrefix.
func NewLinkService(client *redis.Client, prefix string) *LinkService {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &LinkService{client: client, prefix: prefix, Now: time.Now}
}

func (s *LinkService) linkKey(code string) string { return s.prefix + ":link:" + code }
func (s *LinkService) urlKey(u string) string     { return s.prefix + ":urls:" + u }
func (s *LinkService) indexKey() string           { return s.prefix + ":links" }

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// CreateLink stores a new link.
func (s *LinkService) CreateLink(ctx context.Context, link *unfurl.LinkRecord) error {
	if err := link.Validate(); err != nil {
		return err
	}
	if link.NormalizedURL == "" {
		normalized, err := unfurl.NormalizeURL(link.OriginalURL)
		if err != nil {
			return err
		}
		link.NormalizedURL = normalized
	}

	now := s.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.LastUpdatedAt.IsZero() {
		link.LastUpdatedAt = now
	}
	link.Metadata.Normalize()

	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.linkKey(link.Code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store link: %w", err)
	}
	if !ok {
		return unfurl.Errorf(unfurl.EINVALID, "link code %q already exists", link.Code)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.urlKey(link.NormalizedURL), redis.Z{Score: score(link.CreatedAt), Member: link.Code})
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: score(link.LastUpdatedAt), Member: link.Code})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index link: %w", err)
	}
	return nil
}

// FindLinkByCode retrieves a link by its short code.
func (s *LinkService) FindLinkByCode(ctx context.Context, code string) (*unfurl.LinkRecord, error) {
	data, err := s.client.Get(ctx, s.linkKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	var link unfurl.LinkRecord
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}
	return &link, nil
}

// FindLinkByURL retrieves the earliest created link for normalizedURL.
func (s *LinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error) {
	codes, err := s.client.ZRange(ctx, s.urlKey(normalizedURL), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link codes: %w", err)
	}
	for _, code := range codes {
		link, err := s.FindLinkByCode(ctx, code)
		if unfurl.ErrorCode(err) == unfurl.ENOTFOUND {
			continue
		}
		return link, err
	}
	return nil, unfurl.Errorf(unfurl.ENOTFOUND, "no link for %s", normalizedURL)
}

// FindLinks retrieves links matching the filter, least recently updated
// first.
func (s *LinkService) FindLinks(ctx context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
	opt := &redis.ZRangeBy{Min: "-inf", Max: "+inf"}
	if filter.UpdatedBefore != nil {
		opt.Max = "(" + strconv.FormatInt(filter.UpdatedBefore.UnixMilli(), 10)
	}
	if filter.Limit > 0 || filter.Offset > 0 {
		opt.Offset = int64(filter.Offset)
		opt.Count = -1
		if filter.Limit > 0 {
			opt.Count = int64(filter.Limit)
		}
	}

	codes, err := s.client.ZRangeByScore(ctx, s.indexKey(), opt).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	links := make([]*unfurl.LinkRecord, 0, len(codes))
	for _, code := range codes {
		link, err := s.FindLinkByCode(ctx, code)
		if unfurl.ErrorCode(err) == unfurl.ENOTFOUND {
			continue
		}
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// maxTxRetries bounds the attempts of an optimistic transaction.
const maxTxRetries = 5

// UpdateLinkMetadata replaces the stored metadata and bumps LastUpdatedAt.
// The record key is watched, so an update never resurrects a link deleted
// concurrently.
func (s *LinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
	metadata.Normalize()
	key := s.linkKey(code)

	var link unfurl.LinkRecord
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
		}
		if err != nil {
			return fmt.Errorf("failed to get link: %w", err)
		}
		if err := json.Unmarshal(data, &link); err != nil {
			return fmt.Errorf("failed to unmarshal link: %w", err)
		}

		link.Metadata = metadata
		link.LastUpdatedAt = s.Now().UTC()
		data, err = json.Marshal(&link)
		if err != nil {
			return fmt.Errorf("failed to marshal link: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, redis.SetArgs{Mode: "XX"})
			pipe.ZAddXX(ctx, s.indexKey(), redis.Z{Score: score(link.LastUpdatedAt), Member: code})
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
		}
		if err != nil {
			if unfurl.ErrorCode(err) == unfurl.ENOTFOUND {
				return nil, err
			}
			return nil, fmt.Errorf("failed to update link: %w", err)
		}
		return &link, nil
	}
	return nil, fmt.Errorf("failed to update link %q: too much contention", code)
}

// DeleteLink permanently removes a link. Other links for the same URL stay
// reachable through FindLinkByURL.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	link, err := s.FindLinkByCode(ctx, code)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.linkKey(code))
		pipe.ZRem(ctx, s.indexKey(), code)
		pipe.ZRem(ctx, s.urlKey(link.NormalizedURL), code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}
