package unfurl

import (
	"context"
	"time"
)

// LinkRecord is a short link together with its stored preview metadata.
type LinkRecord struct {
	Code          string       `json:"code"`
	OriginalURL   string       `json:"originalUrl"`
	NormalizedURL string       `json:"normalizedUrl"`
	Metadata      PageMetadata `json:"metadata"`
	LastUpdatedAt time.Time    `json:"lastUpdatedAt"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Validate returns an error if the record contains invalid fields.
func (r *LinkRecord) Validate() error {
	if r.Code == "" {
		return Errorf(EINVALID, "link code required")
	}
	if r.OriginalURL == "" {
		return Errorf(EINVALID, "link URL required")
	}
	return nil
}

// LinkService represents a service for managing stored links.
type LinkService interface {
	// CreateLink stores a new link. NormalizedURL is derived from
	// OriginalURL when empty. Returns EINVALID for a duplicate code.
	CreateLink(ctx context.Context, link *LinkRecord) error

	// FindLinkByCode retrieves a link by its short code.
	// Returns ENOTFOUND if the link does not exist.
	FindLinkByCode(ctx context.Context, code string) (*LinkRecord, error)

	// FindLinkByURL retrieves the link registered for a normalized URL.
	// Returns ENOTFOUND if no link points at the URL.
	FindLinkByURL(ctx context.Context, normalizedURL string) (*LinkRecord, error)

	// FindLinks retrieves links matching the filter.
	FindLinks(ctx context.Context, filter LinkFilter) ([]*LinkRecord, error)

	// UpdateLinkMetadata replaces the stored metadata and bumps
	// LastUpdatedAt. Concurrent updates are last-writer-wins.
	// Returns ENOTFOUND if the link does not exist.
	UpdateLinkMetadata(ctx context.Context, code string, metadata PageMetadata) (*LinkRecord, error)

	// DeleteLink permanently removes a link.
	// Returns ENOTFOUND if the link does not exist.
	DeleteLink(ctx context.Context, code string) error
}

// LinkFilter represents a filter for FindLinks.
type LinkFilter struct {
	// UpdatedBefore selects links whose metadata is older than the time.
	UpdatedBefore *time.Time `json:"updatedBefore"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
