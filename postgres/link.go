package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key.
const uniqueViolation = "23505"

// Compile-time interface verification.
var _ unfurl.LinkService = (*LinkService)(nil)

// LinkService implements unfurl.LinkService using PostgreSQL.
type LinkService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewLinkService creates a new LinkService.
func NewLinkService(db *DB) *LinkService {
	return &LinkService{db: db, Now: time.Now}
}

const linkColumns = `code, original_url, normalized_url, metadata, last_updated_at, created_at`

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

	metadata, err := json.Marshal(link.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO links (id, code, original_url, normalized_url, metadata, last_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), link.Code, link.OriginalURL, link.NormalizedURL, metadata, link.LastUpdatedAt, link.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return unfurl.Errorf(unfurl.EINVALID, "link code %q already exists", link.Code)
	}
	return err
}

// FindLinkByCode retrieves a link by its short code.
func (s *LinkService) FindLinkByCode(ctx context.Context, code string) (*unfurl.LinkRecord, error) {
	row := s.db.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = $1`, code)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
	}
	return link, err
}

// FindLinkByURL retrieves the oldest link registered for normalizedURL.
func (s *LinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error) {
	row := s.db.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE normalized_url = $1
		ORDER BY created_at ASC, code ASC
		LIMIT 1
	`, normalizedURL)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, unfurl.Errorf(unfurl.ENOTFOUND, "no link for %s", normalizedURL)
	}
	return link, err
}

// FindLinks retrieves links matching the filter, least recently updated
// first.
func (s *LinkService) FindLinks(ctx context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + linkColumns + " FROM links WHERE 1=1")

	if filter.UpdatedBefore != nil {
		args = append(args, *filter.UpdatedBefore)
		fmt.Fprintf(&query, " AND last_updated_at < $%d", len(args))
	}

	query.WriteString(" ORDER BY last_updated_at ASC, code ASC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&query, " OFFSET $%d", len(args))
	}

	rows, err := s.db.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*unfurl.LinkRecord
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// UpdateLinkMetadata replaces the stored metadata and bumps LastUpdatedAt.
func (s *LinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
	metadata.Normalize()
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := s.db.db.QueryRowContext(ctx, `
		UPDATE links SET metadata = $1, last_updated_at = $2
		WHERE code = $3
		RETURNING `+linkColumns,
		data, s.Now().UTC(), code)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
	}
	return link, err
}

// DeleteLink permanently removes a link.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	result, err := s.db.db.ExecContext(ctx, "DELETE FROM links WHERE code = $1", code)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*unfurl.LinkRecord, error) {
	var link unfurl.LinkRecord
	var metadata []byte

	if err := row.Scan(&link.Code, &link.OriginalURL, &link.NormalizedURL, &metadata,
		&link.LastUpdatedAt, &link.CreatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &link.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	link.LastUpdatedAt = link.LastUpdatedAt.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}
