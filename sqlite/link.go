package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ unfurl.LinkService = (*LinkService)(nil)

// LinkService implements unfurl.LinkService using SQLite.
type LinkService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewLinkService creates a new LinkService.
func NewLinkService(db *DB) *LinkService {
	return &LinkService{db: db, Now: time.Now}
}

const linkColumns = `code, original_url, normalized_url, title, description, image, favicon, last_updated_at, created_at`

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

	if _, err := s.FindLinkByCode(ctx, link.Code); err == nil {
		return unfurl.Errorf(unfurl.EINVALID, "link code %q already exists", link.Code)
	} else if unfurl.ErrorCode(err) != unfurl.ENOTFOUND {
		return err
	}

	now := s.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.LastUpdatedAt.IsZero() {
		link.LastUpdatedAt = now
	}
	link.Metadata.Normalize()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, code, original_url, normalized_url, title, description, image, favicon, metadata_hash, last_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), link.Code, link.OriginalURL, link.NormalizedURL,
		link.Metadata.Title, link.Metadata.Description, link.Metadata.Image, link.Metadata.Favicon,
		hashMetadata(link.Metadata), formatTime(link.LastUpdatedAt), formatTime(link.CreatedAt))

	return err
}

// FindLinkByCode retrieves a link by its short code.
func (s *LinkService) FindLinkByCode(ctx context.Context, code string) (*unfurl.LinkRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = ?`, code)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
	}
	return link, err
}

// FindLinkByURL retrieves the oldest link registered for normalizedURL.
func (s *LinkService) FindLinkByURL(ctx context.Context, normalizedURL string) (*unfurl.LinkRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+linkColumns+` FROM links
		WHERE normalized_url = ?
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
		query.WriteString(" AND last_updated_at < ?")
		args = append(args, formatTime(*filter.UpdatedBefore))
	}

	query.WriteString(" ORDER BY last_updated_at ASC, code ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
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

// UpdateLinkMetadata replaces the stored metadata and bumps
// LastUpdatedAt. Unchanged metadata only touches the timestamp.
func (s *LinkService) UpdateLinkMetadata(ctx context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
	metadata.Normalize()
	hash := hashMetadata(metadata)
	now := s.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE links SET last_updated_at = ? WHERE code = ? AND metadata_hash = ?
	`, formatTime(now), code, hash)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		result, err = s.db.ExecContext(ctx, `
			UPDATE links
			SET title = ?, description = ?, image = ?, favicon = ?, metadata_hash = ?, last_updated_at = ?
			WHERE code = ?
		`, metadata.Title, metadata.Description, metadata.Image, metadata.Favicon, hash, formatTime(now), code)
		if err != nil {
			return nil, err
		}
		if rows, err = result.RowsAffected(); err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
		}
	}

	return s.FindLinkByCode(ctx, code)
}

// DeleteLink permanently removes a link.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM links WHERE code = ?", code)
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
	var lastUpdatedAt, createdAt string

	if err := row.Scan(&link.Code, &link.OriginalURL, &link.NormalizedURL,
		&link.Metadata.Title, &link.Metadata.Description, &link.Metadata.Image, &link.Metadata.Favicon,
		&lastUpdatedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if link.LastUpdatedAt, err = parseRFC3339(lastUpdatedAt, "last_updated_at"); err != nil {
		return nil, err
	}
	if link.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &link, nil
}
