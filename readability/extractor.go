// Package readability implements main-content metadata extraction for
// unfurl using go-readability.
package readability

import (
	"net/url"
	"strings"

	"github.com/fwojciec/unfurl"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements unfurl.ContentExtractor at compile time.
var _ unfurl.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-readability to derive preview fields from a page's
// readable article.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractContent returns the article title, excerpt, lead image and site
// icon. Image and favicon are resolved against pageURL.
func (e *Extractor) ExtractContent(rawHTML, pageURL string) (*unfurl.PageMetadata, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, unfurl.Errorf(unfurl.EPARSE, "empty HTML input")
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), base)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "readability: %v", err)
	}

	m := &unfurl.PageMetadata{
		Title:       article.Title,
		Description: article.Excerpt,
		Image:       unfurl.ResolveURL(pageURL, article.Image),
		Favicon:     unfurl.ResolveURL(pageURL, article.Favicon),
	}
	m.Normalize()
	return m, nil
}
