// Package trafilatura implements main-content metadata extraction for
// unfurl using go-trafilatura.
package trafilatura

import (
	"net/url"
	"strings"

	"github.com/fwojciec/unfurl"
	"github.com/markusmobius/go-trafilatura"
)

// Ensure Extractor implements unfurl.ContentExtractor at compile time.
var _ unfurl.ContentExtractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to derive preview fields from a page's
// main content.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractContent returns the title, description and image trafilatura
// finds for the page. When the page has no description metadata, the start
// of the main text is used instead.
func (e *Extractor) ExtractContent(rawHTML, pageURL string) (*unfurl.PageMetadata, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, unfurl.Errorf(unfurl.EPARSE, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
	}
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "trafilatura: %v", err)
	}

	m := &unfurl.PageMetadata{
		Title:       result.Metadata.Title,
		Description: result.Metadata.Description,
		Image:       unfurl.ResolveURL(pageURL, result.Metadata.Image),
	}
	if m.Description == "" {
		m.Description = result.ContentText
	}
	m.Normalize()
	return m, nil
}
