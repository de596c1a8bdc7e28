package unfurl

// ContentExtractor derives preview fields from a page's main content when
// its metadata tags are missing.
type ContentExtractor interface {
	// ExtractContent processes raw HTML fetched from pageURL. Title and
	// description come from the readable article; image and favicon are
	// absolute when present.
	ExtractContent(html, pageURL string) (*PageMetadata, error)
}
