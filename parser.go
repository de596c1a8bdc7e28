package unfurl

// Document is what the HTML parser learned about a page.
type Document struct {
	Metadata PageMetadata

	// FaviconFound is false when Metadata.Favicon is the /favicon.ico
	// default rather than a declared icon.
	FaviconFound bool

	// AMPURL is the absolute URL of the page's AMP mirror, if declared.
	AMPURL string

	// OEmbedURL is the absolute URL of a discoverable oEmbed endpoint.
	OEmbedURL string

	// OEmbedFormat is "json" or "xml".
	OEmbedFormat string
}

// Parser extracts preview metadata from an HTML document.
type Parser interface {
	// Parse reads html fetched from pageURL. Relative URLs resolve against
	// pageURL. Returns EPARSE for empty input.
	Parse(html, pageURL string) (*Document, error)
}
