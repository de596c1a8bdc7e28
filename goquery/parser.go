// Package goquery implements HTML parsing for unfurl using goquery.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/unfurl"
)

// Ensure Parser implements unfurl.Parser at compile time.
var _ unfurl.Parser = (*Parser)(nil)

// Parser extracts preview metadata from HTML using Open Graph, Twitter Card,
// standard meta tags, microdata and JSON-LD structured data.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts metadata from html fetched from pageURL.
//
// Tag sources are consulted in priority order and the first non-empty
// candidate wins. JSON-LD only fills fields the tag pass left absent.
// Image and favicon candidates are resolved against the page URL and
// dropped when they cannot be resolved to an absolute http(s) URL.
func (p *Parser) Parse(html, pageURL string) (*unfurl.Document, error) {
	if strings.TrimSpace(html) == "" {
		return nil, unfurl.Errorf(unfurl.EPARSE, "empty HTML input")
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return nil, unfurl.Errorf(unfurl.EINVALID, "invalid page URL %q", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EPARSE, "failed to parse HTML: %v", err)
	}

	// A <base href> changes how every relative reference resolves.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b := resolveURL(base, href); b != "" {
			base, _ = url.Parse(b)
		}
	}

	meta := indexMeta(doc)
	out := &unfurl.Document{}
	m := &out.Metadata

	m.Title = firstNonEmpty(
		meta.get("og:title"),
		meta.get("twitter:title"),
		doc.Find("head title").First().Text(),
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
	m.Description = firstNonEmpty(
		meta.get("og:description"),
		meta.get("description"),
		meta.get("twitter:description"),
		meta.get("itemprop:description"),
		doc.Find("[itemprop=description]").Not("meta").First().Text(),
	)
	m.Image = firstResolved(base, imageCandidates(doc, meta))
	m.Favicon = favicon(doc, meta, base)
	out.FaviconFound = m.Favicon != ""

	fillFromStructuredData(doc, base, m)

	if m.Favicon == "" {
		m.Favicon = unfurl.DefaultFavicon(base.String())
	}

	if href, ok := doc.Find("link[rel~=amphtml]").First().Attr("href"); ok {
		out.AMPURL = resolveURL(base, href)
	}
	out.OEmbedURL, out.OEmbedFormat = oembedLink(doc, base)

	m.Normalize()
	return out, nil
}

// metaIndex maps lower-cased meta keys to the first non-empty content.
// Microdata keys are prefixed with "itemprop:".
type metaIndex map[string]string

func indexMeta(doc *goquery.Document) metaIndex {
	idx := make(metaIndex)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key == "" {
				continue
			}
			if attr == "itemprop" {
				key = "itemprop:" + key
			}
			if _, ok := idx[key]; !ok {
				idx[key] = content
			}
		}
	})
	return idx
}

func (idx metaIndex) get(key string) string {
	return idx[key]
}

func imageCandidates(doc *goquery.Document, meta metaIndex) []string {
	candidates := []string{
		meta.get("og:image"),
		meta.get("og:image:url"),
		meta.get("og:image:secure_url"),
		meta.get("twitter:image"),
		meta.get("twitter:image:src"),
		doc.Find("link[rel~=image_src]").First().AttrOr("href", ""),
		meta.get("itemprop:image"),
	}
	doc.Find("[itemprop=image]").Not("meta").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "href", "content"} {
			if v := s.AttrOr(attr, ""); v != "" {
				candidates = append(candidates, v)
				return
			}
		}
	})
	return candidates
}

func oembedLink(doc *goquery.Document, base *url.URL) (string, string) {
	var href, format string
	doc.Find("link[rel~=alternate][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		switch strings.ToLower(s.AttrOr("type", "")) {
		case "application/json+oembed":
			format = "json"
		case "text/xml+oembed", "application/xml+oembed":
			format = "xml"
		default:
			return true
		}
		href = resolveURL(base, s.AttrOr("href", ""))
		return href == ""
	})
	if href == "" {
		return "", ""
	}
	return href, format
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = unfurl.CleanText(v); v != "" {
			return v
		}
	}
	return ""
}

// firstResolved returns the first de-duplicated candidate that resolves to
// an absolute http(s) URL.
func firstResolved(base *url.URL, candidates []string) string {
	seen := make(map[string]bool)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		if resolved := resolveURL(base, c); resolved != "" {
			return resolved
		}
	}
	return ""
}
