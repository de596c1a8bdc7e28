package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// favicon returns the best declared icon, or an empty string when the page
// declares none. Preference: rel=icon (PNG or SVG first), shortcut icon,
// Apple touch icons, then msapplication-TileImage.
func favicon(doc *goquery.Document, meta metaIndex, base *url.URL) string {
	var icons, preferred, shortcut, touch []string

	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		rels := strings.Fields(strings.ToLower(s.AttrOr("rel", "")))
		switch {
		case hasToken(rels, "shortcut") && hasToken(rels, "icon"):
			shortcut = append(shortcut, href)
		case hasToken(rels, "icon"):
			switch strings.ToLower(s.AttrOr("type", "")) {
			case "image/png", "image/svg+xml":
				preferred = append(preferred, href)
			default:
				icons = append(icons, href)
			}
		case hasToken(rels, "apple-touch-icon"), hasToken(rels, "apple-touch-icon-precomposed"):
			touch = append(touch, href)
		}
	})

	var candidates []string
	candidates = append(candidates, preferred...)
	candidates = append(candidates, icons...)
	candidates = append(candidates, shortcut...)
	candidates = append(candidates, touch...)
	candidates = append(candidates, meta.get("msapplication-tileimage"))

	return firstResolved(base, candidates)
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
