package unfurl

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinDescriptionLength is the shortest description, in runes, that is not
// considered a stub.
const MinDescriptionLength = 20

var (
	placeholderTitleRe = regexp.MustCompile(`(?i)^page from \S+$`)
	punctuationOnlyRe  = regexp.MustCompile(`^[\p{P}\p{S}\s]+$`)
	boilerplateRe      = regexp.MustCompile(`(?i)enjoy the videos|click here|check out this|like and subscribe|this site uses cookies|javascript is (?:required|disabled)|enable javascript`)
	iconProxyRe        = regexp.MustCompile(`(?i)google\.com/s2/favicons|gstatic\.com/favicon|icons\.duckduckgo\.com/ip[23]/|favicon\.yandex\.net`)
)

// genericTitles are titles served by interstitials, shells and error pages.
var genericTitles = map[string]bool{
	"untitled":             true,
	"home":                 true,
	"loading":              true,
	"loading...":           true,
	"just a moment...":     true,
	"attention required!":  true,
	"access denied":        true,
	"403 forbidden":        true,
	"404 not found":        true,
	"page not found":       true,
	"youtube":              true,
	"- youtube":            true,
	"x":                    true,
	"twitter":              true,
	"redirecting":          true,
	"redirecting...":       true,
	"please wait":          true,
	"please wait...":       true,
	"security check":       true,
	"are you a robot?":     true,
	"verify you are human": true,
}

// PlaceholderTitle returns the domain-derived title used when nothing better
// could be extracted.
func PlaceholderTitle(host string) string {
	return "Page from " + strings.TrimPrefix(host, "www.")
}

// IsWeak reports whether m is too generic or incomplete to serve without
// trying to extract it again. It is true when the title is absent or a
// placeholder, when the description is absent, short, punctuation only or
// boilerplate, when the favicon comes from an icon proxy, or when title,
// description and image are all absent.
func IsWeak(m *PageMetadata) bool {
	if m == nil {
		return true
	}
	if !m.HasContent() {
		return true
	}
	return IsWeakTitle(m.Title) || IsWeakDescription(m.Description) || IsProxyFavicon(m.Favicon)
}

// IsWeakMetadata is an alias for IsWeak.
func IsWeakMetadata(m *PageMetadata) bool {
	return IsWeak(m)
}

// IsWeakTitle reports whether title is absent or a known placeholder.
func IsWeakTitle(title string) bool {
	t := CleanText(title)
	if t == "" {
		return true
	}
	if placeholderTitleRe.MatchString(t) {
		return true
	}
	return genericTitles[strings.ToLower(t)]
}

// IsWeakDescription reports whether description is absent, too short,
// punctuation only, or matches a boilerplate phrase.
func IsWeakDescription(description string) bool {
	d := CleanText(description)
	if utf8.RuneCountInString(d) < MinDescriptionLength {
		return true
	}
	if punctuationOnlyRe.MatchString(d) {
		return true
	}
	return boilerplateRe.MatchString(d)
}

// IsProxyFavicon reports whether favicon points at a third-party icon proxy,
// meaning no real icon was discovered on the page.
func IsProxyFavicon(favicon string) bool {
	return favicon != "" && iconProxyRe.MatchString(favicon)
}
