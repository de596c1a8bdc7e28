package unfurl

import (
	"net/url"
	"strings"
)

// Site identifies which extraction pipeline handles a URL.
type Site string

// Site values returned by Classify.
const (
	SiteGeneric   Site = "generic"
	SiteVideo     Site = "video"
	SiteMicroblog Site = "microblog"
)

// Host suffixes recognized by Classify. A host matches a suffix when it is
// equal to it or is a subdomain of it.
var (
	videoHosts     = []string{"youtube.com", "youtube-nocookie.com", videoShortHost}
	microblogHosts = []string{"twitter.com", "x.com"}
)

const videoShortHost = "youtu.be"

// Classify routes a URL to a pipeline by host suffix. Unparsable URLs are
// generic.
func Classify(pageURL string) Site {
	host := hostOf(pageURL)
	switch {
	case host == "":
		return SiteGeneric
	case matchesHost(host, videoHosts):
		return SiteVideo
	case matchesHost(host, microblogHosts):
		return SiteMicroblog
	}
	return SiteGeneric
}

// Host returns the lower-cased host name of pageURL without port, or an
// empty string when the URL cannot be parsed. URLs without a scheme are
// treated as https.
func Host(pageURL string) string {
	return hostOf(pageURL)
}

func hostOf(pageURL string) string {
	s := strings.TrimSpace(pageURL)
	if !hasScheme(s) {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

func matchesHost(host string, suffixes []string) bool {
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
