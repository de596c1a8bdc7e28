package unfurl

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// trackingParams are query parameters removed during normalization because
// they do not change the page being linked.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
	"igshid":  true,
	"si":      true,
	"ref":     true,
}

func hasScheme(s string) bool {
	return schemeRe.MatchString(s)
}

// NormalizeURL canonicalizes a raw link into the absolute URL used as the
// cache key and fetch target. It is deterministic and idempotent.
// Returns EINVALID if the input cannot be turned into an http(s) URL.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", Errorf(EINVALID, "URL required")
	}
	if !hasScheme(s) {
		s = "https://" + strings.TrimPrefix(s, "//")
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", raw)
	}
	if net.ParseIP(host) == nil {
		if ascii, err := idna.Lookup.ToASCII(host); err == nil {
			host = ascii
		}
	}

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""

	if host == videoShortHost {
		if id := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)[0]; IsVideoID(id) {
			raw := "v=" + id
			if q, err := url.ParseQuery(u.RawQuery); err == nil {
				q.Set("v", id)
				raw = q.Encode()
			} else {
				raw += "&" + u.RawQuery
			}
			u = &url.URL{Scheme: "https", Host: "www.youtube.com", Path: "/watch", RawQuery: raw}
		}
	}

	// A query that does not parse, such as one using ";" separators, is kept
	// verbatim.
	if q, err := url.ParseQuery(u.RawQuery); u.RawQuery != "" && err == nil {
		for key := range q {
			if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	u.ForceQuery = false

	if u.Path == "/" {
		u.Path = ""
		u.RawPath = ""
	}

	return u.String(), nil
}

// Origin returns the scheme and host of pageURL, e.g. "https://example.com".
// It returns an empty string for unparsable URLs.
func Origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// DefaultFavicon returns the conventional favicon location for pageURL.
func DefaultFavicon(pageURL string) string {
	origin := Origin(pageURL)
	if origin == "" {
		return ""
	}
	return origin + "/favicon.ico"
}

// ResolveURL resolves ref against pageURL and returns an absolute http(s)
// URL, or an empty string when either cannot be parsed or the result uses
// another scheme.
func ResolveURL(pageURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(r)
	if (resolved.Scheme != "http" && resolved.Scheme != "https") || resolved.Host == "" {
		return ""
	}
	return resolved.String()
}
