package unfurl

import (
	"context"
	"mime"
	"strings"
)

// Response is the outcome of a single bounded HTTP fetch.
type Response struct {
	StatusCode int

	// EffectiveURL is the final URL after redirects. Relative links found
	// in Body resolve against it.
	EffectiveURL string

	ContentType string
	Body        string
}

// IsHTML reports whether the response carries an HTML document.
func (r *Response) IsHTML() bool {
	if r == nil {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(r.ContentType, ";", 2)[0]))
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	case "":
		return looksLikeHTML(r.Body)
	}
	return false
}

func looksLikeHTML(body string) bool {
	head := strings.ToLower(strings.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

// Fetcher retrieves pages over HTTP.
type Fetcher interface {
	// Fetch performs a single GET of url, following redirects.
	// The context controls the deadline; expiry yields ETIMEOUT, transport
	// failures ENETWORK and 4xx responses ECLIENT.
	Fetch(ctx context.Context, url string) (*Response, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
