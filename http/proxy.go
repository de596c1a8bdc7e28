package http

import (
	"context"
	"net/url"
	"strings"

	"github.com/fwojciec/unfurl"
)

// Ensure ProxyFetcher implements unfurl.Fetcher at compile time.
var _ unfurl.Fetcher = (*ProxyFetcher)(nil)

// ProxyFetcher fetches pages through a read-only HTML rendering proxy.
// The template contains "{url}", replaced by the escaped target URL; a
// template without the placeholder gets the raw target appended.
type ProxyFetcher struct {
	next     unfurl.Fetcher
	template string
}

// NewProxyFetcher creates a ProxyFetcher that sends requests through next.
func NewProxyFetcher(next unfurl.Fetcher, template string) *ProxyFetcher {
	return &ProxyFetcher{next: next, template: template}
}

// Fetch retrieves target through the proxy. The response reports target as
// its effective URL so relative links resolve against the real page.
func (f *ProxyFetcher) Fetch(ctx context.Context, target string) (*unfurl.Response, error) {
	if f.template == "" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "rendering proxy not configured")
	}
	resp, err := f.next.Fetch(ctx, f.proxyURL(target))
	if err != nil {
		return nil, err
	}
	resp.EffectiveURL = target
	return resp, nil
}

func (f *ProxyFetcher) proxyURL(target string) string {
	if strings.Contains(f.template, "{url}") {
		return strings.ReplaceAll(f.template, "{url}", url.QueryEscape(target))
	}
	return f.template + target
}
