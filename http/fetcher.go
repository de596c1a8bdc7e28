// Package http provides net/http implementations of unfurl services: the
// bounded page fetcher, the rendering proxy, the enrichment API client, and
// the preview API server.
package http

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/fwojciec/unfurl"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default hard deadline for a single fetch.
const DefaultFetchTimeout = 8 * time.Second

// DefaultMaxBodyBytes caps how much of a response body is read. Preview
// metadata lives in the document head, so longer bodies are truncated.
const DefaultMaxBodyBytes = 2 << 20

// maxRedirects is the number of redirects followed before giving up.
const maxRedirects = 10

// userAgents are rotated across requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
}

// Ensure Fetcher implements unfurl.Fetcher at compile time.
var _ unfurl.Fetcher = (*Fetcher)(nil)

// Fetcher performs bounded HTTP GET requests with browser-like headers.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgents   []string
	next         atomic.Uint64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the hard deadline for each fetch.
// Defaults to DefaultFetchTimeout (8s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes sets the body size cap.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithUserAgents replaces the rotated User-Agent list.
func WithUserAgents(agents ...string) Option {
	return func(f *Fetcher) {
		f.userAgents = agents
	}
}

// WithClient sets the underlying HTTP client. The fetcher works on a copy,
// so c itself is never modified. Its Timeout is ignored in favor of the
// fetcher's own deadline.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c == nil {
			f.client = nil
			return
		}
		cp := *c
		f.client = &cp
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		userAgents:   userAgents,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   5 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ExpectContinueTimeout: time.Second,
				ForceAttemptHTTP2:     true,
			},
		}
	}
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return f
}

// Fetch retrieves url within the fetcher's deadline.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*unfurl.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unfurl.Errorf(unfurl.EINVALID, "invalid request URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, unfurl.Errorf(unfurl.ECLIENT, "HTTP %d for %s", resp.StatusCode, url)
	}
	if resp.StatusCode >= 500 {
		return nil, unfurl.Errorf(unfurl.ENETWORK, "HTTP %d for %s", resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := f.readBody(resp, contentType)
	if err != nil {
		return nil, classifyError(ctx, url, err)
	}

	effective := url
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}

	return &unfurl.Response{
		StatusCode:   resp.StatusCode,
		EffectiveURL: effective,
		ContentType:  contentType,
		Body:         body,
	}, nil
}

func (f *Fetcher) userAgent() string {
	if len(f.userAgents) == 0 {
		return userAgents[0]
	}
	n := f.next.Add(1) - 1
	return f.userAgents[n%uint64(len(f.userAgents))]
}

func (f *Fetcher) readBody(resp *http.Response, contentType string) (string, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", unfurl.Errorf(unfurl.EPARSE, "gzip decode: %v", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	raw, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes))
	if err != nil {
		return "", err
	}

	if !isText(contentType) {
		return string(raw), nil
	}
	decoded, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw), nil
	}
	utf8Body, err := io.ReadAll(decoded)
	if err != nil {
		return string(raw), nil
	}
	return string(utf8Body), nil
}

func isText(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "html")
}

// classifyError maps transport failures to ETIMEOUT or ENETWORK.
func classifyError(ctx context.Context, url string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return unfurl.Errorf(unfurl.ETIMEOUT, "timed out fetching %s", url)
	case errors.Is(err, context.Canceled):
		return unfurl.Errorf(unfurl.ETIMEOUT, "canceled fetching %s", url)
	case errors.As(err, &netErr) && netErr.Timeout():
		return unfurl.Errorf(unfurl.ETIMEOUT, "timed out fetching %s", url)
	}
	return unfurl.Errorf(unfurl.ENETWORK, "fetching %s: %v", url, err)
}
