// Package extract orchestrates metadata extraction. It routes URLs to the
// video, microblog or generic pipeline, runs the fallback chain, retries
// with backoff under a shared deadline, and refreshes stored links.
package extract

import (
	"context"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/oembed"
	"golang.org/x/sync/singleflight"
)

// MicroblogFavicon is used for microblog pages that declare no icon.
const MicroblogFavicon = "https://abs.twimg.com/favicons/twitter.3.ico"

// Default timeouts.
const (
	DefaultFetchTimeout = 8 * time.Second
	DefaultStepTimeout  = 4 * time.Second
	DefaultDeadline     = 20 * time.Second
)

// Engine extracts preview metadata from web pages. Only Fetcher and Parser
// are required; every other collaborator enables an optional strategy.
// Engine is safe for concurrent use.
type Engine struct {
	Fetcher unfurl.Fetcher
	Parser  unfurl.Parser

	// Video runs the video platform pipeline.
	Video unfurl.VideoExtractor

	// Content derives title and description from the main content of
	// generic pages whose tags are incomplete.
	Content unfurl.ContentExtractor

	// OEmbed follows oEmbed endpoints discovered on generic pages.
	OEmbed *oembed.Client

	// Renderer fetches pages through a read-only rendering proxy.
	Renderer unfurl.Fetcher

	// Enrichers are tried in order when nothing else produced content.
	Enrichers []unfurl.Enricher

	// Limiter spaces out primary fetches to the same host.
	Limiter unfurl.DomainLimiter

	Retry        RetryPolicy
	FetchTimeout time.Duration
	StepTimeout  time.Duration
	Deadline     time.Duration

	group singleflight.Group
}

// Result holds the outcome of one extraction.
type Result struct {
	Metadata unfurl.PageMetadata
	Attempt  *unfurl.ExtractionAttempt

	// Weak reports the quality verdict on Metadata.
	Weak bool
}

// page is a fetched and parsed HTML document.
type page struct {
	html         string
	effectiveURL string
	doc          *unfurl.Document

	// byline is the discovered oEmbed author line, applied only when no
	// other source produced a description.
	byline string
}

// Extract normalizes rawURL and extracts its metadata. The only error is
// EINVALID for a URL that cannot be normalized; extraction failures degrade
// to fallback metadata. Concurrent calls for the same normalized URL share
// one extraction.
func (e *Engine) Extract(ctx context.Context, rawURL string) (*Result, error) {
	target, err := unfurl.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	v, _, _ := e.group.Do(target, func() (any, error) {
		return e.extract(ctx, target), nil
	})
	out := *v.(*Result)
	return &out, nil
}

// ExtractMetadata returns metadata for rawURL and never fails. An invalid
// URL yields a placeholder derived from the input.
func (e *Engine) ExtractMetadata(ctx context.Context, rawURL string) unfurl.PageMetadata {
	r, err := e.Extract(ctx, rawURL)
	if err != nil {
		return InvalidURLMetadata(rawURL)
	}
	return r.Metadata
}

// UntitledTitle is served for input that has no recognizable host.
const UntitledTitle = "Untitled link"

// InvalidURLMetadata returns the placeholder served for input that is not a
// usable URL. Input without a host gets UntitledTitle and no favicon, since
// there is no origin to resolve one against.
func InvalidURLMetadata(raw string) unfurl.PageMetadata {
	host := unfurl.Host(raw)
	if host == "" {
		return unfurl.PageMetadata{Title: UntitledTitle}
	}
	m := unfurl.PageMetadata{
		Title:   unfurl.PlaceholderTitle(host),
		Favicon: unfurl.DefaultFavicon("https://" + host),
	}
	m.Normalize()
	return m
}

func (e *Engine) extract(ctx context.Context, target string) *Result {
	ctx, cancel := context.WithTimeout(ctx, e.deadline())
	defer cancel()

	deadline, _ := ctx.Deadline()
	attempt := unfurl.NewExtractionAttempt(target, deadline)

	m, n := Retry(ctx, e.retryPolicy(), func(ctx context.Context, n int) (unfurl.PageMetadata, error) {
		attempt.AttemptsUsed = n
		return e.attempt(ctx, target, attempt)
	})
	attempt.AttemptsUsed = n

	finalize(&m, target, attempt)
	return &Result{Metadata: m, Attempt: attempt, Weak: unfurl.IsWeak(&m)}
}

// attempt runs one pass of the pipeline for target. The returned error is
// the primary fetch failure, and is nil whenever the result is good enough
// to serve.
func (e *Engine) attempt(ctx context.Context, target string, attempt *unfurl.ExtractionAttempt) (unfurl.PageMetadata, error) {
	var m unfurl.PageMetadata
	site := unfurl.Classify(target)

	if site == unfurl.SiteVideo && e.Video != nil {
		m = e.Video.ExtractVideo(ctx, target, attempt)
		if !unfurl.IsWeak(&m) {
			return m, nil
		}
	}

	p, err := e.primary(ctx, target, &m, attempt)
	if p != nil {
		e.discoverOEmbed(ctx, p, &m, attempt)
		e.extractContent(p, &m, attempt)
		if m.Description == "" && p.byline != "" {
			m.Description = p.byline
		}
	}

	if err != nil || !m.HasContent() {
		e.fallback(ctx, target, p, &m, attempt)
	}

	if m.Favicon == "" && site == unfurl.SiteMicroblog {
		m.Favicon = MicroblogFavicon
	}
	if m.Favicon == "" && p != nil {
		m.Favicon = unfurl.DefaultFavicon(p.effectiveURL)
	}

	if !unfurl.IsWeak(&m) {
		return m, nil
	}
	return m, err
}

// primary fetches and parses target, merging the tag metadata into m.
func (e *Engine) primary(ctx context.Context, target string, m *unfurl.PageMetadata, attempt *unfurl.ExtractionAttempt) (*page, error) {
	begin := time.Now()

	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx, unfurl.Host(target)); err != nil {
			attempt.Record(unfurl.StrategyPrimary, begin, nil, err)
			return nil, err
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout())
	defer cancel()

	p, err := e.fetchPage(fetchCtx, e.Fetcher, target)
	if err != nil {
		attempt.Record(unfurl.StrategyPrimary, begin, nil, err)
		return nil, err
	}
	attempt.Record(unfurl.StrategyPrimary, begin, m.Merge(declared(p.doc)), nil)
	return p, nil
}

// discoverOEmbed follows an oEmbed endpoint advertised by the page when the
// tags produced no usable title.
func (e *Engine) discoverOEmbed(ctx context.Context, p *page, m *unfurl.PageMetadata, attempt *unfurl.ExtractionAttempt) {
	if e.OEmbed == nil || p.doc.OEmbedURL == "" || !unfurl.IsWeakTitle(m.Title) {
		return
	}
	begin := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout())
	defer cancel()

	resp, err := e.OEmbed.Fetch(stepCtx, p.doc.OEmbedURL, p.doc.OEmbedFormat)
	if err != nil {
		attempt.Record(unfurl.StrategyOEmbedDiscovery, begin, nil, err)
		return
	}
	found := resp.Metadata()
	p.byline = resp.Byline()
	attempt.Record(unfurl.StrategyOEmbedDiscovery, begin, m.Merge(&found), nil)
}

// extractContent fills title and description from the page's main content.
func (e *Engine) extractContent(p *page, m *unfurl.PageMetadata, attempt *unfurl.ExtractionAttempt) {
	if e.Content == nil || (m.Title != "" && m.Description != "") {
		return
	}
	begin := time.Now()
	found, err := e.Content.ExtractContent(p.html, p.effectiveURL)
	if err != nil {
		attempt.Record(unfurl.StrategyContent, begin, nil, err)
		return
	}
	found.Normalize()
	attempt.Record(unfurl.StrategyContent, begin, m.Merge(found), nil)
}

// fetchPage fetches pageURL with f and parses the HTML body.
func (e *Engine) fetchPage(ctx context.Context, f unfurl.Fetcher, pageURL string) (*page, error) {
	resp, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsHTML() {
		return nil, unfurl.Errorf(unfurl.EPARSE, "non-HTML content type %q", resp.ContentType)
	}
	effective := resp.EffectiveURL
	if effective == "" {
		effective = pageURL
	}
	doc, err := e.Parser.Parse(resp.Body, effective)
	if err != nil {
		return nil, err
	}
	return &page{html: resp.Body, effectiveURL: effective, doc: doc}, nil
}

// declared returns the document's metadata without the /favicon.ico
// default, which is applied only after every other source had its chance.
func declared(doc *unfurl.Document) *unfurl.PageMetadata {
	m := doc.Metadata
	if !doc.FaviconFound {
		m.Favicon = ""
	}
	return &m
}

// finalize applies the domain-derived title and the default favicon to
// fields that are still absent, then normalizes m.
func finalize(m *unfurl.PageMetadata, target string, attempt *unfurl.ExtractionAttempt) {
	begin := time.Now()
	filled := m.Merge(&unfurl.PageMetadata{
		Title:   unfurl.PlaceholderTitle(unfurl.Host(target)),
		Favicon: unfurl.DefaultFavicon(target),
	})
	m.Normalize()
	if len(filled) > 0 {
		attempt.Record(unfurl.StrategyDefaults, begin, filled, nil)
	}
}

func (e *Engine) retryPolicy() RetryPolicy {
	if e.Retry.MaxAttempts == 0 {
		return DefaultRetryPolicy()
	}
	return e.Retry
}

func (e *Engine) fetchTimeout() time.Duration {
	if e.FetchTimeout <= 0 {
		return DefaultFetchTimeout
	}
	return e.FetchTimeout
}

func (e *Engine) stepTimeout() time.Duration {
	if e.StepTimeout <= 0 {
		return DefaultStepTimeout
	}
	return e.StepTimeout
}

func (e *Engine) deadline() time.Duration {
	if e.Deadline <= 0 {
		return DefaultDeadline
	}
	return e.Deadline
}
