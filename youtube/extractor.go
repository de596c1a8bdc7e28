// Package youtube implements the video platform pipeline for unfurl.
package youtube

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/oembed"
)

// Ensure Extractor implements unfurl.VideoExtractor at compile time.
var _ unfurl.VideoExtractor = (*Extractor)(nil)

// Default provider endpoints.
const (
	DefaultOEmbedEndpoint    = "https://www.youtube.com/oembed"
	DefaultEmbedInfoEndpoint = "https://noembed.com/embed"
)

// onboardingRe matches the platform's generic sign-up copy that watch pages
// serve instead of a real description.
var onboardingRe = regexp.MustCompile(`(?i)enjoy the videos and music you love[^.]*\.?`)

// titleSuffixRe matches the platform name appended to watch page titles.
var titleSuffixRe = regexp.MustCompile(`\s+-\s+YouTube$`)

// Extractor gathers video metadata from the platform's oEmbed endpoint, a
// third-party embed-info endpoint and the watch page, in that order.
type Extractor struct {
	fetcher           unfurl.Fetcher
	parser            unfurl.Parser
	oembed            *oembed.Client
	oembedEndpoint    string
	embedInfoEndpoint string
	stepTimeout       time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOEmbedEndpoint sets the platform oEmbed endpoint.
func WithOEmbedEndpoint(endpoint string) Option {
	return func(e *Extractor) {
		e.oembedEndpoint = endpoint
	}
}

// WithEmbedInfoEndpoint sets the third-party embed-info endpoint. An empty
// endpoint disables the strategy.
func WithEmbedInfoEndpoint(endpoint string) Option {
	return func(e *Extractor) {
		e.embedInfoEndpoint = endpoint
	}
}

// WithStepTimeout bounds each strategy.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.stepTimeout = d
	}
}

// NewExtractor creates a new Extractor. The fetcher serves both the oEmbed
// lookups and the watch page.
func NewExtractor(fetcher unfurl.Fetcher, parser unfurl.Parser, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:           fetcher,
		parser:            parser,
		oembed:            oembed.NewClient(fetcher),
		oembedEndpoint:    DefaultOEmbedEndpoint,
		embedInfoEndpoint: DefaultEmbedInfoEndpoint,
		stepTimeout:       4 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractVideo runs the video strategies for pageURL. A URL without a
// recognizable video id yields empty metadata so the caller can fall back
// to the generic pipeline.
func (e *Extractor) ExtractVideo(ctx context.Context, pageURL string, attempt *unfurl.ExtractionAttempt) unfurl.PageMetadata {
	var m unfurl.PageMetadata

	id, ok := unfurl.VideoID(pageURL)
	if !ok {
		return m
	}
	watchURL := unfurl.VideoWatchURL(id)

	// The byline is held back until the watch page had its chance to
	// supply a real description.
	var byline string
	lookup := func(endpoint string) func(ctx context.Context) (unfurl.PageMetadata, error) {
		return func(ctx context.Context) (unfurl.PageMetadata, error) {
			resp, err := e.lookup(ctx, endpoint, watchURL)
			if err != nil {
				return unfurl.PageMetadata{}, err
			}
			if byline == "" {
				byline = resp.Byline()
			}
			return resp.Metadata(), nil
		}
	}

	strategies := []struct {
		name unfurl.Strategy
		page bool
		run  func(ctx context.Context) (unfurl.PageMetadata, error)
	}{
		{unfurl.StrategyOEmbed, false, lookup(e.oembedEndpoint)},
		{unfurl.StrategyEmbedInfo, false, lookup(e.embedInfoEndpoint)},
		{unfurl.StrategyWatchPage, true, func(ctx context.Context) (unfurl.PageMetadata, error) {
			return e.scrape(ctx, watchURL)
		}},
	}

	for _, s := range strategies {
		weakTitle := unfurl.IsWeakTitle(m.Title)
		if !weakTitle && !unfurl.IsWeakDescription(m.Description) {
			break
		}
		// Lookup endpoints only carry a title worth having.
		if !weakTitle && !s.page {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		begin := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
		found, err := s.run(stepCtx)
		cancel()
		found.Description = StripOnboarding(found.Description)
		if unfurl.IsWeakTitle(found.Title) {
			found.Title = ""
		}
		if unfurl.IsWeakDescription(m.Description) && !unfurl.IsWeakDescription(found.Description) {
			m.Description = ""
		}
		attempt.Record(s.name, begin, m.Merge(&found), err)
	}

	begin := time.Now()
	filled := m.Merge(&unfurl.PageMetadata{
		Description: byline,
		Image:       unfurl.VideoThumbnailURL(id),
		Favicon:     unfurl.VideoFavicon,
	})
	if len(filled) > 0 {
		attempt.Record(unfurl.StrategyThumbnail, begin, filled, nil)
	}

	m.Normalize()
	return m
}

func (e *Extractor) lookup(ctx context.Context, endpoint, watchURL string) (*oembed.Response, error) {
	if endpoint == "" {
		return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "endpoint not configured")
	}
	return e.oembed.Lookup(ctx, endpoint, watchURL)
}

func (e *Extractor) scrape(ctx context.Context, watchURL string) (unfurl.PageMetadata, error) {
	resp, err := e.fetcher.Fetch(ctx, watchURL)
	if err != nil {
		return unfurl.PageMetadata{}, err
	}
	if !resp.IsHTML() {
		return unfurl.PageMetadata{}, unfurl.Errorf(unfurl.EPARSE, "watch page is not HTML")
	}
	doc, err := e.parser.Parse(resp.Body, resp.EffectiveURL)
	if err != nil {
		return unfurl.PageMetadata{}, err
	}
	m := doc.Metadata
	m.Title = StripTitleSuffix(m.Title)
	if !doc.FaviconFound {
		m.Favicon = ""
	}
	return m, nil
}

// StripOnboarding removes the platform's generic sign-up copy from a
// description. A description made only of that copy becomes empty.
func StripOnboarding(description string) string {
	return unfurl.CleanText(onboardingRe.ReplaceAllString(description, ""))
}

// StripTitleSuffix removes the " - YouTube" suffix from a watch page title.
func StripTitleSuffix(title string) string {
	return titleSuffixRe.ReplaceAllString(strings.TrimSpace(title), "")
}
