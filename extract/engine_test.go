package extract_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
	"github.com/fwojciec/unfurl/goquery"
	"github.com/fwojciec/unfurl/mock"
	"github.com/fwojciec/unfurl/oembed"
	"github.com/fwojciec/unfurl/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPage = `<html><head>
<title>Example Domain</title>
<meta name="description" content="A sufficiently long, specific, non-boilerplate sentence describing the page.">
<meta property="og:image" content="/img/a.png">
<link rel="icon" type="image/png" href="/icon.png">
</head><body></body></html>`

func htmlResponse(u, body string) *unfurl.Response {
	return &unfurl.Response{StatusCode: 200, EffectiveURL: u, ContentType: "text/html; charset=utf-8", Body: body}
}

// pageFetcher serves body for every URL and counts calls.
func pageFetcher(body string, calls *atomic.Int32) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
			calls.Add(1)
			return htmlResponse(u, body), nil
		},
	}
}

func failingFetcher(code string, calls *atomic.Int32) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(context.Context, string) (*unfurl.Response, error) {
			calls.Add(1)
			return nil, unfurl.Errorf(code, "failed")
		},
	}
}

func newEngine(f unfurl.Fetcher) *extract.Engine {
	return &extract.Engine{
		Fetcher:      f,
		Parser:       goquery.NewParser(),
		Retry:        fastPolicy(3),
		FetchTimeout: time.Second,
		StepTimeout:  time.Second,
		Deadline:     5 * time.Second,
	}
}

func TestEngine_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts a complete page in one attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		e := newEngine(pageFetcher(strongPage, &calls))

		res, err := e.Extract(context.Background(), "Example.com/path")

		require.NoError(t, err)
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Equal(t, "https://example.com/img/a.png", res.Metadata.Image)
		assert.Equal(t, "https://example.com/icon.png", res.Metadata.Favicon)
		assert.False(t, res.Weak)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, 1, res.Attempt.AttemptsUsed)
		assert.Equal(t, "https://example.com/path", res.Attempt.TargetURL)
		assert.Equal(t, []unfurl.Strategy{unfurl.StrategyPrimary}, res.Attempt.Strategies())
	})

	t.Run("rejects an invalid URL", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		e := newEngine(pageFetcher(strongPage, &calls))

		_, err := e.Extract(context.Background(), "ftp://example.com/file")

		require.Error(t, err)
		assert.Equal(t, unfurl.EINVALID, unfurl.ErrorCode(err))
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("always-timing-out endpoint uses every attempt and returns a fallback in time", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := &mock.Fetcher{
			FetchFn: func(ctx context.Context, _ string) (*unfurl.Response, error) {
				calls.Add(1)
				<-ctx.Done()
				return nil, unfurl.Errorf(unfurl.ETIMEOUT, "deadline exceeded")
			},
		}
		e := newEngine(f)
		e.FetchTimeout = 20 * time.Millisecond
		e.Deadline = 2 * time.Second

		start := time.Now()
		res, err := e.Extract(context.Background(), "https://example.com/slow")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, 3, res.Attempt.AttemptsUsed)
		assert.Less(t, elapsed, e.Deadline)
		assert.Equal(t, "Page from example.com", res.Metadata.Title)
		assert.Equal(t, "https://example.com/favicon.ico", res.Metadata.Favicon)
		assert.True(t, res.Weak)
	})

	t.Run("shared deadline caps retries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := &mock.Fetcher{
			FetchFn: func(ctx context.Context, _ string) (*unfurl.Response, error) {
				calls.Add(1)
				<-ctx.Done()
				return nil, unfurl.Errorf(unfurl.ETIMEOUT, "deadline exceeded")
			},
		}
		e := newEngine(f)
		e.Retry = extract.RetryPolicy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
		e.FetchTimeout = time.Second
		e.Deadline = 100 * time.Millisecond

		start := time.Now()
		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Less(t, time.Since(start), time.Second)
		assert.Less(t, calls.Load(), int32(10))
		assert.Equal(t, "Page from example.com", res.Metadata.Title)
	})

	t.Run("does not retry a client error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		e := newEngine(failingFetcher(unfurl.ECLIENT, &calls))

		res, err := e.Extract(context.Background(), "https://example.com/missing")

		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, "Page from example.com", res.Metadata.Title)
	})

	t.Run("retries a weak page until it improves", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		f := &mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				if calls.Add(1) == 1 {
					return htmlResponse(u, `<html><head><title>Loading...</title></head></html>`), nil
				}
				return htmlResponse(u, strongPage), nil
			},
		}
		e := newEngine(f)

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, 2, res.Attempt.AttemptsUsed)
		assert.Equal(t, "Example Domain", res.Metadata.Title)
	})

	t.Run("rendering proxy fills in after a failed fetch", func(t *testing.T) {
		t.Parallel()

		var primary, rendered atomic.Int32
		e := newEngine(failingFetcher(unfurl.ETIMEOUT, &primary))
		e.Renderer = pageFetcher(strongPage, &rendered)

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, int32(1), primary.Load())
		assert.Equal(t, int32(1), rendered.Load())
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Equal(t, []unfurl.Strategy{unfurl.StrategyPrimary, unfurl.StrategyRenderProxy}, res.Attempt.Strategies())
	})

	t.Run("non-HTML response goes to the fallback chain", func(t *testing.T) {
		t.Parallel()

		var rendered atomic.Int32
		e := newEngine(&mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				return &unfurl.Response{StatusCode: 200, EffectiveURL: u, ContentType: "application/pdf", Body: "%PDF-1.4"}, nil
			},
		})
		e.Renderer = pageFetcher(strongPage, &rendered)

		res, err := e.Extract(context.Background(), "https://example.com/doc.pdf")

		require.NoError(t, err)
		assert.Equal(t, int32(1), rendered.Load())
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		require.NotEmpty(t, res.Attempt.Trace)
		assert.NotEmpty(t, res.Attempt.Trace[0].Err)
	})

	t.Run("AMP mirror fills fields the page lacks", func(t *testing.T) {
		t.Parallel()

		f := &mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				if strings.HasPrefix(u, "https://amp.example.com/") {
					return htmlResponse(u, strongPage), nil
				}
				return htmlResponse(u, `<html><head><link rel="amphtml" href="https://amp.example.com/story"></head><body></body></html>`), nil
			},
		}
		e := newEngine(f)

		res, err := e.Extract(context.Background(), "https://example.com/story")

		require.NoError(t, err)
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Equal(t, "https://amp.example.com/img/a.png", res.Metadata.Image)
		assert.Contains(t, res.Attempt.Strategies(), unfurl.StrategyAMP)
	})

	t.Run("enrichment runs only when nothing else produced content", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		enricher := &mock.Enricher{
			EnrichFn: func(_ context.Context, req unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
				calls.Add(1)
				assert.Equal(t, "https://example.com", req.URL)
				m := strongMetadata()
				return &m, nil
			},
		}
		var primary atomic.Int32
		e := newEngine(failingFetcher(unfurl.ENETWORK, &primary))
		e.Enrichers = []unfurl.Enricher{enricher}

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Contains(t, res.Attempt.Strategies(), unfurl.StrategyEnrichment)
	})

	t.Run("enrichment is skipped when the page has content", func(t *testing.T) {
		t.Parallel()

		var calls, fetches atomic.Int32
		enricher := &mock.Enricher{
			EnrichFn: func(context.Context, unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
				calls.Add(1)
				return nil, nil
			},
		}
		e := newEngine(pageFetcher(`<html><head><title>Only A Title</title></head></html>`, &fetches))
		e.Enrichers = []unfurl.Enricher{enricher}

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, int32(0), calls.Load())
		assert.Equal(t, "Only A Title", res.Metadata.Title)
	})

	t.Run("enrichment errors are swallowed", func(t *testing.T) {
		t.Parallel()

		var primary atomic.Int32
		e := newEngine(failingFetcher(unfurl.ENETWORK, &primary))
		e.Enrichers = []unfurl.Enricher{&mock.Enricher{
			EnrichFn: func(context.Context, unfurl.EnrichRequest) (*unfurl.PageMetadata, error) {
				return nil, unfurl.Errorf(unfurl.EUNAVAILABLE, "quota exceeded")
			},
		}}

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, "Page from example.com", res.Metadata.Title)
	})

	t.Run("content extractor fills a missing description", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		e := newEngine(pageFetcher(`<html><head><title>Example Domain</title></head><body><article>text</article></body></html>`, &fetches))
		e.Content = &mock.ContentExtractor{
			ExtractContentFn: func(html, pageURL string) (*unfurl.PageMetadata, error) {
				assert.Contains(t, html, "<article>")
				assert.Equal(t, "https://example.com", pageURL)
				return &unfurl.PageMetadata{Title: "Ignored", Description: "A description derived from the main content of the page."}, nil
			},
		}

		res, err := e.Extract(context.Background(), "https://example.com")

		require.NoError(t, err)
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Equal(t, "A description derived from the main content of the page.", res.Metadata.Description)
		assert.Contains(t, res.Attempt.Strategies(), unfurl.StrategyContent)
	})

	t.Run("discovered oEmbed endpoint fills a missing title", func(t *testing.T) {
		t.Parallel()

		f := &mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				if strings.HasPrefix(u, "https://example.com/oembed") {
					return &unfurl.Response{StatusCode: 200, EffectiveURL: u, ContentType: "application/json", Body: `{"title":"From oEmbed","author_name":"Jane Doe"}`}, nil
				}
				return htmlResponse(u, `<html><head><link rel="alternate" type="application/json+oembed" href="/oembed?url=x"></head><body></body></html>`), nil
			},
		}
		e := newEngine(f)
		e.OEmbed = oembed.NewClient(f)

		res, err := e.Extract(context.Background(), "https://example.com/post")

		require.NoError(t, err)
		assert.Equal(t, "From oEmbed", res.Metadata.Title)
		assert.Equal(t, "By Jane Doe", res.Metadata.Description)
		assert.Contains(t, res.Attempt.Strategies(), unfurl.StrategyOEmbedDiscovery)
	})

	t.Run("video description comes from the watch page rather than the author", func(t *testing.T) {
		t.Parallel()

		const watchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
		var fetches atomic.Int32
		f := &mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				fetches.Add(1)
				if strings.HasPrefix(u, "https://oembed.test/") {
					return &unfurl.Response{StatusCode: 200, EffectiveURL: u, ContentType: "application/json", Body: `{"title":"Never Gonna Give You Up","author_name":"Rick Astley"}`}, nil
				}
				if strings.HasPrefix(u, "https://www.youtube.com/watch") {
					return htmlResponse(u, `<html><head><title>Never Gonna Give You Up - YouTube</title>
<meta property="og:description" content="The official video for Never Gonna Give You Up, remastered in 4K from the original tapes.">
</head><body></body></html>`), nil
				}
				return nil, unfurl.Errorf(unfurl.ENETWORK, "no route to %s", u)
			},
		}
		e := newEngine(f)
		e.Video = youtube.NewExtractor(f, goquery.NewParser(), youtube.WithOEmbedEndpoint("https://oembed.test/oembed"))

		res, err := e.Extract(context.Background(), watchURL)

		require.NoError(t, err)
		assert.Equal(t, "Never Gonna Give You Up", res.Metadata.Title)
		assert.Equal(t, "The official video for Never Gonna Give You Up, remastered in 4K from the original tapes.", res.Metadata.Description)
		assert.False(t, res.Weak)
		assert.Equal(t, 1, res.Attempt.AttemptsUsed)
		assert.Equal(t, int32(2), fetches.Load())

		now := time.Now()
		stored := &unfurl.LinkRecord{Metadata: res.Metadata, LastUpdatedAt: now}
		assert.False(t, unfurl.ShouldRefresh(stored, now, unfurl.RefreshContext{IsCrawler: true}))
	})

	t.Run("video pipeline short-circuits the generic fetch", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		e := newEngine(pageFetcher(strongPage, &fetches))
		e.Video = &mock.VideoExtractor{
			ExtractVideoFn: func(_ context.Context, pageURL string, _ *unfurl.ExtractionAttempt) unfurl.PageMetadata {
				assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", pageURL)
				m := strongMetadata()
				m.Title = "A Video"
				return m
			},
		}

		res, err := e.Extract(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, "A Video", res.Metadata.Title)
		assert.Equal(t, int32(0), fetches.Load())
	})

	t.Run("weak video result falls back to the generic pipeline", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		e := newEngine(pageFetcher(strongPage, &fetches))
		e.Video = &mock.VideoExtractor{
			ExtractVideoFn: func(context.Context, string, *unfurl.ExtractionAttempt) unfurl.PageMetadata {
				return unfurl.PageMetadata{Image: unfurl.VideoThumbnailURL("dQw4w9WgXcQ")}
			},
		}

		res, err := e.Extract(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, "Example Domain", res.Metadata.Title)
		assert.Equal(t, unfurl.VideoThumbnailURL("dQw4w9WgXcQ"), res.Metadata.Image)
	})

	t.Run("thumbnail heuristic supplies a video image without a network call", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		e := newEngine(failingFetcher(unfurl.ENETWORK, &fetches))
		e.Retry = fastPolicy(1)

		res, err := e.Extract(context.Background(), "https://www.youtube.com/embed/dQw4w9WgXcQ")

		require.NoError(t, err)
		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", res.Metadata.Image)
		assert.Contains(t, res.Attempt.Strategies(), unfurl.StrategyThumbnail)
	})

	t.Run("microblog page without an icon gets the platform favicon", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		e := newEngine(pageFetcher(`<html><head><meta property="og:title" content="A post"></head></html>`, &fetches))
		e.Retry = fastPolicy(1)

		res, err := e.Extract(context.Background(), "https://x.com/someone/status/1")

		require.NoError(t, err)
		assert.Equal(t, extract.MicroblogFavicon, res.Metadata.Favicon)
	})

	t.Run("waits on the host limiter before the primary fetch", func(t *testing.T) {
		t.Parallel()

		var hosts []string
		var mu sync.Mutex
		var fetches atomic.Int32
		e := newEngine(pageFetcher(strongPage, &fetches))
		e.Limiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, host string) error {
				mu.Lock()
				defer mu.Unlock()
				hosts = append(hosts, host)
				return nil
			},
		}

		_, err := e.Extract(context.Background(), "https://www.example.com/a")

		require.NoError(t, err)
		assert.Equal(t, []string{"www.example.com"}, hosts)
	})

	t.Run("coalesces concurrent extractions of the same URL", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		var once sync.Once
		e := newEngine(&mock.Fetcher{
			FetchFn: func(_ context.Context, u string) (*unfurl.Response, error) {
				fetches.Add(1)
				once.Do(func() { close(started) })
				<-release
				return htmlResponse(u, strongPage), nil
			},
		})

		var wg sync.WaitGroup
		results := make([]*extract.Result, 2)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0], _ = e.Extract(context.Background(), "https://example.com")
		}()
		<-started
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[1], _ = e.Extract(context.Background(), "https://EXAMPLE.com/")
		}()
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), fetches.Load())
		require.NotNil(t, results[0])
		require.NotNil(t, results[1])
		assert.Equal(t, results[0].Metadata, results[1].Metadata)
	})
}

func TestEngine_ExtractMetadata(t *testing.T) {
	t.Parallel()

	t.Run("never fails on invalid input", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		e := newEngine(pageFetcher(strongPage, &calls))

		m := e.ExtractMetadata(context.Background(), "ftp://example.com/file")

		assert.Equal(t, "Page from example.com", m.Title)
		assert.Equal(t, "https://example.com/favicon.ico", m.Favicon)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("returns placeholder metadata when every strategy fails", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		e := newEngine(failingFetcher(unfurl.ENETWORK, &calls))

		m := e.ExtractMetadata(context.Background(), "https://www.example.com/a")

		assert.Equal(t, unfurl.PageMetadata{
			Title:   "Page from example.com",
			Favicon: "https://www.example.com/favicon.ico",
		}, m)
	})
}

func TestInvalidURLMetadata(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Page from example.com", extract.InvalidURLMetadata("ftp://example.com/file").Title)

	for _, raw := range []string{"", "   ", "not a url", "http://"} {
		assert.Equal(t, unfurl.PageMetadata{Title: extract.UntitledTitle}, extract.InvalidURLMetadata(raw), "input %q", raw)
	}
}
