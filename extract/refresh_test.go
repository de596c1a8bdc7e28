package extract_test

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
	"github.com/fwojciec/unfurl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memoryLinks is a LinkService backed by a map.
type memoryLinks struct {
	mu      sync.Mutex
	links   map[string]*unfurl.LinkRecord
	updates []string
}

func newMemoryLinks(links ...*unfurl.LinkRecord) *memoryLinks {
	m := &memoryLinks{links: make(map[string]*unfurl.LinkRecord)}
	for _, l := range links {
		m.links[l.Code] = l
	}
	return m
}

func (m *memoryLinks) service() *mock.LinkService {
	return &mock.LinkService{
		FindLinkByCodeFn: func(_ context.Context, code string) (*unfurl.LinkRecord, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			l, ok := m.links[code]
			if !ok {
				return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
			}
			cp := *l
			return &cp, nil
		},
		FindLinksFn: func(_ context.Context, filter unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var codes []string
			for code := range m.links {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			var out []*unfurl.LinkRecord
			for i, code := range codes {
				if i < filter.Offset || (filter.Limit > 0 && len(out) >= filter.Limit) {
					continue
				}
				cp := *m.links[code]
				out = append(out, &cp)
			}
			return out, nil
		},
		UpdateLinkMetadataFn: func(_ context.Context, code string, metadata unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			l, ok := m.links[code]
			if !ok {
				return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
			}
			l.Metadata = metadata
			l.LastUpdatedAt = now
			m.updates = append(m.updates, code)
			cp := *l
			return &cp, nil
		},
	}
}

func (m *memoryLinks) get(code string) unfurl.LinkRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.links[code]
}

func (m *memoryLinks) updated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.updates...)
	sort.Strings(out)
	return out
}

func storedLink(code, u string, age time.Duration, metadata unfurl.PageMetadata) *unfurl.LinkRecord {
	return &unfurl.LinkRecord{
		Code:          code,
		OriginalURL:   u,
		NormalizedURL: u,
		Metadata:      metadata,
		LastUpdatedAt: now.Add(-age),
		CreatedAt:     now.Add(-age),
	}
}

func TestRefresher_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("refreshes stale and weak links only", func(t *testing.T) {
		t.Parallel()

		store := newMemoryLinks(
			storedLink("fresh", "https://fresh.example.com", time.Hour, strongMetadata()),
			storedLink("stale", "https://stale.example.com", 13*time.Hour, strongMetadata()),
			storedLink("weak", "https://weak.example.com", time.Hour, unfurl.PageMetadata{Title: "Page from weak.example.com"}),
		)
		var fetches atomic.Int32
		r := &extract.Refresher{
			Links:     store.service(),
			Engine:    newEngine(pageFetcher(strongPage, &fetches)),
			Policy:    unfurl.DefaultStalenessPolicy(),
			BatchSize: 2,
			Now:       func() time.Time { return now },
		}

		res, err := r.Refresh(context.Background(), unfurl.RefreshContext{}, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, res.Checked)
		assert.Equal(t, 2, res.Refreshed)
		assert.Equal(t, 0, res.Failed)
		assert.Equal(t, []string{"stale", "weak"}, store.updated())
		assert.Equal(t, "Example Domain", store.get("weak").Metadata.Title)
		assert.Equal(t, int32(2), fetches.Load())
	})

	t.Run("crawler context uses the shorter window", func(t *testing.T) {
		t.Parallel()

		store := newMemoryLinks(storedLink("a", "https://example.com", 7*time.Hour, strongMetadata()))
		var fetches atomic.Int32
		r := &extract.Refresher{
			Links:  store.service(),
			Engine: newEngine(pageFetcher(strongPage, &fetches)),
			Policy: unfurl.DefaultStalenessPolicy(),
			Now:    func() time.Time { return now },
		}

		human, err := r.Refresh(context.Background(), unfurl.RefreshContext{}, nil)
		require.NoError(t, err)
		crawler, err := r.Refresh(context.Background(), unfurl.RefreshContext{IsCrawler: true}, nil)
		require.NoError(t, err)

		assert.Equal(t, 0, human.Refreshed)
		assert.Equal(t, 1, crawler.Refreshed)
	})

	t.Run("extracts a shared URL once for every link", func(t *testing.T) {
		t.Parallel()

		store := newMemoryLinks(
			storedLink("a", "https://example.com", 24*time.Hour, strongMetadata()),
			storedLink("b", "https://example.com", 24*time.Hour, strongMetadata()),
			storedLink("c", "https://example.com", 24*time.Hour, strongMetadata()),
		)
		var fetches atomic.Int32
		var mu sync.Mutex
		var events []extract.RefreshEvent
		r := &extract.Refresher{
			Links:       store.service(),
			Engine:      newEngine(pageFetcher(strongPage, &fetches)),
			Policy:      unfurl.DefaultStalenessPolicy(),
			Concurrency: 2,
			Now:         func() time.Time { return now },
		}

		res, err := r.Refresh(context.Background(), unfurl.RefreshContext{Forced: true}, func(e extract.RefreshEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		})

		require.NoError(t, err)
		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, 3, res.Refreshed)
		assert.Len(t, events, 3)
		assert.Equal(t, []string{"a", "b", "c"}, store.updated())
	})

	t.Run("keeps good stored fields when the new result is weak", func(t *testing.T) {
		t.Parallel()

		stored := strongMetadata()
		store := newMemoryLinks(storedLink("a", "https://example.com", 24*time.Hour, stored))
		var fetches atomic.Int32
		e := newEngine(failingFetcher(unfurl.ENETWORK, &fetches))
		e.Retry = fastPolicy(1)
		r := &extract.Refresher{
			Links:  store.service(),
			Engine: e,
			Policy: unfurl.DefaultStalenessPolicy(),
			Now:    func() time.Time { return now },
		}

		res, err := r.Refresh(context.Background(), unfurl.RefreshContext{}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Weak)
		assert.Equal(t, stored, store.get("a").Metadata)
	})

	t.Run("counts failed writes", func(t *testing.T) {
		t.Parallel()

		store := newMemoryLinks(storedLink("a", "https://example.com", 24*time.Hour, strongMetadata()))
		links := store.service()
		links.UpdateLinkMetadataFn = func(context.Context, string, unfurl.PageMetadata) (*unfurl.LinkRecord, error) {
			return nil, unfurl.Errorf(unfurl.ENOTFOUND, "link not found")
		}
		var fetches atomic.Int32
		r := &extract.Refresher{
			Links:  links,
			Engine: newEngine(pageFetcher(strongPage, &fetches)),
			Policy: unfurl.DefaultStalenessPolicy(),
			Now:    func() time.Time { return now },
		}

		res, err := r.Refresh(context.Background(), unfurl.RefreshContext{}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, 0, res.Refreshed)
	})

	t.Run("returns listing errors", func(t *testing.T) {
		t.Parallel()

		r := &extract.Refresher{
			Links: &mock.LinkService{
				FindLinksFn: func(context.Context, unfurl.LinkFilter) ([]*unfurl.LinkRecord, error) {
					return nil, unfurl.Errorf(unfurl.EINTERNAL, "database closed")
				},
			},
			Engine: newEngine(nil),
			Policy: unfurl.DefaultStalenessPolicy(),
		}

		_, err := r.Refresh(context.Background(), unfurl.RefreshContext{}, nil)

		require.Error(t, err)
		assert.Equal(t, unfurl.EINTERNAL, unfurl.ErrorCode(err))
	})
}
