package extract

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/bloom"
	"golang.org/x/sync/errgroup"
)

// DefaultRefreshBatchSize is the page size used to walk the link store.
const DefaultRefreshBatchSize = 200

// Refresher re-extracts stored links whose metadata is stale or weak.
type Refresher struct {
	Links       unfurl.LinkService
	Engine      *Engine
	Policy      unfurl.StalenessPolicy
	Concurrency int
	BatchSize   int

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// RefreshResult holds the outcome of a refresh run.
type RefreshResult struct {
	Checked   int
	Refreshed int
	Weak      int
	Failed    int
}

// RefreshEvent reports the outcome for one link.
type RefreshEvent struct {
	Code  string
	URL   string
	Weak  bool
	Error error
}

// RefreshFunc is a callback for reporting refresh progress.
type RefreshFunc func(event RefreshEvent)

// urlGroup is a normalized URL and the stored links pointing at it.
type urlGroup struct {
	url   string
	links []*unfurl.LinkRecord
}

// Refresh walks every stored link, extracts the ones the policy marks for
// refresh and writes the new metadata back. Links sharing a normalized URL
// are extracted once. The progress callback, if provided, is called once
// per refreshed link and may be called concurrently.
func (r *Refresher) Refresh(ctx context.Context, rc unfurl.RefreshContext, progress RefreshFunc) (*RefreshResult, error) {
	links, err := r.collect(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	result := &RefreshResult{Checked: len(links)}

	var due []*unfurl.LinkRecord
	for _, link := range links {
		if r.Policy.ShouldRefresh(link, now, rc) {
			due = append(due, link)
		}
	}
	groups := groupByURL(due)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var refreshed, weak, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, group := range groups {
		g.Go(func() error {
			res, err := r.Engine.Extract(gctx, group.url)
			for _, link := range group.links {
				event := RefreshEvent{Code: link.Code, URL: group.url}
				if err == nil {
					_, err := r.Links.UpdateLinkMetadata(gctx, link.Code, merge(link.Metadata, res))
					event.Error = err
					event.Weak = res.Weak
				} else {
					event.Error = err
				}
				switch {
				case event.Error != nil:
					failed.Add(1)
				case event.Weak:
					refreshed.Add(1)
					weak.Add(1)
				default:
					refreshed.Add(1)
				}
				if progress != nil {
					progress(event)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Refreshed = int(refreshed.Load())
	result.Weak = int(weak.Load())
	result.Failed = int(failed.Load())
	return result, ctx.Err()
}

// collect reads every stored link page by page.
func (r *Refresher) collect(ctx context.Context) ([]*unfurl.LinkRecord, error) {
	size := r.BatchSize
	if size <= 0 {
		size = DefaultRefreshBatchSize
	}

	var all []*unfurl.LinkRecord
	for offset := 0; ; offset += size {
		links, err := r.Links.FindLinks(ctx, unfurl.LinkFilter{Offset: offset, Limit: size})
		if err != nil {
			return nil, fmt.Errorf("listing links: %w", err)
		}
		all = append(all, links...)
		if len(links) < size {
			return all, nil
		}
	}
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// groupByURL groups links by normalized URL, keeping first-seen order.
// The Bloom filter answers most membership checks; a false positive only
// costs a map miss.
func groupByURL(links []*unfurl.LinkRecord) []*urlGroup {
	seen := bloom.NewFilter(uint(len(links)+1), 0.01)
	index := make(map[string]*urlGroup)
	var groups []*urlGroup
	for _, link := range links {
		u := link.NormalizedURL
		if u == "" {
			u = link.OriginalURL
		}
		if seen.TestAndAdd(u) {
			if g, ok := index[u]; ok {
				g.links = append(g.links, link)
				continue
			}
		}
		g := &urlGroup{url: u, links: []*unfurl.LinkRecord{link}}
		index[u] = g
		groups = append(groups, g)
	}
	return groups
}

// merge picks the metadata to store after an extraction. A result that is
// not weak replaces the stored fields. A weak result only replaces stored
// fields that are themselves weak or absent.
func merge(stored unfurl.PageMetadata, res *Result) unfurl.PageMetadata {
	if !res.Weak {
		out := res.Metadata
		out.Merge(&stored)
		return out
	}
	out, fresh := stored, res.Metadata
	if unfurl.IsWeakTitle(out.Title) && !unfurl.IsWeakTitle(fresh.Title) {
		out.Title = fresh.Title
	}
	if unfurl.IsWeakDescription(out.Description) && !unfurl.IsWeakDescription(fresh.Description) {
		out.Description = fresh.Description
	}
	if unfurl.IsProxyFavicon(out.Favicon) && fresh.Favicon != "" && !unfurl.IsProxyFavicon(fresh.Favicon) {
		out.Favicon = fresh.Favicon
	}
	out.Merge(&fresh)
	return out
}
