package extract

import (
	"context"
	"time"

	"github.com/fwojciec/unfurl"
)

// DefaultResolveTimeout bounds the refresh done while serving a link.
const DefaultResolveTimeout = 5 * time.Second

// Resolver serves a short link's metadata, refreshing it first when the
// staleness policy asks for it.
type Resolver struct {
	Links  unfurl.LinkService
	Engine *Engine
	Policy unfurl.StalenessPolicy

	// Timeout bounds the refresh. When it expires the stored metadata is
	// served and the extraction is abandoned.
	Timeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Resolution is the metadata served for a link.
type Resolution struct {
	Link *unfurl.LinkRecord

	// Refreshed is true when a new extraction was written to the store.
	Refreshed bool

	// TimedOut is true when the refresh did not finish in time.
	TimedOut bool

	// Attempt is the diagnostic trace of the refresh, if one completed.
	Attempt *unfurl.ExtractionAttempt
}

// Resolve looks up code and returns its metadata. Returns ENOTFOUND if the
// link does not exist.
func (r *Resolver) Resolve(ctx context.Context, code string, rc unfurl.RefreshContext) (*Resolution, error) {
	link, err := r.Links.FindLinkByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !r.Policy.ShouldRefresh(link, r.now(), rc) {
		return &Resolution{Link: link}, nil
	}

	extractCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	done := make(chan *Result, 1)
	go func() {
		res, err := r.Engine.Extract(extractCtx, link.OriginalURL)
		if err != nil {
			res = &Result{Metadata: InvalidURLMetadata(link.OriginalURL), Weak: true}
		}
		done <- res
	}()

	select {
	case <-extractCtx.Done():
		return r.fallback(link), nil
	case res := <-done:
		// Results cut short by the deadline are not stored.
		if extractCtx.Err() != nil {
			return r.fallback(link), nil
		}
		updated, err := r.Links.UpdateLinkMetadata(ctx, code, merge(link.Metadata, res))
		if err != nil {
			return nil, err
		}
		return &Resolution{Link: updated, Refreshed: true, Attempt: res.Attempt}, nil
	}
}

// fallback serves the stored record, completing absent fields with the
// placeholder defaults so the preview still renders.
func (r *Resolver) fallback(link *unfurl.LinkRecord) *Resolution {
	out := *link
	placeholder := InvalidURLMetadata(link.OriginalURL)
	if target, err := unfurl.NormalizeURL(link.OriginalURL); err == nil {
		placeholder = unfurl.PageMetadata{
			Title:   unfurl.PlaceholderTitle(unfurl.Host(target)),
			Favicon: unfurl.DefaultFavicon(target),
		}
	}
	out.Metadata.Merge(&placeholder)
	return &Resolution{Link: &out, TimedOut: true}
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultResolveTimeout
	}
	return r.Timeout
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
