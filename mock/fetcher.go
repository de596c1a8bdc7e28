package mock

import (
	"context"

	"github.com/fwojciec/unfurl"
)

var _ unfurl.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of unfurl.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*unfurl.Response, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*unfurl.Response, error) {
	return f.FetchFn(ctx, url)
}

var _ unfurl.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of unfurl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
