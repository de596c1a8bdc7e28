package extract

import (
	"context"
	"sync"

	"github.com/fwojciec/unfurl"
	"golang.org/x/time/rate"
)

var _ unfurl.DomainLimiter = (*DomainLimiter)(nil)

// maxTrackedDomains bounds the limiter table of a long-running server.
const maxTrackedDomains = 4096

// DomainLimiter provides per-host rate limiting using token buckets.
// Requests to different hosts proceed concurrently while requests to the
// same host are spaced out.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewDomainLimiter creates a new DomainLimiter allowing rps requests per
// second to each host, with a burst of 1. A non-positive rps disables
// limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
	}
}

// Wait blocks until the rate limit allows a request to the host.
// Returns ETIMEOUT if the context ends before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[host]
	if !ok {
		if len(d.limiters) >= maxTrackedDomains {
			d.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(d.limit, 1)
		d.limiters[host] = limiter
	}
	d.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return unfurl.Errorf(unfurl.ETIMEOUT, "rate limit wait for %s: %v", host, err)
	}
	return nil
}
