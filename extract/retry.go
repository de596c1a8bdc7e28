package extract

import (
	"context"
	"math"
	"time"

	"github.com/fwojciec/unfurl"
)

// RetryPolicy bounds the attempts of one extraction.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns 3 attempts with delays of 500ms then 1s,
// capped at 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// Delay returns the wait after attempt n (1-based): BaseDelay doubled for
// each previous attempt, capped at MaxDelay. Without a MaxDelay the doubling
// saturates at the largest Duration.
func (p RetryPolicy) Delay(n int) time.Duration {
	if n < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// StepFunc runs one attempt. n is the 1-based attempt number.
type StepFunc func(ctx context.Context, n int) (unfurl.PageMetadata, error)

// Retry runs step until it produces metadata that is not weak, fails with a
// client error, the attempts are exhausted or ctx is done. It returns the
// result of the last attempt and the number of attempts made.
func Retry(ctx context.Context, p RetryPolicy, step StepFunc) (unfurl.PageMetadata, int) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last unfurl.PageMetadata
	for n := 1; n <= maxAttempts; n++ {
		m, err := step(ctx, n)
		last = m
		if err == nil && !unfurl.IsWeak(&m) {
			return last, n
		}

		// A 4xx will not change on retry.
		if unfurl.ErrorCode(err) == unfurl.ECLIENT {
			return last, n
		}

		if n == maxAttempts {
			return last, n
		}

		select {
		case <-ctx.Done():
			return last, n
		case <-time.After(p.Delay(n)):
		}
	}
	return last, maxAttempts
}
