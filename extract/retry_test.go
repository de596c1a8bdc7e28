package extract_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
	"github.com/stretchr/testify/assert"
)

func strongMetadata() unfurl.PageMetadata {
	return unfurl.PageMetadata{
		Title:       "Example Domain",
		Description: "A sufficiently long, specific, non-boilerplate sentence describing the page.",
		Image:       "https://example.com/img/a.png",
		Favicon:     "https://example.com/icon.png",
	}
}

func fastPolicy(attempts int) extract.RetryPolicy {
	return extract.RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := extract.RetryPolicy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
	assert.Equal(t, 4*time.Second, p.Delay(10))

	t.Run("saturates instead of overflowing without a cap", func(t *testing.T) {
		t.Parallel()

		uncapped := extract.RetryPolicy{BaseDelay: 500 * time.Millisecond}
		prev := time.Duration(0)
		for _, n := range []int{1, 30, 35, 64, 200} {
			d := uncapped.Delay(n)
			assert.GreaterOrEqual(t, d, prev, "attempt %d", n)
			prev = d
		}
		assert.Equal(t, time.Duration(math.MaxInt64), uncapped.Delay(64))
	})
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns on the first result that is not weak", func(t *testing.T) {
		t.Parallel()

		calls := 0
		m, n := extract.Retry(context.Background(), fastPolicy(3), func(context.Context, int) (unfurl.PageMetadata, error) {
			calls++
			return strongMetadata(), nil
		})

		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, n)
		assert.Equal(t, "Example Domain", m.Title)
	})

	t.Run("retries weak results", func(t *testing.T) {
		t.Parallel()

		m, n := extract.Retry(context.Background(), fastPolicy(3), func(_ context.Context, n int) (unfurl.PageMetadata, error) {
			if n < 2 {
				return unfurl.PageMetadata{Title: "Example Domain"}, nil
			}
			return strongMetadata(), nil
		})

		assert.Equal(t, 2, n)
		assert.False(t, unfurl.IsWeak(&m))
	})

	t.Run("performs exactly the maximum attempts and returns the last result", func(t *testing.T) {
		t.Parallel()

		var seen []int
		m, n := extract.Retry(context.Background(), fastPolicy(4), func(_ context.Context, n int) (unfurl.PageMetadata, error) {
			seen = append(seen, n)
			return unfurl.PageMetadata{Title: "Attempt"}, unfurl.Errorf(unfurl.ETIMEOUT, "timed out")
		})

		assert.Equal(t, 4, n)
		assert.Equal(t, []int{1, 2, 3, 4}, seen)
		assert.Equal(t, "Attempt", m.Title)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, n := extract.Retry(context.Background(), fastPolicy(3), func(context.Context, int) (unfurl.PageMetadata, error) {
			calls++
			return unfurl.PageMetadata{}, unfurl.Errorf(unfurl.ECLIENT, "HTTP 404")
		})

		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, n)
	})

	t.Run("stops waiting when the context ends", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		policy := extract.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

		start := time.Now()
		_, n := extract.Retry(ctx, policy, func(context.Context, int) (unfurl.PageMetadata, error) {
			return unfurl.PageMetadata{}, unfurl.Errorf(unfurl.ENETWORK, "refused")
		})

		assert.Equal(t, 1, n)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("treats a non-positive maximum as one attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		extract.Retry(context.Background(), extract.RetryPolicy{}, func(context.Context, int) (unfurl.PageMetadata, error) {
			calls++
			return unfurl.PageMetadata{}, nil
		})

		assert.Equal(t, 1, calls)
	})
}
