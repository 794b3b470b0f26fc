package opcall

import "time"

// RetryPolicy decides whether a failed attempt should be retried, and after
// how long. attempt is zero-based: the first retry decision sees attempt 0.
type RetryPolicy interface {
	ShouldRetry(attempt int, err error) (time.Duration, bool)
}

// ExponentialBackoff retries up to MaxRetries times with base * 2^attempt
// waits, capped at Cap.
type ExponentialBackoff struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Base is the first backoff interval. Defaults to 1s.
	Base time.Duration

	// Cap bounds the computed backoff. Defaults to 30s.
	Cap time.Duration
}

func (p *ExponentialBackoff) ShouldRetry(attempt int, err error) (time.Duration, bool) {
	if attempt >= p.MaxRetries {
		return 0, false
	}
	base := p.Base
	if base == 0 {
		base = time.Second
	}
	backoff := base * time.Duration(1<<attempt)
	limit := p.Cap
	if limit == 0 {
		limit = 30 * time.Second
	}
	if backoff > limit {
		backoff = limit
	}
	return backoff, true
}

// NoRetry is a policy that never retries.
type NoRetry struct{}

func (NoRetry) ShouldRetry(int, error) (time.Duration, bool) { return 0, false }

var defaultRetryPolicy RetryPolicy = &ExponentialBackoff{MaxRetries: 3}
