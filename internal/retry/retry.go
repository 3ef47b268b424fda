// Package retry implements the bounded exponential backoff applied to
// upstream calls that fail with rate limits or transient server errors.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/designsync/internal/apperr"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of attempts after the first. 0 disables retry.
	MaxRetries int `yaml:"maxRetries" env:"RETRY_MAX,overwrite"`
	// BaseBackoff is the delay before the first retry; it doubles each time.
	BaseBackoff time.Duration `yaml:"baseBackoff" env:"RETRY_BASE_BACKOFF,overwrite"`
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration `yaml:"maxBackoff" env:"RETRY_MAX_BACKOFF,overwrite"`
	// MaxJitter is the upper bound of random delay added to each backoff.
	MaxJitter time.Duration `yaml:"maxJitter" env:"RETRY_MAX_JITTER,overwrite"`
}

// Default returns the policy used when nothing is configured.
func Default() Config {
	return Config{
		MaxRetries:  3,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Validate checks that no field is negative.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 || c.MaxJitter < 0 {
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

// Retryable reports whether err is a rate limit, a 5xx, or a transport
// failure.
func Retryable(err error) bool {
	e, ok := apperr.As(err)
	if !ok {
		return false
	}
	switch e.Code {
	case apperr.CodeTransport:
		return true
	case apperr.CodeUpstream:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return false
}

// Do runs fn until it succeeds, returns a non-retryable error, or the retry
// budget is spent.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := delay(cfg, attempt) + jitter(cfg.MaxJitter)

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", backoff).
			With("error", lastErr.Error()).
			Warn("Upstream call failed, retrying")

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

// maxDelay leaves headroom for jitter so the sum cannot overflow.
const maxDelay = time.Duration(math.MaxInt64 / 2)

// delay is BaseBackoff doubled attempt times, capped at MaxBackoff and
// saturating instead of overflowing.
func delay(cfg Config, attempt int) time.Duration {
	d := cfg.BaseBackoff
	for range attempt {
		if d <= 0 || (cfg.MaxBackoff > 0 && d >= cfg.MaxBackoff) {
			break
		}
		if d > maxDelay/2 {
			d = maxDelay
			break
		}
		d *= 2
	}
	if cfg.MaxBackoff > 0 {
		d = min(d, cfg.MaxBackoff)
	}
	return min(d, maxDelay)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
