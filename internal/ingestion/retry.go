package ingestion

import (
	"context"
	"errors"
	"math"
	"time"

	"mitds/internal/mitderr"
)

// RetryConfig mirrors the original with_retry knobs exactly (§4.4 O5):
// max_retries default 3, base_delay default 1s, max_delay default 60s,
// exponential base 2.0.
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second, ExponentialBase: 2.0}
}

// WithRetry wraps fn in exponential backoff, retrying only on errors
// wrapping mitderr.ErrTransientIO or mitderr.ErrRateLimited (the latter
// honoring RateLimit.RetryAfter instead of the computed backoff). After
// exhausting retries, the last error is returned wrapped as permanent
// (§7: "After exhausting retries, treated as a permanent error").
func WithRetry(ctx context.Context, cfg RetryConfig, recordID string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var rl *mitderr.RateLimit
		if errors.As(lastErr, &rl) {
			if !sleep(ctx, rl.RetryAfter) {
				return ctx.Err()
			}
			continue
		}

		if !errors.Is(lastErr, mitderr.ErrTransientIO) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := backoffDelay(cfg, attempt)
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
	}
	return mitderr.Permanent(recordID, lastErr)
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.ExponentialBase, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
