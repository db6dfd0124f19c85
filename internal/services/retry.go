package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Retry is an explicit backoff policy for fetch-style flows that used to be
// retried ad hoc. Delay doubles per attempt up to MaxDelay.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetry suits profile-fetch-like reads: quick, bounded, not chatty.
var DefaultRetry = Retry{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done. The
// last error is returned.
func (r Retry) Do(ctx context.Context, clk clockwork.Clock, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := r.BaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		timer := clk.NewTimer(delay)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		delay *= 2
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}
	return err
}
