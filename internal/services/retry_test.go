package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	policy := Retry{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), clockwork.NewRealClock(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := Retry{MaxAttempts: 2, BaseDelay: time.Millisecond}

	wantErr := errors.New("still down")
	calls := 0
	err := policy.Do(context.Background(), clockwork.NewRealClock(), func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsContextCancel(t *testing.T) {
	policy := Retry{MaxAttempts: 5, BaseDelay: time.Minute}
	clk := clockwork.NewFakeClock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, clk, func() error {
			return errors.New("transient")
		})
	}()

	// wait for the first backoff sleep, then cancel instead of advancing
	clk.BlockUntil(1)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryCapsDelay(t *testing.T) {
	policy := Retry{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 150 * time.Millisecond}
	clk := clockwork.NewFakeClock()

	done := make(chan error, 1)
	go func() {
		done <- policy.Do(context.Background(), clk, func() error {
			return errors.New("transient")
		})
	}()

	// three sleeps: 100ms, then 150ms twice (capped)
	clk.BlockUntil(1)
	clk.Advance(100 * time.Millisecond)
	clk.BlockUntil(1)
	clk.Advance(150 * time.Millisecond)
	clk.BlockUntil(1)
	clk.Advance(150 * time.Millisecond)

	err := <-done
	assert.Error(t, err)
}
