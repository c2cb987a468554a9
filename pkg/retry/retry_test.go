package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:    maxRetries,
		BackoffFactor: 2.0,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		Jitter:        time.Millisecond,
	}
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	counter := 0
	err := NewDefaultRetrier().Do(context.Background(), func() error {
		counter++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, counter)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	counter := 0
	err := NewRetrier(fastConfig(5)).Do(context.Background(), func() error {
		counter++
		if counter < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, counter)
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	expectedErr := errors.New("permanent error")
	counter := 0
	err := NewRetrier(fastConfig(2)).Do(context.Background(), func() error {
		counter++
		return expectedErr
	})

	require.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 3, counter) // initial try + 2 retries
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	cause := errors.New("bad request")
	counter := 0
	err := NewRetrier(fastConfig(5)).Do(context.Background(), func() error {
		counter++
		return Permanent(cause)
	})

	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, counter)
	assert.Nil(t, Permanent(nil))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := NewDefaultRetrier().Do(ctx, func() error {
		cancel()
		return errors.New("operation error after cancel")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetry_BackoffAndJitter(t *testing.T) {
	config := &Config{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		Jitter:        50 * time.Millisecond,
	}

	start := time.Now()
	counter := 0
	_ = NewRetrier(config).Do(context.Background(), func() error {
		counter++
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// two sleeps: 100ms+j1 and 200ms+j2
	minExpected := 300 * time.Millisecond
	maxExpected := 400*time.Millisecond + 100*time.Millisecond

	assert.GreaterOrEqual(t, elapsed, minExpected)
	assert.LessOrEqual(t, elapsed, maxExpected)
	assert.Equal(t, 3, counter)
}

func TestSupervise_RestartsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewRetrier(fastConfig(0)).Supervise(ctx, "listener", func(ctx context.Context) error {
			if atomic.AddInt32(&runs, 1) == 3 {
				cancel()
				<-ctx.Done()
				return ctx.Err()
			}
			return errors.New("connection reset")
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))
}

func TestSupervise_ReturnsWhenContextAlreadyDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs int32
	NewRetrier(fastConfig(0)).Supervise(ctx, "listener", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}
