package retry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

type Operation = func() error

type Config struct {
	MaxRetries    int
	BackoffFactor float64
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Jitter        time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries:    5,
		BackoffFactor: 2.15,
		InitialDelay:  300 * time.Millisecond,
		MaxDelay:      20 * time.Second,
		Jitter:        50 * time.Millisecond,
	}
}

// permanentError stops Do from retrying.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type Retrier struct {
	config *Config

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRetrier(config *Config) *Retrier {
	return &Retrier{
		config: config,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func NewDefaultRetrier() *Retrier {
	return NewRetrier(NewDefaultConfig())
}

func (r *Retrier) Do(ctx context.Context, op Operation) error {
	var err error
	delay := r.config.InitialDelay

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if attempt == r.config.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.nextDelay(delay)):
		}

		delay = r.grow(delay)
	}
	return err
}

func (r *Retrier) nextDelay(delay time.Duration) time.Duration {
	r.mu.Lock()
	jitter := time.Duration(r.rnd.Float64() * float64(r.config.Jitter))
	r.mu.Unlock()

	next := delay + jitter
	if next > r.config.MaxDelay {
		next = r.config.MaxDelay + jitter
	}
	return next
}

func (r *Retrier) grow(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * r.config.BackoffFactor)
	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	return delay
}
