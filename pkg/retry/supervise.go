package retry

import (
	"context"
	"time"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

// Task is a long-running unit that returns only when it stops working.
type Task = func(ctx context.Context) error

// Supervise keeps task running until ctx is cancelled. Every return from task,
// with or without an error, is treated as a crash and the task is restarted
// after a backoff delay. A run that stayed up longer than MaxDelay resets the
// backoff to InitialDelay.
func (r *Retrier) Supervise(ctx context.Context, name string, task Task) {
	logger := log.FromCtx(ctx).With().Str("task", name).Logger()
	delay := r.config.InitialDelay

	for restarts := 0; ; restarts++ {
		started := time.Now()
		err := task(ctx)
		if ctx.Err() != nil {
			logger.Debug().Msg("supervised task stopped")
			return
		}

		if time.Since(started) > r.config.MaxDelay {
			delay = r.config.InitialDelay
		}

		wait := r.nextDelay(delay)
		logger.Warn().
			Err(err).
			Int("restarts", restarts).
			Dur("backoff", wait).
			Msg("supervised task exited, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		delay = r.grow(delay)
	}
}
