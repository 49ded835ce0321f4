package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Operation is a unit of work that may be retried.
type Operation[T any] func(ctx context.Context) (T, error)

// Executor runs operations under a Policy and counts attempts and retries.
// It is safe for concurrent use.
type Executor struct {
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
	log    *slog.Logger

	attempts atomic.Int64
	retries  atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the wait between attempts.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithRandom replaces the jitter source; it must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(e *Executor) { e.random = random }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		sleep:  sleepContext,
		random: rand.Float64,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "retry")
	return e
}

// Stats reports cumulative counters.
type Stats struct {
	Attempts int64 `json:"attempts"`
	Retries  int64 `json:"retries"`
}

// Stats returns the cumulative attempt and retry counts.
func (e *Executor) Stats() Stats {
	return Stats{Attempts: e.attempts.Load(), Retries: e.retries.Load()}
}

// Delay returns the wait after failed attempt (0-indexed), jitter included:
// d = min(BaseDelay*2^attempt, MaxDelay); d += uniform(0, JitterFactor*d).
func (e *Executor) Delay(attempt int, p Policy) time.Duration {
	d := p.Backoff(attempt)
	if p.JitterFactor > 0 {
		d += time.Duration(e.random() * p.JitterFactor * float64(d))
	}
	return d
}

// Execute runs op until it succeeds, a terminal or non-retryable error is
// returned, or p.MaxAttempts attempts have been made. Cancelling ctx aborts a
// pending wait.
func Execute[T any](ctx context.Context, e *Executor, op Operation[T], p Policy) (T, error) {
	var (
		zero    T
		lastErr error
	)
	maxAttempts := p.attempts()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		e.attempts.Add(1)
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		action := p.Classify(err)
		if action != ActionRetry {
			e.log.Debug("Not retrying", "attempt", attempt+1, "action", action.String(), "error", err)
			return zero, err
		}

		if attempt == maxAttempts-1 {
			break
		}

		delay := e.Delay(attempt, p)
		e.log.Debug("Retrying after backoff", "attempt", attempt+1, "delay", delay, "error", err)
		e.retries.Add(1)
		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry aborted after %d attempts: %w", attempt+1, lastErr)
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
