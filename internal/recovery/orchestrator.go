// Package recovery composes retries with an ordered chain of fallback
// suppliers so that a call degrades instead of failing.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/retry"
)

// Supplier produces a substitute value when the primary operation failed.
type Supplier[T any] struct {
	Name string
	// Origin tags the value this supplier produces. Empty means fallback.
	Origin domain.Origin
	Fn     func(ctx context.Context) (T, error)
}

// Always returns a supplier that never fails. Terminating a chain with it
// guarantees WithRecovery never returns an error.
func Always[T any](name string, v T) Supplier[T] {
	return Supplier[T]{
		Name: name,
		Fn:   func(context.Context) (T, error) { return v, nil },
	}
}

// Result is the value produced by WithRecovery and where it came from.
type Result[T any] struct {
	Value  T
	Origin domain.Origin
	// Source is "primary" or the winning supplier's name.
	Source string
}

// Orchestrator runs primaries through a retry executor and falls back along
// a supplier chain. It is safe for concurrent use.
type Orchestrator struct {
	executor *retry.Executor
	log      *slog.Logger
	now      func() time.Time
	stats    tracker
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(executor *retry.Executor, log *slog.Logger) *Orchestrator {
	if executor == nil {
		executor = retry.NewExecutor()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		executor: executor,
		log:      log.With("component", "recovery"),
		now:      time.Now,
	}
}

// Stats returns a snapshot of the orchestrator counters.
func (o *Orchestrator) Stats() Stats {
	s := o.stats.snapshot()
	s.Retried = o.executor.Stats().Retries
	return s
}

// WithRecovery runs primary under policy. When it fails, suppliers are tried
// in order and the first one to return without error or panic wins. If every
// supplier fails an *ExhaustedError referencing the primary failure and the
// last fallback failure is returned.
func WithRecovery[T any](
	ctx context.Context,
	o *Orchestrator,
	primary retry.Operation[T],
	chain []Supplier[T],
	policy retry.Policy,
) (Result[T], error) {
	callID := uuid.NewString()
	start := o.now()

	guarded := func(ctx context.Context) (T, error) {
		return invoke(ctx, primary)
	}
	value, err := retry.Execute(ctx, o.executor, guarded, policy)
	latency := o.now().Sub(start)

	if err == nil {
		o.stats.recordSuccess(latency)
		return Result[T]{Value: value, Origin: domain.OriginAuthoritative, Source: "primary"}, nil
	}

	if ctx.Err() != nil {
		o.stats.recordCancelled()
		o.log.Debug("Primary abandoned by caller, falling back", "call", callID, "error", err)
	} else {
		o.stats.recordFailure(latency)
		o.log.Warn("Primary failed, falling back",
			"call", callID, "kind", domain.KindOf(err).String(), "error", err)
	}

	var lastErr error
	for _, s := range chain {
		value, ferr := invoke(ctx, s.Fn)
		if ferr != nil {
			lastErr = ferr
			o.stats.recordFallback(false)
			o.log.Warn("Fallback failed", "call", callID, "supplier", s.Name, "error", ferr)
			continue
		}

		o.stats.recordFallback(true)
		origin := s.Origin
		if origin == "" {
			origin = domain.OriginFallback
		}
		o.log.Info("Served from fallback", "call", callID, "supplier", s.Name, "origin", origin)
		return Result[T]{Value: value, Origin: origin, Source: s.Name}, nil
	}

	o.stats.recordExhausted()
	return Result[T]{}, &ExhaustedError{Primary: err, Fallback: lastErr}
}

// invoke runs fn, turning a panic into an error.
func invoke[T any](ctx context.Context, fn func(context.Context) (T, error)) (value T, err error) {
	if fn == nil {
		return value, fmt.Errorf("nil operation")
	}
	recovered := panics.Try(func() {
		value, err = fn(ctx)
	})
	if recovered != nil {
		var zero T
		return zero, fmt.Errorf("operation panicked: %w", recovered.AsError())
	}
	return value, err
}
