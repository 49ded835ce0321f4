package recovery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/retry"
)

// =============================================================================
// Helpers
// =============================================================================

func noWait(ctx context.Context, d time.Duration) error { return nil }

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(retry.NewExecutor(retry.WithSleeper(noWait)), nil)
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func failWith(err error, calls *int) retry.Operation[string] {
	return func(ctx context.Context) (string, error) {
		*calls++
		return "", err
	}
}

func supplier(name, v string, err error) Supplier[string] {
	return Supplier[string]{
		Name: name,
		Fn:   func(context.Context) (string, error) { return v, err },
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestWithRecovery_PrimarySuccess(t *testing.T) {
	o := newTestOrchestrator()
	primary := func(ctx context.Context) (string, error) { return "fresh", nil }

	res, err := WithRecovery(context.Background(), o, primary, nil, fastPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value != "fresh" || res.Origin != domain.OriginAuthoritative || res.Source != "primary" {
		t.Errorf("unexpected result %+v", res)
	}

	stats := o.Stats()
	if stats.Calls != 1 || stats.Successes != 1 || stats.ConsecutiveFailures != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestWithRecovery_FallbackExhaustion(t *testing.T) {
	o := newTestOrchestrator()
	calls := 0
	primaryErr := domain.Errorf(domain.KindTimeout, "fetch", "upstream timed out")
	firstErr := errors.New("stale cache empty")
	lastErr := errors.New("no session blobs")

	_, err := WithRecovery(context.Background(), o, failWith(primaryErr, &calls),
		[]Supplier[string]{
			supplier("stale", "", firstErr),
			supplier("session", "", lastErr),
		}, fastPolicy())

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "upstream timed out") || !strings.Contains(err.Error(), "no session blobs") {
		t.Errorf("error should reference both failures: %v", err)
	}
	if !errors.Is(err, primaryErr) || !errors.Is(err, lastErr) {
		t.Error("both failures should be reachable with errors.Is")
	}
	if calls != 3 {
		t.Errorf("expected 3 primary attempts, got %d", calls)
	}

	stats := o.Stats()
	if stats.Exhausted != 1 || stats.FallbackFailures != 2 || stats.Retried != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestWithRecovery_TerminalUsesStaleImmediately(t *testing.T) {
	o := newTestOrchestrator()
	calls := 0
	unauthorized := domain.Errorf(domain.KindUnauthorized, "fetch", "Unauthorized")

	res, err := WithRecovery(context.Background(), o, failWith(unauthorized, &calls),
		[]Supplier[string]{
			supplier("stale", "cached-profile", nil),
			Always("none", ""),
		}, fastPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value != "cached-profile" || res.Origin != domain.OriginFallback || res.Source != "stale" {
		t.Errorf("unexpected result %+v", res)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls)
	}
	if o.Stats().Retried != 0 {
		t.Errorf("expected zero retries, got %d", o.Stats().Retried)
	}
}

func TestWithRecovery_SkipsFailingAndPanickingSuppliers(t *testing.T) {
	o := newTestOrchestrator()
	calls := 0

	res, err := WithRecovery(context.Background(), o,
		failWith(domain.Errorf(domain.KindNotFound, "fetch", "gone"), &calls),
		[]Supplier[string]{
			supplier("broken", "", errors.New("boom")),
			{Name: "panics", Fn: func(context.Context) (string, error) { panic("nil deref") }},
			{Name: "session", Origin: domain.OriginDerived, Fn: func(context.Context) (string, error) {
				return "synthesized", nil
			}},
		}, fastPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value != "synthesized" || res.Origin != domain.OriginDerived {
		t.Errorf("unexpected result %+v", res)
	}
	if o.Stats().FallbackFailures != 2 || o.Stats().FallbackUsed != 1 {
		t.Errorf("unexpected stats %+v", o.Stats())
	}
}

func TestWithRecovery_EmptyChain(t *testing.T) {
	o := newTestOrchestrator()
	calls := 0
	primaryErr := domain.Errorf(domain.KindUnauthorized, "fetch", "Unauthorized")

	_, err := WithRecovery(context.Background(), o, failWith(primaryErr, &calls), nil, fastPolicy())

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Fallback != nil {
		t.Fatalf("expected ExhaustedError without fallback, got %v", err)
	}
	if !errors.Is(err, primaryErr) {
		t.Error("primary failure should be reachable")
	}
}

func TestWithRecovery_PrimaryPanicIsFailure(t *testing.T) {
	o := newTestOrchestrator()
	primary := func(ctx context.Context) (string, error) { panic("bug") }

	res, err := WithRecovery(context.Background(), o, primary,
		[]Supplier[string]{Always("none", "")}, fastPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "none" {
		t.Errorf("expected terminal supplier to win, got %+v", res)
	}
	if o.Stats().Retried != 0 {
		t.Error("a panic must not be retried")
	}
}

func TestStats_StreakAndSuccessRate(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	calls := 0
	bad := failWith(domain.Errorf(domain.KindUnauthorized, "", "Unauthorized"), &calls)
	good := func(ctx context.Context) (string, error) { return "ok", nil }
	chain := []Supplier[string]{Always("none", "")}

	_, _ = WithRecovery(ctx, o, bad, chain, fastPolicy())
	_, _ = WithRecovery(ctx, o, bad, chain, fastPolicy())
	if s := o.Stats(); s.ConsecutiveFailures != 2 || s.CircuitClosed() {
		t.Errorf("expected open streak of 2, got %+v", s)
	}

	_, _ = WithRecovery(ctx, o, good, chain, fastPolicy())
	s := o.Stats()
	if !s.CircuitClosed() {
		t.Error("success should reset the failure streak")
	}
	if got := s.SuccessRate(); got < 0.333 || got > 0.334 {
		t.Errorf("expected success rate 1/3, got %v", got)
	}
	if (Stats{}).SuccessRate() != 0 {
		t.Error("expected 0 success rate with no calls")
	}
}

func TestStats_CallerCancellationIsNotAFailure(t *testing.T) {
	o := newTestOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	primary := func(ctx context.Context) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	res, err := WithRecovery(ctx, o, primary,
		[]Supplier[string]{supplier("stale", "cached", nil)}, fastPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != "stale" {
		t.Errorf("expected stale fallback, got %+v", res)
	}

	s := o.Stats()
	if s.Cancelled != 1 {
		t.Errorf("expected 1 cancelled call, got %d", s.Cancelled)
	}
	if s.Calls != 0 || s.Failures != 0 || !s.CircuitClosed() {
		t.Errorf("cancellation must not count as a failure, got %+v", s)
	}
}
