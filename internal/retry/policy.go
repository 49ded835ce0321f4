package retry

import (
	"math"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64

	// IsRetryable decides whether a non-terminal error is worth another
	// attempt. Nil retries transient kinds only.
	IsRetryable func(error) bool
}

// DefaultPolicy provides the tuned defaults: 3 attempts, 500ms base, 5s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		JitterFactor: 0.2,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the capped delay after failed attempt (0-indexed), before jitter.
// BaseDelay * 2^attempt, capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// MaxWait is the upper bound of the total time spent waiting between
// attempts: the capped geometric series with full jitter applied.
func (p Policy) MaxWait() time.Duration {
	var total time.Duration
	for a := 0; a < p.attempts()-1; a++ {
		d := p.Backoff(a)
		total += d + time.Duration(p.JitterFactor*float64(d))
	}
	return total
}

// Action determines how to handle an error.
type Action int

const (
	ActionRetry  Action = iota
	ActionStop          // terminal: never retried
	ActionGiveUp        // not worth retrying
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionStop:
		return "stop"
	default:
		return "give_up"
	}
}

// Classify determines the action for err under p. Terminal kinds always
// stop; unclassified errors are not retried unless the policy says so.
func (p Policy) Classify(err error) Action {
	kind := domain.KindOf(err)
	if kind.Terminal() {
		return ActionStop
	}

	retryable := kind.Transient()
	if p.IsRetryable != nil {
		retryable = p.IsRetryable(err)
	}
	if retryable {
		return ActionRetry
	}
	return ActionGiveUp
}
