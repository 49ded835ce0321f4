package recovery

import (
	"sync"
	"time"
)

const latencyWindow = 100

// Stats is a point-in-time copy of orchestrator counters.
type Stats struct {
	Calls               int64         `json:"calls"`
	Successes           int64         `json:"successes"`
	Failures            int64         `json:"failures"`
	Retried             int64         `json:"retried"`
	FallbackUsed        int64         `json:"fallback_used"`
	FallbackFailures    int64         `json:"fallback_failures"`
	Exhausted           int64         `json:"exhausted"`
	Cancelled           int64         `json:"cancelled"`
	ConsecutiveFailures int64         `json:"consecutive_failures"`
	AverageLatency      time.Duration `json:"average_latency"`
}

// SuccessRate is primary successes over calls, 0 when there were no calls.
func (s Stats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Calls)
}

// CircuitClosed reports whether the current failure streak is empty.
func (s Stats) CircuitClosed() bool {
	return s.ConsecutiveFailures == 0
}

type tracker struct {
	mu sync.RWMutex

	calls            int64
	successes        int64
	failures         int64
	fallbackUsed     int64
	fallbackFailures int64
	exhausted        int64
	cancelled        int64
	streak           int64

	recentLatencies []time.Duration
}

func (t *tracker) recordSuccess(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.successes++
	t.streak = 0
	t.addLatency(latency)
}

func (t *tracker) recordFailure(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.failures++
	t.streak++
	t.addLatency(latency)
}

func (t *tracker) recordFallback(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.fallbackUsed++
	} else {
		t.fallbackFailures++
	}
}

func (t *tracker) recordExhausted() {
	t.mu.Lock()
	t.exhausted++
	t.mu.Unlock()
}

// recordCancelled counts a primary abandoned by its caller. It leaves the
// call count and failure streak alone.
func (t *tracker) recordCancelled() {
	t.mu.Lock()
	t.cancelled++
	t.mu.Unlock()
}

func (t *tracker) addLatency(latency time.Duration) {
	t.recentLatencies = append(t.recentLatencies, latency)
	if len(t.recentLatencies) > latencyWindow {
		t.recentLatencies = t.recentLatencies[1:]
	}
}

func (t *tracker) snapshot() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		Calls:               t.calls,
		Successes:           t.successes,
		Failures:            t.failures,
		FallbackUsed:        t.fallbackUsed,
		FallbackFailures:    t.fallbackFailures,
		Exhausted:           t.exhausted,
		Cancelled:           t.cancelled,
		ConsecutiveFailures: t.streak,
	}
	if len(t.recentLatencies) > 0 {
		var total time.Duration
		for _, lat := range t.recentLatencies {
			total += lat
		}
		s.AverageLatency = total / time.Duration(len(t.recentLatencies))
	}
	return s
}
