// Package metrics aggregates cache and recovery counters into a health
// snapshot and exposes them to Prometheus.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/profilecache/internal/cache"
	"github.com/vietddude/profilecache/internal/recovery"
)

// Health is an ordinal summary of the pipeline, best first.
type Health string

const (
	HealthExcellent      Health = "EXCELLENT"
	HealthGood           Health = "GOOD"
	HealthFair           Health = "FAIR"
	HealthNeedsAttention Health = "NEEDS_ATTENTION"
)

// Gate thresholds.
const (
	HitRateThreshold     = 0.70
	SuccessRateThreshold = 0.95

	DefaultLatencyThreshold = time.Second
)

// CacheSource provides cache counters.
type CacheSource interface {
	Stats() cache.Stats
}

// RecoverySource provides recovery counters.
type RecoverySource interface {
	Stats() recovery.Stats
}

// CacheSnapshot is cache.Stats plus its derived hit rate.
type CacheSnapshot struct {
	cache.Stats
	Lookups int64   `json:"lookups"`
	HitRate float64 `json:"hit_rate"`
}

// RecoverySnapshot is recovery.Stats plus its derived success rate.
type RecoverySnapshot struct {
	recovery.Stats
	SuccessRate   float64 `json:"success_rate"`
	CircuitClosed bool    `json:"circuit_closed"`
}

// Gates records which health gates passed.
type Gates struct {
	HitRate       bool `json:"hit_rate"`
	CircuitClosed bool `json:"circuit_closed"`
	Latency       bool `json:"latency"`
	SuccessRate   bool `json:"success_rate"`
}

// Passed counts passing gates.
func (g Gates) Passed() int {
	n := 0
	for _, ok := range []bool{g.HitRate, g.CircuitClosed, g.Latency, g.SuccessRate} {
		if ok {
			n++
		}
	}
	return n
}

// Snapshot is the aggregated view of the pipeline.
type Snapshot struct {
	Cache    CacheSnapshot    `json:"cache"`
	Recovery RecoverySnapshot `json:"recovery"`
	Gates    Gates            `json:"gates"`
	Health   Health           `json:"health"`
}

// Aggregator derives snapshots from live components. Reading a snapshot has
// no side effects, so it is safe to poll.
type Aggregator struct {
	cache            CacheSource
	recovery         RecoverySource
	latencyThreshold time.Duration
}

// NewAggregator creates an Aggregator. A non-positive latencyThreshold uses
// DefaultLatencyThreshold.
func NewAggregator(c CacheSource, r RecoverySource, latencyThreshold time.Duration) *Aggregator {
	if latencyThreshold <= 0 {
		latencyThreshold = DefaultLatencyThreshold
	}
	return &Aggregator{cache: c, recovery: r, latencyThreshold: latencyThreshold}
}

// Snapshot reads current counters and derives rates and health.
func (a *Aggregator) Snapshot() Snapshot {
	var cs cache.Stats
	if a.cache != nil {
		cs = a.cache.Stats()
	}
	var rs recovery.Stats
	if a.recovery != nil {
		rs = a.recovery.Stats()
	}
	return Evaluate(cs, rs, a.latencyThreshold)
}

// Evaluate derives a snapshot from raw counters.
func Evaluate(cs cache.Stats, rs recovery.Stats, latencyThreshold time.Duration) Snapshot {
	snap := Snapshot{
		Cache: CacheSnapshot{
			Stats:   cs,
			Lookups: cs.Lookups(),
			HitRate: cs.HitRate(),
		},
		Recovery: RecoverySnapshot{
			Stats:         rs,
			SuccessRate:   rs.SuccessRate(),
			CircuitClosed: rs.CircuitClosed(),
		},
	}

	snap.Gates = Gates{
		HitRate:       snap.Cache.HitRate > HitRateThreshold,
		CircuitClosed: snap.Recovery.CircuitClosed,
		Latency:       rs.AverageLatency < latencyThreshold,
		SuccessRate:   snap.Recovery.SuccessRate > SuccessRateThreshold,
	}
	snap.Health = healthFor(snap.Gates.Passed())
	return snap
}

func healthFor(passed int) Health {
	switch {
	case passed >= 4:
		return HealthExcellent
	case passed == 3:
		return HealthGood
	case passed == 2:
		return HealthFair
	default:
		return HealthNeedsAttention
	}
}

// Report is the exported form of a snapshot.
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Snapshot    Snapshot  `json:"snapshot"`
}

// NewReport wraps the current snapshot with an id and timestamp.
func (a *Aggregator) NewReport() Report {
	return Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Snapshot:    a.Snapshot(),
	}
}

// Export writes a report as indented JSON.
func (a *Aggregator) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.NewReport()); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
