package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds the Prometheus series published for the pipeline. The
// counter and gauge values are read from the aggregator at scrape time.
type Collectors struct {
	DBPoolUsage prometheus.Gauge
}

// Register publishes the aggregator's snapshot on reg.
func Register(reg prometheus.Registerer, agg *Aggregator) *Collectors {
	factory := promauto.With(reg)
	reg.MustRegister(&snapshotCollector{agg: agg})

	return &Collectors{
		DBPoolUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "profilecache_db_pool_usage_percent",
			Help: "Durable tier connection pool usage",
		}),
	}
}

var (
	tierHitsDesc = prometheus.NewDesc(
		"profilecache_cache_hits_total", "Cache hits per tier", []string{"tier"}, nil)
	tierMissesDesc = prometheus.NewDesc(
		"profilecache_cache_misses_total", "Cache misses per tier", []string{"tier"}, nil)
	tierErrorsDesc = prometheus.NewDesc(
		"profilecache_cache_errors_total", "Swallowed storage errors per tier", []string{"tier"}, nil)
	hitRateDesc = prometheus.NewDesc(
		"profilecache_cache_hit_rate", "Hits over lookups", nil, nil)
	evictionsDesc = prometheus.NewDesc(
		"profilecache_cache_evictions_total", "Entries evicted on expiry or sweep", nil, nil)
	promotionsDesc = prometheus.NewDesc(
		"profilecache_cache_promotions_total", "Entries copied into faster tiers", nil, nil)

	callsDesc = prometheus.NewDesc(
		"profilecache_recovery_calls_total", "Primary calls", nil, nil)
	successesDesc = prometheus.NewDesc(
		"profilecache_recovery_successes_total", "Primary calls that succeeded", nil, nil)
	retriedDesc = prometheus.NewDesc(
		"profilecache_recovery_retries_total", "Retries performed by the executor", nil, nil)
	fallbackDesc = prometheus.NewDesc(
		"profilecache_recovery_fallback_used_total", "Calls served by a fallback supplier", nil, nil)
	exhaustedDesc = prometheus.NewDesc(
		"profilecache_recovery_exhausted_total", "Calls where every fallback failed", nil, nil)
	cancelledDesc = prometheus.NewDesc(
		"profilecache_recovery_cancelled_total", "Primary calls abandoned by the caller", nil, nil)
	streakDesc = prometheus.NewDesc(
		"profilecache_recovery_failure_streak", "Current consecutive primary failures", nil, nil)
	latencyDesc = prometheus.NewDesc(
		"profilecache_recovery_latency_seconds_avg", "Rolling average primary latency", nil, nil)
	healthDesc = prometheus.NewDesc(
		"profilecache_health_gates_passed", "Number of passing health gates (0-4)", nil, nil)
)

type snapshotCollector struct {
	agg *Aggregator
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		tierHitsDesc, tierMissesDesc, tierErrorsDesc, hitRateDesc, evictionsDesc, promotionsDesc,
		callsDesc, successesDesc, retriedDesc, fallbackDesc, exhaustedDesc, cancelledDesc,
		streakDesc, latencyDesc, healthDesc,
	} {
		ch <- d
	}
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.agg.Snapshot()

	for _, t := range snap.Cache.Tiers {
		tier := string(t.Name)
		ch <- prometheus.MustNewConstMetric(tierHitsDesc, prometheus.CounterValue, float64(t.Hits), tier)
		ch <- prometheus.MustNewConstMetric(tierMissesDesc, prometheus.CounterValue, float64(t.Misses), tier)
		ch <- prometheus.MustNewConstMetric(tierErrorsDesc, prometheus.CounterValue, float64(t.Errors), tier)
	}
	ch <- prometheus.MustNewConstMetric(hitRateDesc, prometheus.GaugeValue, snap.Cache.HitRate)
	ch <- prometheus.MustNewConstMetric(evictionsDesc, prometheus.CounterValue, float64(snap.Cache.Evictions))
	ch <- prometheus.MustNewConstMetric(promotionsDesc, prometheus.CounterValue, float64(snap.Cache.Promotions))

	r := snap.Recovery
	ch <- prometheus.MustNewConstMetric(callsDesc, prometheus.CounterValue, float64(r.Calls))
	ch <- prometheus.MustNewConstMetric(successesDesc, prometheus.CounterValue, float64(r.Successes))
	ch <- prometheus.MustNewConstMetric(retriedDesc, prometheus.CounterValue, float64(r.Retried))
	ch <- prometheus.MustNewConstMetric(fallbackDesc, prometheus.CounterValue, float64(r.FallbackUsed))
	ch <- prometheus.MustNewConstMetric(exhaustedDesc, prometheus.CounterValue, float64(r.Exhausted))
	ch <- prometheus.MustNewConstMetric(cancelledDesc, prometheus.CounterValue, float64(r.Cancelled))
	ch <- prometheus.MustNewConstMetric(streakDesc, prometheus.GaugeValue, float64(r.ConsecutiveFailures))
	ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue, r.AverageLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(healthDesc, prometheus.GaugeValue, float64(snap.Gates.Passed()))
}
