package cache

import (
	"sync/atomic"

	"github.com/vietddude/profilecache/internal/core/domain"
)

type tierCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

type counters struct {
	tiers      []tierCounters
	writes     atomic.Int64
	promotions atomic.Int64
	evictions  atomic.Int64
	staleReads atomic.Int64
}

// TierStats holds the counters of one tier.
type TierStats struct {
	Name   domain.Tier `json:"name"`
	Hits   int64       `json:"hits"`
	Misses int64       `json:"misses"`
	Errors int64       `json:"errors"`
}

// Stats is a point-in-time copy of cache counters.
type Stats struct {
	Tiers      []TierStats `json:"tiers"`
	Hits       int64       `json:"hits"`
	Misses     int64       `json:"misses"`
	Errors     int64       `json:"errors"`
	Writes     int64       `json:"writes"`
	Promotions int64       `json:"promotions"`
	Evictions  int64       `json:"evictions"`
	StaleReads int64       `json:"stale_reads"`
}

// Lookups is the number of tier consultations, each being a hit or a miss.
func (s Stats) Lookups() int64 {
	return s.Hits + s.Misses
}

// HitRate returns hits over lookups as a value between 0 and 1.
// Returns 0 if there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Lookups()
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Tier returns the counters of the named tier.
func (s Stats) Tier(name domain.Tier) TierStats {
	for _, t := range s.Tiers {
		if t.Name == name {
			return t
		}
	}
	return TierStats{Name: name}
}

func (c *counters) snapshot(tiers []Tier) Stats {
	s := Stats{
		Tiers:      make([]TierStats, len(tiers)),
		Writes:     c.writes.Load(),
		Promotions: c.promotions.Load(),
		Evictions:  c.evictions.Load(),
		StaleReads: c.staleReads.Load(),
	}
	for i := range tiers {
		ts := TierStats{
			Name:   tiers[i].Name,
			Hits:   c.tiers[i].hits.Load(),
			Misses: c.tiers[i].misses.Load(),
			Errors: c.tiers[i].errors.Load(),
		}
		s.Tiers[i] = ts
		s.Hits += ts.Hits
		s.Misses += ts.Misses
		s.Errors += ts.Errors
	}
	return s
}
