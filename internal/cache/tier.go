package cache

import (
	"fmt"
	"time"

	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/infra/storage"
)

// Tier describes one cache layer. Tiers are consulted in slice order, so the
// fastest tier comes first.
type Tier struct {
	Name    domain.Tier
	TTL     time.Duration
	Backend storage.Backend

	// Durable tiers only accept authoritative entries the eligibility
	// predicate approves.
	Durable bool

	// Swept tiers are written without a backend deadline; the sweeper and
	// lazy read-time checks evict them.
	Swept bool
}

func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}
	for i, t := range tiers {
		if t.Backend == nil {
			return fmt.Errorf("tier %s: backend is nil", t.Name)
		}
		if t.TTL <= 0 {
			return fmt.Errorf("tier %s: ttl must be positive", t.Name)
		}
		if i > 0 && t.TTL <= tiers[i-1].TTL {
			return fmt.Errorf("tier %s: ttl %v must exceed %s ttl %v",
				t.Name, t.TTL, tiers[i-1].Name, tiers[i-1].TTL)
		}
	}
	return nil
}
