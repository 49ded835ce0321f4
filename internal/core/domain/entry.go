package domain

import "time"

// Origin is the provenance tag of a cached or served record.
type Origin string

const (
	OriginAuthoritative Origin = "authoritative" // primary source
	OriginDerived       Origin = "derived"       // synthesized from local data
	OriginFallback      Origin = "fallback"      // best-effort substitute
)

// Tier names a cache layer.
type Tier string

const (
	TierMemory  Tier = "memory"
	TierSession Tier = "session"
	TierDurable Tier = "durable"
)

// Entry is a cached payload with its metadata. Entries are never mutated in
// place; writing a key replaces the whole entry.
type Entry[T any] struct {
	Payload       T         `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
	SchemaVersion string    `json:"schema_version"`
	ExpiresAt     time.Time `json:"expires_at"`
	Origin        Origin    `json:"origin"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry[T]) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// WithExpiry returns a copy of the entry expiring at t. CreatedAt is kept.
func (e *Entry[T]) WithExpiry(t time.Time) *Entry[T] {
	cp := *e
	cp.ExpiresAt = t
	return &cp
}
