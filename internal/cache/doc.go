// Package cache implements the tiered subject-record cache.
//
// A Store walks an ordered list of tiers (memory, session, durable) on every
// read. Each tier validates expiry and schema version on its own; the first
// valid hit is promoted into every faster tier with its original creation
// time. Backend failures never escape the store: they are logged and counted.
package cache
