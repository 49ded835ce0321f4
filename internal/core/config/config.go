package config

import (
	"time"

	redisclient "github.com/vietddude/profilecache/internal/infra/redis"
	"github.com/vietddude/profilecache/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Cache    CacheConfig        `yaml:"cache"`
	Retry    RetryConfig        `yaml:"retry"`
	Source   SourceConfig       `yaml:"source"`
	Profile  ProfileConfig      `yaml:"profile"`
	Metrics  MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// CacheConfig holds tier settings. Tiers whose backend is not configured
// fall back to process memory.
type CacheConfig struct {
	Prefix              string        `yaml:"prefix"`
	SchemaVersion       string        `yaml:"schema_version"`
	MemoryTTL           time.Duration `yaml:"memory_ttl"`
	SessionTTL          time.Duration `yaml:"session_ttl"`
	DurableTTL          time.Duration `yaml:"durable_ttl"`
	MemoryMaxItems      int           `yaml:"memory_max_items"` // 0 = unlimited
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	PruneInterval       time.Duration `yaml:"prune_interval"`
	StaleGrace          time.Duration `yaml:"stale_grace"`
	StaleCapacity       int           `yaml:"stale_capacity"`
	DurableEligibility  string        `yaml:"durable_eligibility"`  // rule, empty = always
	EligibilityLanguage string        `yaml:"eligibility_language"` // expr (default) or cel
}

// RetryConfig holds the source retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      *float64      `yaml:"jitter"`
}

// SourceConfig selects the authoritative profile source.
type SourceConfig struct {
	Kind    string        `yaml:"kind"` // http or postgres
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ProfileConfig holds profile service behaviour.
type ProfileConfig struct {
	Dedupe           bool   `yaml:"dedupe"`
	SessionSynthesis *bool  `yaml:"session_synthesis"`
	SessionPattern   string `yaml:"session_pattern"`
	SessionScanLimit int    `yaml:"session_scan_limit"`
	WarmConcurrency  int    `yaml:"warm_concurrency"`
}

// SynthesisEnabled reports whether session synthesis is on. It defaults to
// true when unset.
func (p ProfileConfig) SynthesisEnabled() bool {
	return p.SessionSynthesis == nil || *p.SessionSynthesis
}

// MetricsConfig holds health evaluation settings.
type MetricsConfig struct {
	LatencyThreshold time.Duration `yaml:"latency_threshold"`
}
