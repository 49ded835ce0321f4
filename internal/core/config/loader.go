package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables and
// applying defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	cc := &c.Cache
	if cc.Prefix == "" {
		cc.Prefix = "profile:"
	}
	if cc.SchemaVersion == "" {
		cc.SchemaVersion = "1"
	}
	if cc.MemoryTTL == 0 {
		cc.MemoryTTL = 5 * time.Minute
	}
	if cc.SessionTTL == 0 {
		cc.SessionTTL = 30 * time.Minute
	}
	if cc.DurableTTL == 0 {
		cc.DurableTTL = 24 * time.Hour
	}
	if cc.SweepInterval == 0 {
		cc.SweepInterval = time.Minute
	}
	if cc.PruneInterval == 0 {
		cc.PruneInterval = 10 * time.Minute
	}
	if cc.StaleGrace == 0 {
		cc.StaleGrace = 24 * time.Hour
	}

	rc := &c.Retry
	if rc.MaxAttempts == 0 {
		rc.MaxAttempts = 3
	}
	if rc.BaseDelay == 0 {
		rc.BaseDelay = 500 * time.Millisecond
	}
	if rc.MaxDelay == 0 {
		rc.MaxDelay = 5 * time.Second
	}
	if rc.Jitter == nil {
		j := 0.2
		rc.Jitter = &j
	}

	if c.Source.Kind == "" {
		c.Source.Kind = "http"
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 10 * time.Second
	}

	if c.Profile.SessionPattern == "" {
		c.Profile.SessionPattern = "session:*"
	}
	if c.Profile.SessionScanLimit == 0 {
		c.Profile.SessionScanLimit = 500
	}

	if c.Metrics.LatencyThreshold == 0 {
		c.Metrics.LatencyThreshold = time.Second
	}
}

// Validate checks invariants the defaults cannot repair.
func (c *AppConfig) Validate() error {
	cc := c.Cache
	if cc.MemoryTTL >= cc.SessionTTL || cc.SessionTTL >= cc.DurableTTL {
		return fmt.Errorf("cache ttls must strictly increase: memory=%v session=%v durable=%v",
			cc.MemoryTTL, cc.SessionTTL, cc.DurableTTL)
	}
	switch cc.EligibilityLanguage {
	case "", "expr", "cel":
	default:
		return fmt.Errorf("unknown cache.eligibility_language %q", cc.EligibilityLanguage)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.base_delay %v exceeds max_delay %v", c.Retry.BaseDelay, c.Retry.MaxDelay)
	}
	if j := *c.Retry.Jitter; j < 0 || j > 1 {
		return fmt.Errorf("retry.jitter must be within [0,1], got %v", j)
	}
	switch c.Source.Kind {
	case "http":
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for http source")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for postgres source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	return nil
}
