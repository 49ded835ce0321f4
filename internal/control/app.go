package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vietddude/profilecache/internal/cache"
	"github.com/vietddude/profilecache/internal/core/config"
	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/core/worker"
	"github.com/vietddude/profilecache/internal/health"
	redisclient "github.com/vietddude/profilecache/internal/infra/redis"
	"github.com/vietddude/profilecache/internal/infra/source"
	"github.com/vietddude/profilecache/internal/infra/storage"
	"github.com/vietddude/profilecache/internal/infra/storage/memory"
	"github.com/vietddude/profilecache/internal/infra/storage/postgres"
	"github.com/vietddude/profilecache/internal/metrics"
	"github.com/vietddude/profilecache/internal/profile"
	"github.com/vietddude/profilecache/internal/recovery"
	"github.com/vietddude/profilecache/internal/retry"
)

// App owns the profile pipeline and its background workers.
type App struct {
	cfg          *config.AppConfig
	store        *cache.Store[*domain.Profile]
	profiles     *profile.Service
	orchestrator *recovery.Orchestrator
	aggregator   *metrics.Aggregator
	collectors   *metrics.Collectors
	registry     *prometheus.Registry
	server       *health.Server
	pruner       *worker.Pruner
	durableRepo  *postgres.CacheRepo
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. Tiers whose
// backend is not configured run on process memory.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Initialize storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(); err != nil {
			a.close()
			return nil, err
		}
		a.log.Info("Using PostgreSQL durable tier")
	}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.log.Info("Using Redis session tier")
	}

	// 2. Initialize cache
	if err := a.initCache(); err != nil {
		a.close()
		return nil, err
	}

	// 3. Initialize profile pipeline
	src, err := a.newSource()
	if err != nil {
		a.close()
		return nil, err
	}

	executor := retry.NewExecutor(retry.WithLogger(a.log))
	a.orchestrator = recovery.NewOrchestrator(executor, a.log)

	var sessions profile.SessionInspector
	if a.redisClient != nil {
		sessions = redisclient.NewSessionInspector(
			a.redisClient, cfg.Profile.SessionPattern, cfg.Profile.SessionScanLimit)
	}
	if cfg.Profile.SynthesisEnabled() && sessions != nil {
		a.log.Warn("Session profile synthesis is enabled", "pattern", cfg.Profile.SessionPattern)
	}

	a.profiles = profile.NewService(a.store, src, sessions, a.orchestrator, profile.Options{
		Policy: retry.Policy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			BaseDelay:    cfg.Retry.BaseDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			JitterFactor: *cfg.Retry.Jitter,
		},
		Dedupe:           cfg.Profile.Dedupe,
		SessionSynthesis: cfg.Profile.SynthesisEnabled(),
		WarmConcurrency:  cfg.Profile.WarmConcurrency,
		Logger:           a.log,
	})

	// 4. Initialize metrics and HTTP surface
	a.aggregator = metrics.NewAggregator(a.store, a.orchestrator, cfg.Metrics.LatencyThreshold)
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.collectors = metrics.Register(a.registry, a.aggregator)

	checks := make(map[string]health.Checker)
	if a.db != nil {
		checks["postgres"] = a.db
		a.pruner = worker.NewPruner(a.durableRepo, cfg.Cache.PruneInterval, a.log)
	}
	if a.redisClient != nil {
		checks["redis"] = a.redisClient
	}
	a.server = health.NewServer(a.aggregator, a.profiles, checks, a.registry, cfg.Server.Port, a.log)

	return a, nil
}

func (a *App) initCache() error {
	cc := a.cfg.Cache

	var session storage.Backend = memory.NewStore()
	if a.redisClient != nil {
		session = redisclient.NewTierBackend(a.redisClient, cc.Prefix)
	}
	var durable storage.Backend = memory.NewStore()
	if a.db != nil {
		a.durableRepo = postgres.NewCacheRepo(a.db, cc.Prefix)
		durable = a.durableRepo
	}

	eligible, err := cache.CompileEligibility[*domain.Profile](
		cache.Language(cc.EligibilityLanguage), cc.DurableEligibility, a.log)
	if err != nil {
		return err
	}

	a.store, err = cache.New([]cache.Tier{
		{
			Name:    domain.TierMemory,
			TTL:     cc.MemoryTTL,
			Backend: memory.NewStore(memory.WithMaxItems(cc.MemoryMaxItems)),
			Swept:   true,
		},
		{Name: domain.TierSession, TTL: cc.SessionTTL, Backend: session},
		{Name: domain.TierDurable, TTL: cc.DurableTTL, Backend: durable, Durable: true},
	}, cache.Options[*domain.Profile]{
		SchemaVersion: cc.SchemaVersion,
		Eligible:      eligible,
		StaleGrace:    cc.StaleGrace,
		StaleCapacity: cc.StaleCapacity,
		Logger:        a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to init cache: %w", err)
	}
	return nil
}

func (a *App) newSource() (source.Source, error) {
	switch a.cfg.Source.Kind {
	case "postgres":
		if a.db == nil {
			return nil, errors.New("postgres source requires database.url")
		}
		return postgres.NewProfileRepo(a.db), nil
	case "http":
		return source.NewHTTPSource(a.cfg.Source.URL, a.cfg.Source.APIKey, a.cfg.Source.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", a.cfg.Source.Kind)
	}
}

// Profiles returns the profile service.
func (a *App) Profiles() *profile.Service {
	return a.profiles
}

// Aggregator returns the metrics aggregator.
func (a *App) Aggregator() *metrics.Aggregator {
	return a.aggregator
}

// Start starts the HTTP server and background workers. They stop when ctx
// is done.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	go a.store.RunSweeper(ctx, a.cfg.Cache.SweepInterval)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx, a.collectors.DBPoolUsage)
	}
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	a.log.Info("Profile cache started",
		"port", a.cfg.Server.Port,
		"source", a.cfg.Source.Kind,
		"memory_ttl", a.cfg.Cache.MemoryTTL,
		"session_ttl", a.cfg.Cache.SessionTTL,
		"durable_ttl", a.cfg.Cache.DurableTTL,
	)
	return nil
}

// Stop shuts the HTTP server down and closes storage connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping profile cache...")
	err := a.server.Stop(ctx)
	a.close()
	return err
}

func (a *App) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
