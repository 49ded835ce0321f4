// Package profile serves subject profiles through the tiered cache, falling
// back to stale entries and session data when the source is unavailable.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/profilecache/internal/cache"
	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/infra/source"
	"github.com/vietddude/profilecache/internal/recovery"
	"github.com/vietddude/profilecache/internal/retry"
)

const defaultWarmConcurrency = 8

var (
	errNoStale   = errors.New("no stale entry")
	errNoSession = errors.New("no matching session")
)

// Options configures a Service.
type Options struct {
	Policy retry.Policy
	// Dedupe collapses concurrent misses for the same subject into one fetch.
	Dedupe bool
	// SessionSynthesis enables building a minimal profile from session blobs.
	SessionSynthesis bool
	WarmConcurrency  int
	Logger           *slog.Logger
}

// Result is a profile lookup outcome. Profile is nil when no record is
// available.
type Result struct {
	Profile *domain.Profile `json:"profile"`
	Origin  domain.Origin   `json:"origin"`
	Source  string          `json:"source"`
}

// Service resolves profiles. It is safe for concurrent use.
type Service struct {
	store        *cache.Store[*domain.Profile]
	source       source.Source
	sessions     SessionInspector
	orchestrator *recovery.Orchestrator
	opts         Options
	log          *slog.Logger
	group        singleflight.Group
}

// NewService creates a Service. sessions may be nil, which disables session
// synthesis.
func NewService(
	store *cache.Store[*domain.Profile],
	src source.Source,
	sessions SessionInspector,
	orchestrator *recovery.Orchestrator,
	opts Options,
) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.WarmConcurrency <= 0 {
		opts.WarmConcurrency = defaultWarmConcurrency
	}
	return &Service{
		store:        store,
		source:       src,
		sessions:     sessions,
		orchestrator: orchestrator,
		opts:         opts,
		log:          log.With("component", "profile"),
	}
}

// Get returns the profile of subjectID. It never fails: when every source is
// exhausted the result carries a nil profile.
func (s *Service) Get(ctx context.Context, subjectID string) Result {
	if entry, tier, ok := s.store.GetEntry(ctx, subjectID); ok {
		return Result{Profile: entry.Payload, Origin: entry.Origin, Source: "cache:" + string(tier)}
	}

	if !s.opts.Dedupe {
		return s.resolve(ctx, subjectID)
	}
	// The shared fetch outlives any single waiter; each caller stops waiting
	// on its own ctx.
	ch := s.group.DoChan(subjectID, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), subjectID), nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Origin: domain.OriginFallback, Source: "none"}
	}
}

// Refresh bypasses the cache and fetches subjectID from the source, storing
// the result. Errors are returned as is.
func (s *Service) Refresh(ctx context.Context, subjectID string) (*domain.Profile, error) {
	return s.fetch(ctx, subjectID)
}

// Invalidate drops subjectID from every tier.
func (s *Service) Invalidate(ctx context.Context, subjectID string) {
	s.store.Invalidate(ctx, subjectID)
}

// InvalidateAll clears every tier.
func (s *Service) InvalidateAll(ctx context.Context) {
	s.store.InvalidateAll(ctx)
}

// Warm resolves ids concurrently so later reads hit the cache. It returns
// the number of ids that resolved to a profile.
func (s *Service) Warm(ctx context.Context, ids []string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.WarmConcurrency)

	found := make([]bool, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = s.Get(gctx, id).Profile != nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("warm aborted: %w", err)
	}

	n := 0
	for _, ok := range found {
		if ok {
			n++
		}
	}
	s.log.Info("Cache warmed", "requested", len(ids), "resolved", n)
	return n, nil
}

func (s *Service) resolve(ctx context.Context, subjectID string) Result {
	primary := func(ctx context.Context) (*domain.Profile, error) {
		return s.fetch(ctx, subjectID)
	}

	res, err := recovery.WithRecovery(ctx, s.orchestrator, primary, s.chain(subjectID), s.opts.Policy)
	if err != nil {
		// Unreachable while the chain ends with recovery.Always.
		s.log.Error("Profile recovery exhausted", "subject", subjectID, "error", err)
		return Result{Origin: domain.OriginFallback, Source: "none"}
	}
	return Result{Profile: res.Value, Origin: res.Origin, Source: res.Source}
}

func (s *Service) fetch(ctx context.Context, subjectID string) (*domain.Profile, error) {
	p, err := s.source.Fetch(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.store.Set(ctx, subjectID, p, domain.OriginAuthoritative)
	}
	return p, nil
}

func (s *Service) chain(subjectID string) []recovery.Supplier[*domain.Profile] {
	chain := []recovery.Supplier[*domain.Profile]{{
		Name:   "stale",
		Origin: domain.OriginFallback,
		Fn: func(ctx context.Context) (*domain.Profile, error) {
			entry, ok := s.store.Stale(ctx, subjectID)
			if !ok {
				return nil, errNoStale
			}
			return entry.Payload, nil
		},
	}}

	if s.opts.SessionSynthesis && s.sessions != nil {
		chain = append(chain, recovery.Supplier[*domain.Profile]{
			Name:   "session",
			Origin: domain.OriginDerived,
			Fn: func(ctx context.Context) (*domain.Profile, error) {
				return s.synthesize(ctx, subjectID)
			},
		})
	}

	return append(chain, recovery.Always[*domain.Profile]("none", nil))
}

func (s *Service) synthesize(ctx context.Context, subjectID string) (*domain.Profile, error) {
	blobs, err := s.sessions.Blobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	id, ok := findIdentity(blobs, subjectID)
	if !ok {
		return nil, errNoSession
	}
	s.log.Warn("Profile synthesized from session data", "subject", subjectID)
	return id.Profile(), nil
}
