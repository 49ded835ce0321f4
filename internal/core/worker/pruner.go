package worker

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredDeleter removes entries whose backend deadline has passed.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Pruner deletes rows of the durable tier that outlived their stale grace.
type Pruner struct {
	target   ExpiredDeleter
	interval time.Duration
	log      *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(target ExpiredDeleter, interval time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		target:   target,
		interval: max(interval, time.Minute),
		log:      log.With("component", "pruner"),
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs one deletion pass and returns the number of rows removed.
func (p *Pruner) Prune(ctx context.Context) int64 {
	n, err := p.target.DeleteExpired(ctx)
	if err != nil {
		p.log.Error("Failed to prune expired entries", "error", err)
		return 0
	}
	if n > 0 {
		p.log.Debug("Pruned expired entries", "count", n)
	}
	return n
}
