package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/docketry/docketd/internal/core/config"
	"github.com/docketry/docketd/internal/infra/storage"
)

// Pruner deletes old closed cases from the mirror based on retention policy.
type Pruner struct {
	cfg   config.SyncConfig
	cases storage.CaseRepository
	log   *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(cfg config.SyncConfig, cases storage.CaseRepository) *Pruner {
	return &Pruner{
		cfg:   cfg,
		cases: cases,
		log:   slog.Default().With("component", "pruner"),
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.cfg.Retention <= 0 {
		return // Retention disabled
	}

	interval := min(p.cfg.Retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.Retention)

	n, err := p.cases.DeleteClosedBefore(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune closed cases", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("pruned closed cases", "count", n, "cutoff", cutoff)
	}
}
