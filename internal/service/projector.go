// Package service runs the background work around the store: projecting
// snapshots to the database, tracking presence and ingesting messages
// delivered over the event bus.
package service

import (
	"context"
	"sync"
	"time"

	"confide/internal/observability"
	"confide/internal/repository"
	"confide/internal/store"

	"github.com/robfig/cron/v3"
)

// Snapshotter is the part of the store the projector reads.
type Snapshotter interface {
	Version() uint64
	Snapshot() store.Snapshot
}

// Projector periodically writes store snapshots to the projection tables.
type Projector struct {
	source   Snapshotter
	repo     repository.ProjectionRepository
	schedule string

	mu      sync.Mutex
	flushed bool
	version uint64
	runner  *cron.Cron
}

// NewProjector creates a projector flushing on the given cron schedule.
func NewProjector(source Snapshotter, repo repository.ProjectionRepository, schedule string) *Projector {
	return &Projector{source: source, repo: repo, schedule: schedule}
}

// Flush writes a snapshot unless the store has not changed since the last
// flush. It reports whether anything was written.
func (p *Projector) Flush(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.flushed && p.source.Version() == p.version {
		observability.ProjectionFlushes.WithLabelValues("skipped").Inc()
		return false, nil
	}

	snap := p.source.Snapshot()
	if err := p.repo.Write(ctx, snap); err != nil {
		observability.ProjectionFlushes.WithLabelValues("error").Inc()
		return false, err
	}
	p.flushed = true
	p.version = snap.Version
	observability.ProjectionFlushes.WithLabelValues("written").Inc()
	return true, nil
}

// Start resumes from the stored checkpoint and schedules flushes.
func (p *Projector) Start(ctx context.Context) error {
	cp, err := p.repo.Checkpoint(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if cp != nil && cp.Version == p.source.Version() {
		p.flushed = true
		p.version = cp.Version
	}
	p.mu.Unlock()

	runner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := runner.AddFunc(p.schedule, func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		flushCtx = observability.WithCorrelationID(flushCtx, observability.GenerateCorrelationID())
		observability.LogAsyncOperationStart(flushCtx, "projection_flush", nil)
		wrote, err := p.Flush(flushCtx)
		if err != nil {
			observability.LogAsyncOperationError(flushCtx, "projection_flush", err, nil)
			return
		}
		if wrote {
			observability.LogAsyncOperationEnd(flushCtx, "projection_flush", map[string]interface{}{"version": p.source.Version()})
		}
	}); err != nil {
		return err
	}
	runner.Start()

	p.mu.Lock()
	p.runner = runner
	p.mu.Unlock()
	return nil
}

// Stop waits for a running flush, then flushes one last time.
func (p *Projector) Stop(ctx context.Context) error {
	p.mu.Lock()
	runner := p.runner
	p.runner = nil
	p.mu.Unlock()

	if runner != nil {
		select {
		case <-runner.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := p.Flush(ctx)
	return err
}
