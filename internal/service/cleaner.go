package service

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/repository"
	"github.com/timmy/mediafetch/internal/telemetry"
)

const defaultCleanupInterval = 30 * time.Minute

// SweepResult summarizes one cleaner pass.
type SweepResult struct {
	Evicted []string
	Errors  []error
}

// Cleaner evicts jobs older than the TTL together with their files.
type Cleaner struct {
	store     *repository.JobStore
	artifacts *Artifacts
	ttl       time.Duration
	interval  time.Duration
	clock     domain.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// CleanerConfig holds the cleaner schedule.
type CleanerConfig struct {
	TTL      time.Duration
	Interval time.Duration
}

// NewCleaner creates a Cleaner. clock may be nil.
func NewCleaner(store *repository.JobStore, artifacts *Artifacts, clock domain.Clock, cfg CleanerConfig) *Cleaner {
	if clock == nil {
		clock = domain.SystemClock
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultCleanupInterval
	}
	return &Cleaner{
		store:     store,
		artifacts: artifacts,
		ttl:       cfg.TTL,
		interval:  cfg.Interval,
		clock:     clock,
	}
}

// Start sweeps once, then keeps sweeping every interval until ctx is
// cancelled or Stop is called. Calling Start on a running cleaner is a no-op.
func (c *Cleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(logger.SetComponent(ctx, "cleaner"))
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		c.Sweep(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}(c.done)
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Sweep evicts every job created before now-ttl and removes its artifacts.
// Removal failures are logged and returned, never retried.
func (c *Cleaner) Sweep(ctx context.Context) SweepResult {
	cutoff := c.clock.Now().Add(-c.ttl)
	evicted := c.store.EvictExpired(cutoff)

	var res SweepResult
	for _, job := range evicted {
		res.Evicted = append(res.Evicted, job.ID)
		for _, err := range c.artifacts.Remove(ctx, job.ID) {
			res.Errors = append(res.Errors, err)
			logger.FromContext(logger.SetJobID(ctx, job.ID)).WithError(err).Warn("Failed to remove job artifact")
		}
	}

	if len(evicted) > 0 {
		telemetry.JobsEvicted.Add(float64(len(evicted)))
		logger.With(logger.Fields{logger.FieldCount: len(evicted)}).Info(ctx, "Evicted expired jobs")
	}
	return res
}
