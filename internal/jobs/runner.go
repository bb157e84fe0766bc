// Package jobs runs the engine's periodic work: forward task generation,
// usage-threshold evaluation, and the overdue sweep.
package jobs

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/scheduler"
)

// Config sets the cadence of each background job. Zero intervals fall back
// to the defaults.
type Config struct {
	GenerateInterval time.Duration
	EvaluateInterval time.Duration
	SweepInterval    time.Duration
	HorizonDays      int
}

const (
	defaultGenerateInterval = 6 * time.Hour
	defaultEvaluateInterval = 15 * time.Minute
	defaultSweepInterval    = time.Hour
	defaultHorizonDays      = 30
)

func (c *Config) applyDefaults() {
	if c.GenerateInterval <= 0 {
		c.GenerateInterval = defaultGenerateInterval
	}
	if c.EvaluateInterval <= 0 {
		c.EvaluateInterval = defaultEvaluateInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
}

// Runner drives the engine's batch operations on tickers. Each job runs once
// at startup and then on its interval until the context is cancelled.
type Runner struct {
	engine *scheduler.Engine
	cfg    Config
	log    *log.Logger
	wg     sync.WaitGroup
}

func NewRunner(engine *scheduler.Engine, cfg Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfg.applyDefaults()
	return &Runner{engine: engine, cfg: cfg, log: logger}
}

// Start launches the job goroutines. It returns immediately; call Wait after
// cancelling the context to drain them.
func (r *Runner) Start(ctx context.Context) {
	r.launch(ctx, "generate_tasks", r.cfg.GenerateInterval, func(ctx context.Context) scheduler.BatchResult {
		return r.engine.GenerateAll(ctx, r.cfg.HorizonDays)
	})
	r.launch(ctx, "evaluate_usage", r.cfg.EvaluateInterval, func(ctx context.Context) scheduler.BatchResult {
		return r.engine.EvaluateUsageThresholds(ctx)
	})
	r.launch(ctx, "sweep_overdue", r.cfg.SweepInterval, func(ctx context.Context) scheduler.BatchResult {
		return r.engine.SweepOverdue(ctx, time.Now().UTC())
	})
}

// Wait blocks until all job goroutines have exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) launch(ctx context.Context, name string, interval time.Duration, job func(context.Context) scheduler.BatchResult) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.runOnce(ctx, name, job)
		for {
			select {
			case <-ctx.Done():
				r.log.WithField("job", name).Info("background job stopped")
				return
			case <-ticker.C:
				r.runOnce(ctx, name, job)
			}
		}
	}()
}

func (r *Runner) runOnce(ctx context.Context, name string, job func(context.Context) scheduler.BatchResult) {
	result := job(ctx)
	entry := r.log.WithFields(log.Fields{
		"job":       name,
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"created":   result.Created,
	})
	if result.Failed > 0 {
		entry.WithField("errors", result.Errors).Warn("background job finished with failures")
		return
	}
	entry.Info("background job finished")
}
