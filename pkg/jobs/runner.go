package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunFunc executes one batch invocation.
type RunFunc func(context.Context) error

// RunnerConfig tunes the periodic batch runner.
type RunnerConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Runner invokes a batch function on a fixed interval. Each invocation is
// independent; an overlapping tick is skipped rather than queued, since the
// batch is idempotent on the next run anyway.
type Runner struct {
	name     string
	run      RunFunc
	interval time.Duration
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	busy    bool
}

// NewRunner builds a runner for the provided batch function.
func NewRunner(name string, run RunFunc, cfg RunnerConfig) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runner{
		name:     name,
		run:      run,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start begins periodic execution. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop()
	r.started = true
	r.logger.Sugar().Infow("runner started", "runner", r.name, "interval", r.interval)
}

// Stop cancels the loop and waits for any in-flight run to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("runner stopped", "runner", r.name)
}

// Trigger executes one run immediately, unless one is already in flight.
// Returns false when the run was skipped.
func (r *Runner) Trigger() bool {
	r.mu.Lock()
	if !r.started || r.busy {
		r.mu.Unlock()
		return false
	}
	r.busy = true
	ctx := r.ctx
	r.mu.Unlock()

	go func() {
		defer r.clearBusy()
		r.invoke(ctx)
	}()
	return true
}

func (r *Runner) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.busy {
				r.mu.Unlock()
				r.logger.Sugar().Warnw("run still in flight, skipping tick", "runner", r.name)
				continue
			}
			r.busy = true
			r.mu.Unlock()

			r.invoke(r.ctx)
			r.clearBusy()
		}
	}
}

func (r *Runner) invoke(ctx context.Context) {
	start := time.Now()
	if err := r.run(ctx); err != nil {
		r.logger.Sugar().Errorw("run failed", "runner", r.name, "error", err)
		return
	}
	r.logger.Sugar().Infow("run completed", "runner", r.name, "duration", time.Since(start))
}

func (r *Runner) clearBusy() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}
