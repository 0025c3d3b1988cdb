package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Routine drives the orchestrator on a fixed interval. Each run gets its own
// timeout context; a run that exceeds the budget is cancelled, and actions it
// already dispatched remain valid.
type Routine struct {
	Orchestrator *Orchestrator
	Interval     time.Duration
	RunTimeout   time.Duration
	Log          *zap.SugaredLogger
}

// Start blocks until ctx is cancelled, running one scan immediately and then
// one per interval.
func (r Routine) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	runTimeout := r.RunTimeout
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}

	r.Log.Infow("Starting escalation routine", "interval", interval, "runTimeout", runTimeout)

	r.runOnce(ctx, runTimeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Log.Info("Escalation routine stopping")
			return
		case <-ticker.C:
			r.runOnce(ctx, runTimeout)
		}
	}
}

func (r Routine) runOnce(ctx context.Context, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := r.Orchestrator.RunOnce(runCtx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			// Should not happen with a single routine, but a manual
			// API trigger may still be in flight.
			r.Log.Warn("Skipping scheduled scan, a run is already in progress")
			return
		}
		r.Log.Errorw("Scheduled escalation scan failed", "error", err)
	}
}
