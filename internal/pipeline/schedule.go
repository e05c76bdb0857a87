package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Runner starts one pipeline run.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// Schedule triggers runner every interval until ctx is cancelled, and once
// immediately when runOnStart is set. A zero interval disables periodic
// runs. Failed runs are logged and do not stop the schedule.
func Schedule(ctx context.Context, runner Runner, interval time.Duration, runOnStart bool, clock clockwork.Clock, logger *slog.Logger) {
	if runOnStart {
		trigger(ctx, runner, logger)
	}
	if interval <= 0 {
		return
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			trigger(ctx, runner, logger)
		}
	}
}

// StartSchedule runs Schedule in its own goroutine. The returned channel is
// closed once the schedule has stopped and any in-flight run has returned.
func StartSchedule(ctx context.Context, runner Runner, interval time.Duration, runOnStart bool, clock clockwork.Clock, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		Schedule(ctx, runner, interval, runOnStart, clock, logger)
	}()
	return done
}

func trigger(ctx context.Context, runner Runner, logger *slog.Logger) {
	runID, err := runner.Run(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		logger.Debug("scheduled run skipped, another run is active")
	case err != nil:
		logger.Error("scheduled run failed", "run_id", runID, "error", err)
	default:
		logger.Info("scheduled run completed", "run_id", runID)
	}
}
