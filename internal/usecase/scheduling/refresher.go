// Package scheduling drives periodic re-planning. The decision core stays
// computation-only; this is the host-side job that calls it on a schedule.
package scheduling

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

// Refresher reruns planning on a cron schedule and admits rate-limited
// operator-forced refreshes between ticks.
type Refresher struct {
	cron    *cron.Cron
	run     func(ctx context.Context) error
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewRefresher creates a refresher around the given re-planning callback.
// forcedPerHour caps manual refreshes; non-positive means one per hour.
func NewRefresher(run func(ctx context.Context) error, forcedPerHour int, logger *slog.Logger) *Refresher {
	if forcedPerHour <= 0 {
		forcedPerHour = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Refresher{
		cron:    cron.New(),
		run:     run,
		limiter: rate.NewLimiter(rate.Limit(float64(forcedPerHour)/3600.0), forcedPerHour),
		logger:  logger,
	}
}

// Start schedules the periodic refresh. schedule is a cron expression;
// empty disables the periodic job (forced refreshes still work).
func (r *Refresher) Start(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("refresher already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if schedule != "" {
		_, err := r.cron.AddFunc(schedule, func() {
			if err := r.run(ctx); err != nil {
				r.logger.Error("scheduled refresh failed", "error", err)
				return
			}
			r.logger.Debug("scheduled refresh complete")
		})
		if err != nil {
			cancel()
			return fmt.Errorf("add refresh schedule %q: %w", schedule, err)
		}
		r.cron.Start()
	}
	r.started = true
	return nil
}

// Force runs one refresh immediately, subject to the forced-refresh rate
// limit. Over-limit calls are rejected rather than queued so an operator
// cannot build up a refresh storm.
func (r *Refresher) Force(ctx context.Context) error {
	if !r.limiter.Allow() {
		return fmt.Errorf("forced refresh rate limit reached")
	}
	return r.run(ctx)
}

// Stop halts the periodic job and cancels in-flight refreshes.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.cron.Stop()
	if r.cancel != nil {
		r.cancel()
	}
	r.started = false
}
