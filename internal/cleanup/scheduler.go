// Package cleanup runs the periodic expired-link and unused-link sweeps.
package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sundayezeilo/linkhub/internal/link"
)

// Sweeper is the slice of the link service the scheduler drives. The
// scheduler never touches the store or cache directly.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (link.SweepResult, error)
	SweepUnused(ctx context.Context, olderThan time.Time) (link.SweepResult, error)
}

// Scheduler runs both sweeps on a fixed interval in a background
// goroutine, independent of request handling.
type Scheduler struct {
	sweeper         Sweeper
	logger          *slog.Logger
	interval        time.Duration
	unusedThreshold time.Duration
	now             func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Interval        time.Duration // period between runs (default 24h)
	UnusedThreshold time.Duration // age after which an unvisited link is removed
	Logger          *slog.Logger
	Now             func() time.Time
}

// NewScheduler creates a Scheduler. Start must be called to begin runs.
func NewScheduler(sweeper Sweeper, cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		sweeper:         sweeper,
		logger:          logger,
		interval:        interval,
		unusedThreshold: cfg.UnusedThreshold,
		now:             now,
		done:            make(chan struct{}),
	}
}

// Start launches the background loop. The first run happens immediately,
// subsequent runs every interval. The loop owns its own context, derived
// from the one given, and exits when either is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}

// RunOnce executes both sweeps and logs their outcomes. Individual
// record failures are already absorbed inside each sweep; a sweep-level
// error here means the listing itself failed.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now()
	started := now

	expired, err := s.sweeper.SweepExpired(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "expired sweep failed", "error", err.Error())
	} else {
		s.logger.InfoContext(ctx, "expired sweep finished",
			"succeeded", expired.Succeeded,
			"failed", expired.Failed,
		)
	}

	unused, err := s.sweeper.SweepUnused(ctx, now.Add(-s.unusedThreshold))
	if err != nil {
		s.logger.ErrorContext(ctx, "unused sweep failed", "error", err.Error())
	} else {
		s.logger.InfoContext(ctx, "unused sweep finished",
			"succeeded", unused.Succeeded,
			"failed", unused.Failed,
		)
	}

	s.logger.InfoContext(ctx, "cleanup run complete",
		"duration_ms", time.Since(started).Milliseconds(),
	)
}
