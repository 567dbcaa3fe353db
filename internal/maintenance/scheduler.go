package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// jobTimeout bounds a single background run; both jobs scan keyspaces
// and must not hold a ticker slot forever on a slow store.
const jobTimeout = 5 * time.Minute

// SuggestionCleaner removes stale low-frequency suggestions.
type SuggestionCleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// QueryLogPurger removes query-log records past the retention horizon.
type QueryLogPurger interface {
	Purge(ctx context.Context) (int, error)
}

// Scheduler runs the retention jobs on fixed intervals. Jobs also remain
// callable on demand through the admin maintenance endpoints; the
// scheduler only adds the clock.
type Scheduler struct {
	suggs SuggestionCleaner
	qlog  QueryLogPurger

	cleanupEvery time.Duration
	purgeEvery   time.Duration

	logger   *zap.Logger
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. Intervals must be positive.
func New(
	suggs SuggestionCleaner, qlog QueryLogPurger,
	cleanupEvery, purgeEvery time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		suggs:        suggs,
		qlog:         qlog,
		cleanupEvery: cleanupEvery,
		purgeEvery:   purgeEvery,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

// Start launches the background loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.runLoop(ctx, "suggestion-cleanup", s.cleanupEvery, s.suggs.Cleanup)
	s.runLoop(ctx, "querylog-purge", s.purgeEvery, s.qlog.Purge)

	s.logger.Info("maintenance scheduler started",
		zap.Duration("suggestion_cleanup_every", s.cleanupEvery),
		zap.Duration("querylog_purge_every", s.purgeEvery),
	)
}

// Stop halts the loops and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, name string, every time.Duration, job func(context.Context) (int, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.runOnce(ctx, name, job)
			}
		}
	}()
}

// runOnce executes one job run. Failures are logged and the loop keeps
// ticking; retention is retried on the next interval anyway.
func (s *Scheduler) runOnce(ctx context.Context, name string, job func(context.Context) (int, error)) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	started := time.Now()
	removed, err := job(jobCtx)
	if err != nil {
		s.logger.Warn("maintenance job failed",
			zap.String("job", name),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("maintenance job finished",
		zap.String("job", name),
		zap.Int("removed", removed),
		zap.Duration("took", time.Since(started)),
	)
}
