package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs a function on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	cl := cronLogger{sugar: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// Schedule registers fn under a standard five-field cron spec; fn is called with ctx
func (s *Scheduler) Schedule(ctx context.Context, spec string, fn func(ctx context.Context)) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() { fn(ctx) })
	if err != nil {
		return 0, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	s.logger.Info("Scheduled", zap.String("schedule", spec))
	return id, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("Scheduler started")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("Scheduler stopped")
}

// Entries returns the registered schedules
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
