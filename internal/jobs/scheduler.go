package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultTaskTimeout = 10 * time.Minute

// Task is a unit of background maintenance.
type Task func(ctx context.Context) error

// Scheduler runs maintenance tasks on cron schedules. A run that is still
// in progress when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	entries int
}

func NewScheduler() *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: defaultTaskTimeout,
	}
}

// Add registers task under schedule, which accepts five-field expressions and
// descriptors such as "@every 1h". An empty schedule leaves the task disabled.
func (s *Scheduler) Add(name string, schedule string, task Task) error {
	if schedule == "" {
		slog.Info("scheduled task disabled", "task", name)
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.run(name, task)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.entries++
	slog.Info("scheduled task registered", "task", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) Len() int {
	return s.entries
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context that is done once running
// tasks have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := task(ctx); err != nil {
		slog.Error("scheduled task failed", "task", name, "error", err, "duration", time.Since(started))
		return
	}
	slog.Debug("scheduled task finished", "task", name, "duration", time.Since(started))
}

// cronLogger routes the scheduler's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
