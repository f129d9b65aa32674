// Package scheduler drives the periodic insight jobs: marking insights that
// need no human validation, applying marked insights, and refreshing the
// product dataset snapshot.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/curator/internal/annotate"
	"github.com/JaimeStill/curator/internal/dataset"
	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/internal/validation"
	"github.com/JaimeStill/curator/pkg/lifecycle"
)

const (
	JobApplyEligible  = "apply_eligible"
	JobMarkEligible   = "mark_eligible"
	JobRefreshDataset = "refresh_dataset"
)

// Deps are the collaborators the jobs run against. Dataset may be nil, in
// which case the refresh job is a no-op.
type Deps struct {
	Insights   insights.Transactor
	Engine     *annotate.Engine
	Evaluator  *annotate.Evaluator
	Validation *validation.Registry
	Dataset    dataset.Snapshot
	Logger     *slog.Logger
}

// Scheduler owns the job state: cron runner, worker pool, and the
// needs-validation memo. Each job method is also callable directly.
type Scheduler struct {
	deps   Deps
	cron   *cron.Cron
	sem    *semaphore.Weighted
	memo   *Memo
	jitter time.Duration
	logger *slog.Logger
	now    func() time.Time

	entries map[string]cron.EntryID

	ctx   context.Context
	ready atomic.Bool
}

// New builds a scheduler and registers its jobs. Nothing runs until Start.
func New(deps Deps, cfg *Config) (*Scheduler, error) {
	if deps.Insights == nil || deps.Engine == nil {
		return nil, errors.New("scheduler requires insights and engine")
	}
	if deps.Validation == nil {
		deps.Validation = validation.NewRegistry()
	}

	logger := deps.Logger.With("system", "scheduler")
	cronLogger := cronLog{logger}

	s := &Scheduler{
		deps: deps,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		memo:   NewMemo(cfg.MemoSize),
		jitter: cfg.JitterDuration(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		ctx:    context.Background(),

		entries: make(map[string]cron.EntryID),
	}

	every := "@every " + cfg.IntervalDuration().String()
	jobs := []struct {
		spec   string
		name   string
		jitter bool
		run    func(context.Context) error
	}{
		{every, JobApplyEligible, true, func(ctx context.Context) error {
			_, err := s.ApplyEligible(ctx)
			return err
		}},
		{every, JobMarkEligible, true, func(ctx context.Context) error {
			_, err := s.MarkEligible(ctx)
			return err
		}},
		{cfg.DatasetSchedule, JobRefreshDataset, false, func(ctx context.Context) error {
			_, err := s.RefreshDataset(ctx)
			return err
		}},
	}

	for _, j := range jobs {
		id, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.jitter, j.run))
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
		s.entries[j.name] = id
	}

	return s, nil
}

// Memo returns the needs-validation memo.
func (s *Scheduler) Memo() *Memo {
	return s.memo
}

// Start registers the cron runner with the lifecycle coordinator. Jobs run
// with the coordinator's context and are waited for on shutdown.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting scheduler", "jobs", len(s.cron.Entries()))
	s.ctx = lc.Context()
	lc.Track("scheduler", s)

	lc.OnStartup(func() {
		s.cron.Start()
		s.ready.Store(true)
		s.logger.Info("scheduler started")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		s.ready.Store(false)
		s.logger.Info("stopping scheduler")
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	})

	return nil
}

// NextRun returns when the named job fires next. The zero time means the
// scheduler is not running or the job is unknown.
func (s *Scheduler) NextRun(name string) time.Time {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Ready() bool {
	return s.ready.Load()
}

// wrap adapts a job to a cron func: optional start jitter, then one slot
// of the worker pool for the duration of the run.
func (s *Scheduler) wrap(name string, jitter bool, run func(context.Context) error) func() {
	return func() {
		ctx := s.ctx
		logger := s.logger.With("job", name)

		if jitter && s.jitter > 0 {
			select {
			case <-time.After(rand.N(s.jitter)):
			case <-ctx.Done():
				return
			}
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		start := time.Now()
		if err := run(ctx); err != nil {
			logger.Error("job failed", "error", err, "duration", time.Since(start))
			return
		}
		logger.Debug("job finished", "duration", time.Since(start))
	}
}

// cronLog routes cron's own logging through slog.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
