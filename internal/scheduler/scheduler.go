// Package scheduler triggers bot runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work, usually a full bot run.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a standard five-field cron spec (or a
// descriptor such as "@every 15m"). A tick that fires while the previous
// run is still going is skipped, so runs never overlap.
type Scheduler struct {
	cron  *cron.Cron
	entry cron.EntryID
	log   *zap.Logger

	ctx context.Context
	job Job

	mu   sync.Mutex // serializes RunNow with scheduled runs
	runs int
}

func New(ctx context.Context, spec string, job Job, log *zap.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scheduler")

	cl := cronLogger{log.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s := &Scheduler{cron: c, log: log, ctx: ctx, job: job}

	id, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	s.RunNow()
}

// RunNow executes the job immediately and waits for it.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs++
	n := s.runs
	start := time.Now()
	s.log.Info("run starting", zap.Int("run", n))
	if err := s.job(s.ctx); err != nil {
		s.log.Error("run failed", zap.Int("run", n), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Info("run finished", zap.Int("run", n), zap.Duration("took", time.Since(start)))
}

// Runs returns how many times the job has been started.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Time("next", s.Next()))
}

// Stop halts new ticks and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Next is the next scheduled activation, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.Start()
	<-ctx.Done()
	s.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
