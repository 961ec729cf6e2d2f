package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/platform/requestctx"
)

const defaultJobTimeout = 10 * time.Minute

// Job represents a scheduled job.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron specifications.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	jobs    map[string]Job
	running bool
}

// Option customises the scheduler.
type Option func(*Scheduler)

// WithTimeout bounds a single job run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler creates a scheduler logging through logger. Specs use the standard five-field
// syntax plus descriptors such as @hourly.
func NewScheduler(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("jobs")
	cronLogger := cron.PrintfLogger(observability.NewPrintfAdapter(logger))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:  logger,
		timeout: defaultJobTimeout,
		jobs:    make(map[string]Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers job under spec. Names must be unique.
func (s *Scheduler) AddJob(spec string, job Job) error {
	name := job.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if _, err := s.cron.AddFunc(spec, func() {
		_ = s.run(context.Background(), name, job, "scheduled")
	}); err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}
	s.jobs[name] = job
	s.logger.Info("job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// RunJobNow runs a job immediately outside of schedule.
func (s *Scheduler) RunJobNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.run(ctx, name, job, "manual")
}

func (s *Scheduler) run(ctx context.Context, name string, job Job, trigger string) error {
	logger := s.logger.With(zap.String("job", name), zap.String("trigger", trigger))
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = requestctx.WithLogger(ctx, logger)

	logger.Info("job started")
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Error("job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return err
	}
	logger.Info("job completed", zap.Duration("duration", time.Since(start)))
	return nil
}
