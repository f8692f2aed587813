package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled maintenance work.
type Job func(ctx context.Context) error

// RetentionScheduler runs history maintenance jobs on cron schedules
type RetentionScheduler struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRetentionScheduler creates a scheduler. Each run is bounded by timeout.
func NewRetentionScheduler(logger *zap.Logger, timeout time.Duration) *RetentionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RetentionScheduler{
		cron:    cron.New(),
		jobs:    make(map[string]cron.EntryID),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob registers job under name with a standard five-field cron spec.
func (s *RetentionScheduler) AddJob(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = id
	return nil
}

// AddPurge schedules deletion of evaluations older than maxAge.
func (s *RetentionScheduler) AddPurge(spec string, svc *Service, maxAge time.Duration) error {
	return s.AddJob("purge", spec, func(ctx context.Context) error {
		_, err := svc.Purge(ctx, maxAge)
		return err
	})
}

func (s *RetentionScheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job completed",
		zap.String("job", name),
		zap.Duration("duration", time.Since(start)))
}

// RunNow executes a registered job immediately.
func (s *RetentionScheduler) RunNow(name string) error {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not scheduled", name)
	}
	s.cron.Entry(id).Job.Run()
	return nil
}

// Next reports when a job runs next.
func (s *RetentionScheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start starts the scheduler
func (s *RetentionScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}
	s.running = true
	s.logger.Info("Starting retention scheduler", zap.Int("jobs", len(s.jobs)))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.logger.Info("Stopping retention scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
}
