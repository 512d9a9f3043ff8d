package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered jobs on their cron schedules. A job never runs
// twice at once: a tick that finds the previous run still going is skipped.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	byName map[string]Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		byName: make(map[string]Job),
		locks:  make(map[string]*sync.Mutex),
		logger: logger.With("component", "maintenance"),
	}
}

// RegisterJob adds a job to the scheduler. Must be called before Start().
// Returns an error if a job with the same name is already registered.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.byName[name]; exists {
		return fmt.Errorf("maintenance: duplicate job name %q", name)
	}

	s.byName[name] = j
	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered jobs in registration order.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Job(nil), s.jobs...)
}

// Start begins executing registered jobs. Jobs receive a context derived
// from ctx. Returns an error if any job has an invalid schedule expression.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))

	for _, j := range s.jobs {
		job := j
		if _, err := c.AddFunc(job.Schedule(), func() { s.run(ctx, job) }); err != nil {
			cancel()
			return fmt.Errorf("maintenance: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cancel, s.cron = cancel, c
	c.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// RunNow runs a registered job immediately, unless it is already running.
// It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	job, ok := s.byName[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("maintenance: unknown job %q", name)
	}
	return s.run(ctx, job), nil
}

// run executes job under its lock. TryLock is atomic: no race between check
// and acquire.
func (s *Scheduler) run(ctx context.Context, job Job) bool {
	s.mu.Lock()
	lock := s.locks[job.Name()]
	s.mu.Unlock()

	if !lock.TryLock() {
		s.logger.Warn("job still running, skipping tick", "job", job.Name())
		return false
	}
	defer lock.Unlock()

	s.logger.Debug("job started", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name(), "error", err)
	} else {
		s.logger.Debug("job completed", "job", job.Name())
	}
	return true
}

// Stop gracefully shuts down the scheduler, waiting for in-flight jobs.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("scheduler stopped")
	}
	return nil
}
