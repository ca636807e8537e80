// Package scheduler runs named background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spinabot/spinabot/internal/metrics"
)

// JobFunc is the work of a scheduled job. ctx is cancelled on Stop.
type JobFunc func(ctx context.Context) error

// JobStatus represents the state of a scheduled job.
type JobStatus struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitzero"`
	NextRun   time.Time `json:"next_run"`
	Schedule  string    `json:"schedule"`
	LastError string    `json:"last_error,omitempty"`
}

type job struct {
	entry    cron.EntryID
	schedule string
	fn       JobFunc
}

// Scheduler manages cron-based jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]job
	running map[string]bool
	lastRun map[string]time.Time
	lastErr map[string]error

	ctx     context.Context    // cancelled on Stop
	cancel  context.CancelFunc // cancels ctx
	wg      sync.WaitGroup     // tracks running jobs
	started bool
	stopped bool
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// New creates an empty Scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithParser(newParser())),
		logger:  slog.Default(),
		jobs:    make(map[string]job),
		running: make(map[string]bool),
		lastRun: make(map[string]time.Time),
		lastErr: make(map[string]error),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// AddJob schedules fn under name, replacing any job with the same name.
// Returns an error if the cron expression is invalid.
func (s *Scheduler) AddJob(name, cronExpr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.jobs[name]; exists {
		s.cron.Remove(old.entry)
		delete(s.jobs, name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if fn, ok := s.begin(name); ok {
			s.run(name, fn)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	s.jobs[name] = job{entry: entryID, schedule: cronExpr, fn: fn}
	s.logger.Info("scheduled job",
		"job", name,
		"schedule", cronExpr,
		"next_run", s.cron.Entry(entryID).Next)
	return nil
}

// RemoveJob removes a job. Removing an unknown job is a no-op.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, exists := s.jobs[name]; exists {
		s.cron.Remove(j.entry)
		delete(s.jobs, name)
		s.logger.Info("removed job", "job", name)
	}
}

// HasJob reports whether a job with the given name is scheduled.
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.jobs[name]
	return exists
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", n)
}

// IsRunning returns true if the scheduler has been started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the scheduler, cancels running jobs and returns a context that
// is done once they have all returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		cancel()
	}()
	return ctx
}

// begin marks name as running and returns its function. It returns false
// if the job is unknown or already running, or the scheduler is stopped.
func (s *Scheduler) begin(name string) (JobFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok || s.stopped || s.running[name] {
		return nil, false
	}
	s.running[name] = true
	s.wg.Add(1)
	return j.fn, true
}

// run executes a job. The caller must have called begin.
func (s *Scheduler) run(name string, fn JobFunc) {
	defer s.wg.Done()

	s.logger.Debug("starting job", "job", name)
	start := time.Now()
	err := fn(s.ctx)
	elapsed := time.Since(start)
	metrics.RecordJob(name, elapsed, err)

	s.mu.Lock()
	s.running[name] = false
	s.lastErr[name] = err
	if err != nil {
		s.logger.Error("job failed", "job", name, "duration", elapsed, "error", err)
	} else {
		s.lastRun[name] = time.Now()
		s.logger.Debug("job completed", "job", name, "duration", elapsed)
	}
	s.mu.Unlock()
}

// Trigger runs a job now, outside of its schedule.
// Returns an error if the job is unknown or already running, or the
// scheduler has been stopped.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[name]
	switch {
	case s.stopped:
		return fmt.Errorf("scheduler is stopped")
	case !exists:
		return fmt.Errorf("job %s is not scheduled", name)
	case s.running[name]:
		return fmt.Errorf("job %s is already running", name)
	}

	s.running[name] = true
	s.wg.Add(1)
	go s.run(name, j.fn)
	return nil
}

// Status returns the state of all jobs, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, j := range s.jobs {
		st := JobStatus{
			Name:     name,
			Running:  s.running[name],
			LastRun:  s.lastRun[name],
			NextRun:  s.cron.Entry(j.entry).Next,
			Schedule: j.schedule,
		}
		if err := s.lastErr[name]; err != nil {
			st.LastError = err.Error()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, k int) bool { return statuses[i].Name < statuses[k].Name })
	return statuses
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	if _, err := newParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
