package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Job interface that all scheduled jobs must implement
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Trigger says when a job runs. Cron wins over Interval when both are set.
type Trigger struct {
	Interval time.Duration
	Cron     string
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCron parses a five-field cron expression (or a descriptor like @hourly)
func ValidateCron(expr string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// JobScheduler manages and runs scheduled jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]Job
	handles   map[string]gocron.Job
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler() (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]Job),
		handles:   make(map[string]gocron.Job),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Register adds a job to the scheduler. A run that is still going when the next one is
// due makes the next one wait for the following slot.
func (s *JobScheduler) Register(job Job, trigger Trigger) error {
	var definition gocron.JobDefinition
	switch {
	case trigger.Cron != "":
		if _, err := ValidateCron(trigger.Cron); err != nil {
			return err
		}
		definition = gocron.CronJob(trigger.Cron, false)
	case trigger.Interval > 0:
		definition = gocron.DurationJob(trigger.Interval)
	default:
		return fmt.Errorf("job %s needs an interval or a cron expression", job.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	handle, err := s.scheduler.NewJob(
		definition,
		gocron.NewTask(func() { s.runJob(job) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.Name(), err)
	}

	s.jobs[job.Name()] = job
	s.handles[job.Name()] = handle
	log.Printf("✅ [SCHEDULER] Registered job: %s", job.Name())
	return nil
}

// Start begins running all registered jobs
func (s *JobScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Started job scheduler with %d jobs", len(s.jobs))
}

// runJob executes a job with the scheduler's context
func (s *JobScheduler) runJob(job Job) {
	log.Printf("▶️  [SCHEDULER] Running job: %s", job.Name())
	startTime := time.Now()

	if err := job.Run(s.ctx); err != nil {
		log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", job.Name(), err)
		return
	}

	log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", job.Name(), time.Since(startTime))
}

// Stop cancels running jobs and waits for them to return
func (s *JobScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")
	s.running = false
	s.cancel()

	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	log.Println("✅ [SCHEDULER] Job scheduler stopped")
	return nil
}

// RunNow immediately runs a specific job on the caller's goroutine
func (s *JobScheduler) RunNow(name string) error {
	s.mu.Lock()
	job, exists := s.jobs[name]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	log.Printf("🚀 [SCHEDULER] Running job '%s' immediately", name)
	return job.Run(s.ctx)
}

// GetStatus returns the status of all jobs
func (s *JobScheduler) GetStatus() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]JobStatus, len(s.handles))
	for name, handle := range s.handles {
		st := JobStatus{Name: name, Registered: true}
		if next, err := handle.NextRun(); err == nil {
			st.NextRunTime = next
		}
		if last, err := handle.LastRun(); err == nil {
			st.LastRunTime = last
		}
		status[name] = st
	}

	return status
}

// JobStatus represents the status of a job
type JobStatus struct {
	Name        string    `json:"name"`
	NextRunTime time.Time `json:"next_run_time"`
	LastRunTime time.Time `json:"last_run_time,omitempty"`
	Registered  bool      `json:"registered"`
}
