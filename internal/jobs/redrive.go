package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"nexussync/internal/models"
)

// RedriveJobName is the scheduler name of the periodic redrive
const RedriveJobName = "dead-letter-redrive"

// Redriver runs one redrive invocation
type Redriver interface {
	Run(ctx context.Context) (models.RedriveResult, error)
}

// RedriveJob drains the dead-letter queue on a schedule
type RedriveJob struct {
	redriver Redriver

	mu         sync.Mutex
	lastRun    time.Time
	lastResult models.RedriveResult
}

// NewRedriveJob creates the periodic redrive job
func NewRedriveJob(redriver Redriver) *RedriveJob {
	return &RedriveJob{redriver: redriver}
}

func (j *RedriveJob) Name() string { return RedriveJobName }

// Run executes one redrive batch
func (j *RedriveJob) Run(ctx context.Context) error {
	result, err := j.redriver.Run(ctx)

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastResult = result
	j.mu.Unlock()

	if err != nil {
		return err
	}

	if result.Processed > 0 {
		log.Printf("[REDRIVE-JOB] processed=%d succeeded=%d failed=%d requeued=%d",
			result.Processed, result.Succeeded, result.Failed, result.Requeued)
	}
	return nil
}

// LastResult returns the counts of the most recent run
func (j *RedriveJob) LastResult() (models.RedriveResult, time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastResult, j.lastRun
}
