package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrJobNotFound is returned when a job identifier is unknown.
	ErrJobNotFound = errors.New("job not found")
)

// jobIDCounter disambiguates jobs created within the same second. A bare
// timestamp identifier would collide for concurrent requests.
var jobIDCounter atomic.Uint64

// NewJobID generates a collision-free job identifier: a UTC timestamp for
// readability plus a process-wide monotonic counter.
func NewJobID() string {
	n := jobIDCounter.Add(1)
	return fmt.Sprintf("%s-%04d", time.Now().UTC().Format("20060102T150405"), n)
}

// JobManager owns the registry of transfer jobs, their state machine, and
// statistics aggregation. All mutation goes through its methods; callers
// only ever see snapshots.
type JobManager struct {
	mu     sync.RWMutex
	jobs   map[string]*TransferJob
	order  []string
	logger *slog.Logger
}

// NewJobManager creates an empty JobManager.
func NewJobManager(logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:   make(map[string]*TransferJob),
		logger: logger,
	}
}

// CreateJob allocates a new job record in the created state and returns a
// snapshot of it.
func (m *JobManager) CreateJob() TransferJob {
	job := &TransferJob{
		ID:        NewJobID(),
		Status:    StateCreated,
		StartTime: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	m.logger.Info("job created", "job_id", job.ID)
	return *job
}

// Get returns a read-only snapshot of the job.
func (m *JobManager) Get(jobID string) (TransferJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return TransferJob{}, ErrJobNotFound
	}
	return *job, nil
}

// List returns snapshots of all jobs ordered by creation time.
func (m *JobManager) List() []TransferJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TransferJob, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.jobs[id])
	}
	return out
}

// MarkRunning transitions the job from created to running.
func (m *JobManager) MarkRunning(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StateCreated {
		return fmt.Errorf("job %s cannot start from state %s", jobID, job.Status)
	}
	job.Status = StateRunning
	return nil
}

// AddDiscovered adds n to the job's total file count, called once the
// source listing is known.
func (m *JobManager) AddDiscovered(jobID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Stats.TotalFiles += int64(n)
	return nil
}

// RecordOutcome increments the counter matching a file's terminal outcome.
// Safe to call concurrently from multiple workers of the same job.
func (m *JobManager) RecordOutcome(jobID string, outcome Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	switch outcome {
	case OutcomeUploaded:
		job.Stats.DownloadedFiles++
		job.Stats.UploadedFiles++
	case OutcomeSkipped:
		job.Stats.SkippedFiles++
	case OutcomeFailed:
		job.Stats.FailedFiles++
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	return nil
}

// Finalize transitions the job to a terminal state exactly once. A second
// call is a logged no-op so a crash-and-retry path can't corrupt the
// recorded result.
func (m *JobManager) Finalize(jobID string, terminal JobState, cause error) error {
	if !terminal.Terminal() {
		return fmt.Errorf("state %s is not terminal", terminal)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		m.logger.Debug("job already finalized", "job_id", jobID, "status", job.Status)
		return nil
	}

	now := time.Now().UTC()
	job.Status = terminal
	job.EndTime = &now
	if terminal == StateFailed && cause != nil {
		job.Error = cause.Error()
	}

	m.logger.Info("job finalized",
		"job_id", jobID,
		"status", terminal,
		"total", job.Stats.TotalFiles,
		"uploaded", job.Stats.UploadedFiles,
		"skipped", job.Stats.SkippedFiles,
		"failed", job.Stats.FailedFiles,
	)
	return nil
}
