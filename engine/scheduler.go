package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/datasetops/shuttle/provider"
)

var (
	// ErrJobActive is returned when a start is requested for a job that
	// already has a pipeline running.
	ErrJobActive = errors.New("job already has an active pipeline")
)

// TransferRequest describes what a job should transfer and how the
// destination keys are organized.
type TransferRequest struct {
	// FolderID identifies the source folder to transfer.
	FolderID string

	// Rank is the classification segment prefixing every destination key.
	Rank string

	// Meta is attached to every uploaded object. CaptureDate and
	// Description fall back to per-file source metadata when empty.
	Meta provider.ObjectMetadata
}

// Scheduler executes job pipelines in the background, at most one per job
// identifier, with a bounded number of file workers per job.
type Scheduler struct {
	manager *JobManager
	source  provider.Source
	worker  *TransferWorker
	dest    provider.Destination
	streams int
	logger  *slog.Logger

	ctx context.Context

	mu     sync.Mutex
	active map[string]struct{}
}

// NewScheduler creates a Scheduler. streams bounds the per-job worker
// parallelism; ctx bounds the lifetime of every pipeline it launches.
func NewScheduler(
	ctx context.Context,
	manager *JobManager,
	source provider.Source,
	dest provider.Destination,
	worker *TransferWorker,
	streams int,
	logger *slog.Logger,
) *Scheduler {
	if streams <= 0 {
		streams = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		manager: manager,
		source:  source,
		dest:    dest,
		worker:  worker,
		streams: streams,
		logger:  logger,
		ctx:     ctx,
		active:  make(map[string]struct{}),
	}
}

// Start begins the pipeline for a job without blocking the caller. A second
// start for an active job, or a start for a job that already ran, is
// rejected without spawning anything.
func (s *Scheduler) Start(jobID string, req TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.active[jobID]; running {
		return fmt.Errorf("%w: %s", ErrJobActive, jobID)
	}
	// The status check happens under the same lock as the active check, so a
	// pipeline finishing between the two cannot let a second start through.
	snapshot, err := s.manager.Get(jobID)
	if err != nil {
		return err
	}
	if snapshot.Status != StateCreated {
		return fmt.Errorf("job %s already ran (state %s)", jobID, snapshot.Status)
	}
	s.active[jobID] = struct{}{}

	go s.run(jobID, req)
	return nil
}

// run is the job pipeline. Job-level faults before any file work finalize
// the job as failed; per-file failures only show up in the stats.
func (s *Scheduler) run(jobID string, req TransferRequest) {
	defer func() {
		s.mu.Lock()
		delete(s.active, jobID)
		s.mu.Unlock()
	}()

	if err := s.dest.Ping(s.ctx); err != nil {
		s.fail(jobID, fmt.Errorf("destination unavailable: %w", err))
		return
	}

	infos, err := s.source.ListFolder(s.ctx, req.FolderID)
	if err != nil {
		s.fail(jobID, fmt.Errorf("failed to enumerate source folder: %w", err))
		return
	}

	if err := s.manager.MarkRunning(jobID); err != nil {
		s.logger.Error("failed to mark job running", "job_id", jobID, "error", err)
		return
	}
	if err := s.manager.AddDiscovered(jobID, len(infos)); err != nil {
		s.logger.Error("failed to record discovered files", "job_id", jobID, "error", err)
	}

	s.logger.Info("pipeline started", "job_id", jobID, "folder_id", req.FolderID, "files", len(infos), "streams", s.streams)

	tasks := make(TaskChannel, s.streams)
	pool := NewWorkerPool(s.ctx, tasks, func(ctx context.Context, task FileTask) {
		rec := s.worker.Process(ctx, task)
		if err := s.manager.RecordOutcome(jobID, rec.Outcome); err != nil {
			s.logger.Error("failed to record outcome", "job_id", jobID, "file", rec.Name, "error", err)
		}
	})
	pool.SetWorkerCount(s.streams)

	for _, info := range infos {
		task := FileTask{
			JobID: jobID,
			Info:  info,
			Rank:  req.Rank,
			Meta:  req.Meta,
		}
		if task.Meta.Description == "" {
			task.Meta.Description = info.Description()
		}

		select {
		case <-s.ctx.Done():
			// Interrupted mid-enqueue: stop feeding, let in-flight tasks
			// finish, leave the job running. Advisory state, not corruption.
			s.logger.Warn("pipeline interrupted", "job_id", jobID)
			close(tasks)
			pool.Stop()
			return
		case tasks <- task:
		}
	}
	close(tasks)
	pool.Wait()

	if err := s.manager.Finalize(jobID, StateCompleted, nil); err != nil {
		s.logger.Error("failed to finalize job", "job_id", jobID, "error", err)
	}
}

func (s *Scheduler) fail(jobID string, cause error) {
	s.logger.Error("job failed", "job_id", jobID, "error", cause)
	if err := s.manager.Finalize(jobID, StateFailed, cause); err != nil {
		s.logger.Error("failed to finalize job", "job_id", jobID, "error", err)
	}
}
