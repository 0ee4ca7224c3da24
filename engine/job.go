package engine

import (
	"time"
)

// JobState represents the lifecycle state of a transfer job.
type JobState string

const (
	StateCreated   JobState = "created"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Terminal reports whether the state is one no job ever leaves.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TransferStats tracks per-file outcome counts for one job. Counts are
// monotonically non-decreasing; once the job is terminal,
// Downloaded + Skipped + Failed == Total.
type TransferStats struct {
	TotalFiles      int64 `json:"total_files"`
	DownloadedFiles int64 `json:"downloaded_files"`
	UploadedFiles   int64 `json:"uploaded_files"`
	SkippedFiles    int64 `json:"skipped_files"`
	FailedFiles     int64 `json:"failed_files"`
}

// TransferJob is one end-to-end transfer run tracked from creation through
// a terminal state. Values handed out by JobManager are snapshots; the live
// record is owned by the manager and only mutated through it.
type TransferJob struct {
	ID        string        `json:"job_id"`
	Status    JobState      `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Error     string        `json:"error,omitempty"`
	Stats     TransferStats `json:"stats"`
}
