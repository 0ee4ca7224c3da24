package engine

import (
	"path"

	"github.com/datasetops/shuttle/provider"
)

// FileTask represents a single file to be moved from the source repository
// to the destination store as part of a job.
type FileTask struct {
	// JobID is the owning transfer job.
	JobID string

	// Info holds the source file's identifier and light metadata.
	Info provider.FileInfo

	// Rank is the externally supplied classification segment used as the
	// top-level destination key prefix.
	Rank string

	// Meta is the structured metadata to attach to the uploaded object.
	Meta provider.ObjectMetadata
}

// TaskChannel is a channel used to queue and dispatch FileTasks to workers
// in the worker pool.
type TaskChannel chan FileTask

// DestinationKey derives the destination key for the task using the
// {rank}/{capture_date}/{original_filename} scheme. The capture date falls
// back to the source file's modified date when the request carried none.
func (t FileTask) DestinationKey() string {
	date := t.Meta.CaptureDate
	if date == "" && t.Info != nil && !t.Info.ModTime().IsZero() {
		date = t.Info.ModTime().UTC().Format("2006-01-02")
	}
	if date == "" {
		date = "undated"
	}
	return path.Join(t.Rank, date, t.Info.Name())
}

// Outcome is the terminal result of processing one file.
type Outcome string

const (
	// OutcomeUploaded means the file's bytes were written to the destination.
	OutcomeUploaded Outcome = "uploaded"
	// OutcomeSkipped means identical content was already at the destination.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the file could not be transferred after retries.
	OutcomeFailed Outcome = "failed"
)

// FileRecord is the per-file result of a worker run.
type FileRecord struct {
	SourceID    string
	Name        string
	Fingerprint string
	DestKey     string
	Metadata    provider.ObjectMetadata
	Outcome     Outcome
	Err         error
}
