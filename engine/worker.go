package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/datasetops/shuttle/provider"
	"github.com/datasetops/shuttle/store"
)

// TransferWorker runs the per-file pipeline: download into staging, hash,
// dedup-check, upload, record. Per-file errors never escape it; every task
// ends in exactly one FileRecord outcome.
type TransferWorker struct {
	source     provider.Source
	dest       provider.Destination
	index      store.Index
	stagingDir string
	policy     RetryPolicy
	buffers    *BufferPool
	logger     *slog.Logger
}

// NewTransferWorker creates a worker staging downloads under stagingDir.
func NewTransferWorker(
	source provider.Source,
	dest provider.Destination,
	index store.Index,
	stagingDir string,
	policy RetryPolicy,
	buffers *BufferPool,
	logger *slog.Logger,
) *TransferWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if buffers == nil {
		buffers = NewBufferPool(0)
	}
	return &TransferWorker{
		source:     source,
		dest:       dest,
		index:      index,
		stagingDir: stagingDir,
		policy:     policy,
		buffers:    buffers,
		logger:     logger,
	}
}

// Process moves one file through the pipeline and returns its record. The
// staging file is removed on every exit path.
func (w *TransferWorker) Process(ctx context.Context, task FileTask) FileRecord {
	rec := FileRecord{
		SourceID: task.Info.ID(),
		Name:     task.Info.Name(),
		Metadata: task.Meta,
	}

	stagingPath := filepath.Join(w.stagingDir, uuid.NewString())
	defer os.Remove(stagingPath)

	fingerprint, err := w.download(ctx, task.Info.ID(), stagingPath)
	if err != nil {
		w.logger.Warn("download failed", "job_id", task.JobID, "file", task.Info.Name(), "error", err)
		rec.Outcome = OutcomeFailed
		rec.Err = fmt.Errorf("download: %w", err)
		return rec
	}
	rec.Fingerprint = fingerprint

	// Fast path: content already transferred by an earlier job.
	if key, ok, err := w.index.Lookup(fingerprint); err != nil {
		rec.Outcome = OutcomeFailed
		rec.Err = fmt.Errorf("dedup lookup: %w", err)
		return rec
	} else if ok {
		rec.DestKey = key
		rec.Outcome = OutcomeSkipped
		return rec
	}

	// Reserve the fingerprint before uploading. When two workers race on
	// identical new content, exactly one wins the insert and uploads; the
	// loser reports skipped without touching the destination.
	key := task.DestinationKey()
	winner, inserted, err := w.index.Record(fingerprint, key)
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Err = fmt.Errorf("dedup record: %w", err)
		return rec
	}
	if !inserted {
		rec.DestKey = winner
		rec.Outcome = OutcomeSkipped
		return rec
	}

	if err := w.upload(ctx, stagingPath, key, task.Meta); err != nil {
		// Release the reservation so a later attempt can upload the content.
		if delErr := w.index.Delete(fingerprint); delErr != nil {
			w.logger.Error("failed to release dedup reservation", "fingerprint", fingerprint, "error", delErr)
		}
		w.logger.Warn("upload failed", "job_id", task.JobID, "file", task.Info.Name(), "key", key, "error", err)
		rec.Outcome = OutcomeFailed
		rec.Err = fmt.Errorf("upload: %w", err)
		return rec
	}

	rec.DestKey = key
	rec.Outcome = OutcomeUploaded
	w.logger.Debug("file uploaded", "job_id", task.JobID, "file", task.Info.Name(), "key", key)
	return rec
}

// download fetches the file's bytes into the staging path, retrying with
// backoff, and returns the content fingerprint. Each attempt truncates the
// staging file and hashes from scratch.
func (w *TransferWorker) download(ctx context.Context, fileID, stagingPath string) (string, error) {
	var fingerprint string

	err := w.policy.Do(ctx, func() error {
		rc, err := w.source.OpenRead(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to open source %s: %w", fileID, err)
		}
		defer rc.Close()

		f, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create staging file: %w", err)
		}

		fr := NewFingerprintReader(rc)
		buf := w.buffers.Get()
		_, copyErr := io.CopyBuffer(f, fr, *buf)
		w.buffers.Put(buf)

		if closeErr := f.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return fmt.Errorf("failed to stage %s: %w", fileID, copyErr)
		}

		fingerprint = fr.Fingerprint()
		return nil
	})
	if err != nil {
		return "", err
	}
	return fingerprint, nil
}

// upload writes the staged bytes to the destination, retrying with backoff.
func (w *TransferWorker) upload(ctx context.Context, stagingPath, key string, meta provider.ObjectMetadata) error {
	return w.policy.Do(ctx, func() error {
		f, err := os.Open(stagingPath)
		if err != nil {
			return fmt.Errorf("failed to open staging file: %w", err)
		}
		defer f.Close()

		return w.dest.Put(ctx, key, f, meta)
	})
}
