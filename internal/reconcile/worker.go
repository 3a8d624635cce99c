// Package reconcile repairs documents whose delete left the vector index and
// the document store out of step. Such documents are queued as
// purge_document jobs and retried with backoff until both sides are clean.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/docqa/internal/metrics"
	"github.com/kalambet/docqa/internal/storage"
)

// JobPurgeDocument removes every trace of a document from index and store.
const JobPurgeDocument = "purge_document"

// purgeMaxAttempts bounds retries of a purge job.
const purgeMaxAttempts = 5

// JobStore abstracts the job queue and document deletion.
type JobStore interface {
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
	DeleteDocument(ctx context.Context, id int64) (bool, error)
}

// ChunkDeleter removes a document's chunks from the vector index.
type ChunkDeleter interface {
	DeleteByDocument(ctx context.Context, documentID int64) (int, error)
}

// DocumentLocker serializes work on one document. A purge holds the lock
// so it cannot interleave with an upload, delete or reindex of the same id.
type DocumentLocker interface {
	LockDocument(ctx context.Context, id int64) (func(), error)
}

type purgePayload struct {
	DocumentID int64 `json:"document_id"`
}

// PurgeJob builds the job that finishes deleting documentID.
func PurgeJob(documentID int64) storage.Job {
	payload, _ := json.Marshal(purgePayload{DocumentID: documentID})
	return storage.Job{
		Type:        JobPurgeDocument,
		PayloadJSON: string(payload),
		MaxAttempts: purgeMaxAttempts,
	}
}

// Worker processes purge_document jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	index  ChunkDeleter
	locker DocumentLocker
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 5s.
func NewWorker(store JobStore, index ChunkDeleter, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		store:  store,
		index:  index,
		poll:   pollInterval,
		logger: slog.Default().With("component", "reconcile"),
	}
}

// WithLocker makes the worker hold l's document lock while purging.
func (w *Worker) WithLocker(l DocumentLocker) *Worker {
	w.locker = l
	return w
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// Drain processes jobs until none is runnable and returns how many ran.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	n := 0
	for {
		done, err := w.RunOnce(ctx)
		if err != nil {
			return n, err
		}
		if !done {
			return n, nil
		}
		n++
	}
}

// RunOnce claims and processes a single purge_document job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, []string{JobPurgeDocument})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	err = w.processJob(ctx, job)
	metrics.ObserveReconcile(err)
	if err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload purgePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.DocumentID <= 0 {
		return fmt.Errorf("payload has no document_id")
	}

	if w.locker != nil {
		unlock, err := w.locker.LockDocument(ctx, payload.DocumentID)
		if err != nil {
			return fmt.Errorf("locking document %d: %w", payload.DocumentID, err)
		}
		defer unlock()
	}

	chunks, err := w.index.DeleteByDocument(ctx, payload.DocumentID)
	if err != nil {
		return fmt.Errorf("deleting chunks of document %d: %w", payload.DocumentID, err)
	}
	removed, err := w.store.DeleteDocument(ctx, payload.DocumentID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("deleting document %d: %w", payload.DocumentID, err)
	}

	w.logger.Info("purged document", "document_id", payload.DocumentID, "chunks", chunks, "record_removed", removed)
	return nil
}
