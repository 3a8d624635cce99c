package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/docqa/internal/loader"
	"github.com/kalambet/docqa/internal/metrics"
	"github.com/kalambet/docqa/internal/reconcile"
	"github.com/kalambet/docqa/internal/storage"
)

// cleanupTimeout bounds best-effort rollback work after a failed upload.
const cleanupTimeout = 30 * time.Second

// UploadRequest is a file to add to the knowledge base.
type UploadRequest struct {
	Filename  string
	Data      []byte
	SessionID string
}

// UploadResult describes an indexed document.
type UploadResult struct {
	DocumentID int64
	Filename   string
	Chunks     int
}

// DeleteResult describes a removed document.
type DeleteResult struct {
	DocumentID int64
	Chunks     int
}

// ReindexResult describes a re-indexed document.
type ReindexResult struct {
	DocumentID int64
	Chunks     int
}

// Upload extracts, stores, chunks and indexes a document. Unsupported files
// are rejected before anything is written. If indexing fails the document
// record is deleted again so no unindexed document is left behind.
func (a *Assistant) Upload(ctx context.Context, req UploadRequest) (res UploadResult, err error) {
	const op = "upload"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	if req.Filename == "" {
		return UploadResult{}, invalid(op, "filename is required")
	}
	content, err := loader.Load(req.Filename, req.Data)
	if err != nil {
		return UploadResult{}, &Error{Kind: ErrUnsupportedInput, Op: op, Err: err}
	}
	chunks := a.splitter.Collect(content)
	if len(chunks) == 0 {
		return UploadResult{}, &Error{Kind: ErrUnsupportedInput, Op: op, Err: errors.New("document has no extractable text")}
	}

	id, err := a.store.InsertDocument(ctx, req.Filename, content)
	if err != nil {
		return UploadResult{}, storeError(op, err)
	}

	unlock, err := a.lockDocument(ctx, op, id)
	if err != nil {
		a.rollbackUpload(ctx, id)
		return UploadResult{}, err
	}
	defer unlock()

	ictx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	n, err := a.index.EmbedAndStore(ictx, id, chunks)
	cancel()
	if err != nil {
		a.rollbackUpload(ctx, id)
		return UploadResult{}, newError(ErrIndex, op, err)
	}
	metrics.AddChunksIndexed(n)

	if req.SessionID != "" {
		if err := a.store.AttachDocument(ctx, id, req.SessionID); err != nil {
			a.logger.Warn("attaching document to session", "document_id", id, "session_id", req.SessionID, "error", err)
		}
	}

	a.logger.Info("document indexed", "document_id", id, "filename", req.Filename, "chunks", n)
	return UploadResult{DocumentID: id, Filename: req.Filename, Chunks: n}, nil
}

// rollbackUpload removes partially indexed chunks and the document record.
// It runs detached from ctx so a cancelled request still cleans up.
func (a *Assistant) rollbackUpload(ctx context.Context, id int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if _, err := a.index.DeleteByDocument(ctx, id); err != nil {
		a.logger.Warn("removing partial chunks", "document_id", id, "error", err)
	}
	if _, err := a.store.DeleteDocument(ctx, id); err != nil {
		a.logger.Warn("rolling back document record", "document_id", id, "error", err)
		a.enqueuePurge(ctx, id)
	}
}

// DeleteDocument removes a document's chunks from the index and then its
// record from the store. When the index delete fails the record is kept and
// an ErrIndex is returned. When the store delete fails after the chunks are
// gone an ErrConsistency is returned and a purge job is queued.
func (a *Assistant) DeleteDocument(ctx context.Context, id int64) (res DeleteResult, err error) {
	const op = "delete document"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	unlock, err := a.lockDocument(ctx, op, id)
	if err != nil {
		return DeleteResult{}, err
	}
	defer unlock()

	exists, err := a.store.DocumentExists(ctx, id)
	if err != nil {
		return DeleteResult{}, storeError(op, err)
	}
	if !exists {
		return DeleteResult{}, notFound(op, "document %d", id)
	}

	n, err := a.index.DeleteByDocument(ctx, id)
	if err != nil {
		return DeleteResult{}, newError(ErrIndex, op, err)
	}

	removed, err := a.store.DeleteDocument(ctx, id)
	if err == nil && !removed {
		err = storage.ErrNotFound
	}
	if err != nil {
		a.logger.Error("chunks deleted but document record remains", "document_id", id, "error", err)
		a.enqueuePurge(ctx, id)
		return DeleteResult{DocumentID: id, Chunks: n}, &Error{Kind: ErrConsistency, Op: op, Err: err}
	}

	a.logger.Info("document deleted", "document_id", id, "chunks", n)
	return DeleteResult{DocumentID: id, Chunks: n}, nil
}

func (a *Assistant) enqueuePurge(ctx context.Context, id int64) {
	ctx = context.WithoutCancel(ctx)
	if _, err := a.store.EnqueueJob(ctx, reconcile.PurgeJob(id)); err != nil {
		a.logger.Error("queueing purge job", "document_id", id, "error", err)
	}
}

// Reindex replaces a document's chunks with freshly embedded ones built
// from its stored content. If embedding fails after the old chunks are
// removed, the document stays in the store without chunks and is not
// searchable until a later Reindex succeeds.
func (a *Assistant) Reindex(ctx context.Context, id int64) (res ReindexResult, err error) {
	const op = "reindex"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	unlock, err := a.lockDocument(ctx, op, id)
	if err != nil {
		return ReindexResult{}, err
	}
	defer unlock()

	content, err := a.store.GetDocumentContent(ctx, id)
	if err != nil {
		return ReindexResult{}, storeError(op, err)
	}

	if _, err := a.index.DeleteByDocument(ctx, id); err != nil {
		return ReindexResult{}, newError(ErrIndex, op, err)
	}

	ictx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()
	n, err := a.index.EmbedAndStore(ictx, id, a.splitter.Collect(content))
	if err != nil {
		a.logger.Warn("document left without chunks after failed reindex", "document_id", id, "error", err)
		return ReindexResult{}, newError(ErrIndex, op, err)
	}
	metrics.AddChunksIndexed(n)

	a.logger.Info("document reindexed", "document_id", id, "chunks", n)
	return ReindexResult{DocumentID: id, Chunks: n}, nil
}

// ListDocuments returns the documents attached to sessionID, or every
// document when sessionID is empty. Newest first.
func (a *Assistant) ListDocuments(ctx context.Context, sessionID string) ([]storage.DocumentSummary, error) {
	docs, err := a.store.ListDocuments(ctx, sessionID)
	if err != nil {
		return nil, storeError("list documents", err)
	}
	return docs, nil
}
