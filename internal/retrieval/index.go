package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/docqa/internal/chunker"
)

// deleteScanLimit caps how many ids one query-then-delete pass collects.
const deleteScanLimit = 10000

// Hit is one search result.
type Hit struct {
	Text       string  `json:"text"`
	DocumentID int64   `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Index embeds document chunks and searches them. It is safe for
// concurrent use; it does not serialize writes for the same document, so
// callers must not delete and re-index one document at the same time.
//
// The bundled stores make writes visible to the next read. Other backends
// may be eventually consistent, in which case a search right after
// EmbedAndStore or DeleteByDocument can still see the previous state.
type Index struct {
	embedder *Embedder
	store    VectorStore
}

// NewIndex creates an Index over the given embedder and store.
func NewIndex(embedder *Embedder, store VectorStore) *Index {
	return &Index{embedder: embedder, store: store}
}

// EmbedAndStore embeds every chunk and stores it tagged with documentID.
// It returns the number of stored chunks. On error nothing is guaranteed
// about partially stored chunks; callers clean up with DeleteByDocument.
func (ix *Index) EmbedAndStore(ctx context.Context, documentID int64, chunks []chunker.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks of document %d: %w", documentID, err)
	}

	now := time.Now().UTC()
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{
			ID:         ChunkID(documentID, c.Index),
			DocumentID: documentID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Embedding:  vecs[i],
			CreatedAt:  now,
		}
	}
	if err := ix.store.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("storing chunks of document %d: %w", documentID, err)
	}

	slog.Debug("indexed document", "document_id", documentID, "chunks", len(records))
	return len(records), nil
}

// Search returns at most k chunks across all documents, most similar first.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	return ix.search(ctx, query, k, Filter{})
}

// SearchDocument is Search restricted to one document.
func (ix *Index) SearchDocument(ctx context.Context, documentID int64, query string, k int) ([]Hit, error) {
	return ix.search(ctx, query, k, Filter{DocumentID: documentID})
}

func (ix *Index) search(ctx context.Context, query string, k int, filter Filter) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	scored, err := ix.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(scored) > k {
		scored = scored[:k]
	}

	hits := make([]Hit, len(scored))
	for i, s := range scored {
		hits[i] = Hit{Text: s.Text, DocumentID: s.DocumentID, ChunkIndex: s.ChunkIndex, Score: s.Score}
	}
	return hits, nil
}

// DeleteByDocument removes every chunk tagged with documentID and returns
// how many were removed. Deleting a document with no chunks is a no-op.
// Backends without FilteredDeleter are drained by repeated zero-vector
// queries under the document filter followed by deletes by id. A failure
// midway leaves some chunks behind; calling again finishes the job.
func (ix *Index) DeleteByDocument(ctx context.Context, documentID int64) (int, error) {
	if fd, ok := ix.store.(FilteredDeleter); ok {
		n, err := fd.DeleteByDocument(ctx, documentID)
		if err != nil {
			return 0, err
		}
		return n, nil
	}

	dim := ix.embedder.Dimension()
	if dim <= 0 {
		dim = 1
	}
	zero := make([]float32, dim)
	filter := Filter{DocumentID: documentID}

	total := 0
	for {
		matches, err := ix.store.Search(ctx, zero, deleteScanLimit, filter)
		if err != nil {
			return total, fmt.Errorf("listing chunks of document %d: %w", documentID, err)
		}
		if len(matches) == 0 {
			return total, nil
		}
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		if err := ix.store.Delete(ctx, ids); err != nil {
			return total, fmt.Errorf("deleting chunks of document %d: %w", documentID, err)
		}
		total += len(ids)
		if len(matches) < deleteScanLimit {
			return total, nil
		}
	}
}

// Count returns the number of indexed chunks.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

// ChunkID is the record id of a document chunk.
func ChunkID(documentID int64, chunkIndex int) string {
	return fmt.Sprintf("%d-%d", documentID, chunkIndex)
}
