package retrieval

import (
	"context"
	"errors"
	"time"
)

// ErrDimensionMismatch means a vector's length differs from the configured
// embedding dimension. It signals a configuration error and is never retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// VectorStore is the interface for chunk embedding storage backends.
type VectorStore interface {
	// Insert adds records. Existing ids are replaced.
	Insert(ctx context.Context, records []Record) error

	// Search returns up to topK records ranked by descending cosine
	// similarity, restricted by filter. A zero-norm query matches every
	// record under the filter with score 0.
	Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredRecord, error)

	// Delete removes records by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// FilteredDeleter is an optional interface for backends that can delete
// every record of a document in one call.
type FilteredDeleter interface {
	DeleteByDocument(ctx context.Context, documentID int64) (int, error)
}

// Filter restricts a search. The zero value matches everything.
type Filter struct {
	DocumentID int64
}

func (f Filter) matches(r Record) bool {
	return f.DocumentID == 0 || r.DocumentID == f.DocumentID
}

// Record represents one embedded chunk.
type Record struct {
	ID         string
	DocumentID int64
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
