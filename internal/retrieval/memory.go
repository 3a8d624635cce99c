package retrieval

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ VectorStore = (*MemoryStore)(nil)

// MemoryStore is an in-process VectorStore for tests and ephemeral runs.
// It has no filtered delete, so Index removes a document's chunks from it
// by query-then-delete.
type MemoryStore struct {
	dim     int
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty store. A positive dim rejects vectors of
// any other length.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, records: make(map[string]Record)}
}

func (m *MemoryStore) Insert(_ context.Context, records []Record) error {
	for _, r := range records {
		if err := checkDim(m.dim, r.Embedding); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		r.Embedding = vec
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredRecord, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := checkDim(m.dim, vector); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	queryNorm := norm(vector)
	var scored []ScoredRecord
	for _, r := range m.records {
		if !filter.matches(r) {
			continue
		}
		var score float32
		if queryNorm != 0 {
			score = dotProduct(vector, r.Embedding, queryNorm)
		}
		scored = append(scored, ScoredRecord{Record: r, Score: score})
	}

	sortByScore(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *MemoryStore) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// IDs returns all stored ids in sorted order.
func (m *MemoryStore) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
