package retrieval

import "context"

// DefaultTopK is the number of chunks retrieved when the caller asks for none.
const DefaultTopK = 4

// Searcher is the part of Index the Retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	SearchDocument(ctx context.Context, documentID int64, query string, k int) ([]Hit, error)
}

// Retriever returns the texts of the chunks most relevant to a query.
type Retriever struct {
	searcher Searcher
	topK     int
}

// NewRetriever creates a Retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(s Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{searcher: s, topK: topK}
}

// Retrieve returns up to k chunk texts across all documents in rank order.
// k <= 0 uses the retriever's default.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	hits, err := r.searcher.Search(ctx, query, r.k(k))
	if err != nil {
		return nil, err
	}
	return texts(hits), nil
}

// RetrieveFromDocument is Retrieve limited to one document.
func (r *Retriever) RetrieveFromDocument(ctx context.Context, documentID int64, query string, k int) ([]string, error) {
	hits, err := r.searcher.SearchDocument(ctx, documentID, query, r.k(k))
	if err != nil {
		return nil, err
	}
	return texts(hits), nil
}

func (r *Retriever) k(k int) int {
	if k <= 0 {
		return r.topK
	}
	return k
}

func texts(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Text
	}
	return out
}
