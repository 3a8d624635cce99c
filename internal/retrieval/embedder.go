package retrieval

import (
	"context"
	"fmt"

	"github.com/kalambet/docqa/internal/engine"
	"golang.org/x/sync/errgroup"
)

// embedConcurrency bounds parallel embedding calls per batch.
const embedConcurrency = 4

// Embedder wraps an Engine to generate text embeddings of a fixed dimension.
type Embedder struct {
	engine engine.Engine
	model  string
	dim    int
}

// NewEmbedder creates an Embedder using the given Engine and model name.
// A positive dim makes every returned vector be checked against it.
func NewEmbedder(e engine.Engine, model string, dim int) *Embedder {
	return &Embedder{engine: e, model: model, dim: dim}
}

// Dimension returns the configured embedding size, or 0 when unchecked.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.engine.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if err := e.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently,
// preserving input order. Returns nil (not error) for empty input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.engine.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			if err := e.check(vec); err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Embedder) check(vec []float32) error {
	if e.dim > 0 && len(vec) != e.dim {
		return fmt.Errorf("%w: model %s returned %d values, index expects %d", ErrDimensionMismatch, e.model, len(vec), e.dim)
	}
	return nil
}
