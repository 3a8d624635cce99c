package engine

import "context"

// Engine abstracts a model backend that can complete chats and embed text.
// The orchestration layer depends on this interface only.
type Engine interface {
	// Name identifies the backend ("openai", "ollama").
	Name() string

	// Chat sends messages to the given model and returns the assistant's response.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// Embed returns the embedding vector for the given text using the specified model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// IsRunning reports whether the backend is reachable.
	IsRunning(ctx context.Context) bool

	// ListModels returns the names of the models the backend serves.
	ListModels(ctx context.Context) ([]string, error)
}

// Puller is implemented by local backends that can download missing models.
type Puller interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}

// Temporary is implemented by errors that may succeed on retry.
type Temporary interface {
	Temporary() bool
}
