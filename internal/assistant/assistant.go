// Package assistant runs the document Q&A tasks: upload and indexing,
// grounded chat, summaries, comprehension questions and answer evaluation.
// It owns error classification and the ordering rules that keep the vector
// index and the document store consistent.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kalambet/docqa/internal/chunker"
	"github.com/kalambet/docqa/internal/composer"
	"github.com/kalambet/docqa/internal/engine"
	"github.com/kalambet/docqa/internal/keylock"
	"github.com/kalambet/docqa/internal/retrieval"
	"github.com/kalambet/docqa/internal/storage"
)

var errEmptyOutput = errors.New("model returned empty output")

// Default option values.
const (
	DefaultModelTimeout = 60 * time.Second
	DefaultChatModel    = "gpt-4.1"
)

// Store is the document store used by the Assistant.
type Store interface {
	InsertDocument(ctx context.Context, filename, content string) (int64, error)
	DeleteDocument(ctx context.Context, id int64) (bool, error)
	GetDocumentContent(ctx context.Context, id int64) (string, error)
	DocumentExists(ctx context.Context, id int64) (bool, error)
	AttachDocument(ctx context.Context, documentID int64, sessionID string) error
	ListDocuments(ctx context.Context, sessionID string) ([]storage.DocumentSummary, error)
	AppendTurn(ctx context.Context, sessionID, question, answer, model string) (storage.ConversationTurn, error)
	GetHistory(ctx context.Context, sessionID string) ([]storage.ConversationTurn, error)
	EnqueueJob(ctx context.Context, job storage.Job) (string, error)
}

// Indexer writes and removes document chunks in the vector index.
type Indexer interface {
	EmbedAndStore(ctx context.Context, documentID int64, chunks []chunker.Chunk) (int, error)
	DeleteByDocument(ctx context.Context, documentID int64) (int, error)
}

// Retriever returns ranked chunk texts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
	RetrieveFromDocument(ctx context.Context, documentID int64, query string, k int) ([]string, error)
}

// Options tunes an Assistant. Zero values select the defaults.
type Options struct {
	ChatModel         string
	ModelTimeout      time.Duration
	TopK              int
	ChunkSize         int
	ChunkOverlap      int
	MaxContextTokens  int
	CondenseQuestions bool
}

func (o *Options) setDefaults() {
	if o.ChatModel == "" {
		o.ChatModel = DefaultChatModel
	}
	if o.ModelTimeout <= 0 {
		o.ModelTimeout = DefaultModelTimeout
	}
	if o.TopK <= 0 {
		o.TopK = retrieval.DefaultTopK
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunker.DefaultSize
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = chunker.DefaultOverlap
	}
	if o.MaxContextTokens <= 0 {
		o.MaxContextTokens = composer.DefaultMaxContextTokens
	}
}

// Assistant orchestrates the document tasks. It is safe for concurrent use.
type Assistant struct {
	store     Store
	index     Indexer
	retriever Retriever
	engine    engine.Engine
	splitter  *chunker.Splitter
	opts      Options

	// Chat turns serialize per session; upload, delete and reindex
	// serialize per document.
	sessions  keylock.Map
	documents keylock.Map

	logger *slog.Logger
}

// New creates an Assistant from its collaborators.
func New(store Store, index Indexer, retriever Retriever, eng engine.Engine, opts Options) (*Assistant, error) {
	opts.setDefaults()
	splitter, err := chunker.New(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}
	return &Assistant{
		store:     store,
		index:     index,
		retriever: retriever,
		engine:    eng,
		splitter:  splitter,
		opts:      opts,
		logger:    slog.Default().With("component", "assistant"),
	}, nil
}

// ChatModel returns the model used when a request names none.
func (a *Assistant) ChatModel() string {
	return a.opts.ChatModel
}

// complete runs one chat completion under the model timeout and rejects
// empty output.
func (a *Assistant) complete(ctx context.Context, op, model string, msgs []engine.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()

	out, err := a.engine.Chat(ctx, model, msgs)
	if err != nil {
		return "", newError(ErrModel, op, err)
	}
	if isBlank(out) {
		return "", &Error{Kind: ErrModel, Op: op, Err: errEmptyOutput}
	}
	return out, nil
}

// LockDocument holds the lock that upload, delete and reindex take for
// document id until the returned function is called.
func (a *Assistant) LockDocument(ctx context.Context, id int64) (func(), error) {
	return a.documents.Lock(ctx, strconv.FormatInt(id, 10))
}

func (a *Assistant) lockDocument(ctx context.Context, op string, id int64) (func(), error) {
	unlock, err := a.LockDocument(ctx, id)
	if err != nil {
		return nil, lockError(ErrIndex, op, err)
	}
	return unlock, nil
}
