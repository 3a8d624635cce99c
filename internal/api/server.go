// Package api exposes the document assistant over HTTP and MCP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/docqa/internal/assistant"
	"github.com/kalambet/docqa/internal/metrics"
	"github.com/kalambet/docqa/internal/storage"
)

// DefaultMaxUploadBytes caps multipart uploads when Deps sets no limit.
const DefaultMaxUploadBytes = 20 << 20

const maxRequestBodySize = 1 << 20 // 1MB

// Service is the set of document tasks served by the API.
type Service interface {
	Upload(ctx context.Context, req assistant.UploadRequest) (assistant.UploadResult, error)
	Chat(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResult, error)
	Summarize(ctx context.Context, documentID int64) (assistant.SummaryResult, error)
	GenerateQuestions(ctx context.Context, documentID int64) (assistant.QuestionsResult, error)
	Evaluate(ctx context.Context, req assistant.EvaluateRequest) (assistant.EvaluationResult, error)
	DeleteDocument(ctx context.Context, documentID int64) (assistant.DeleteResult, error)
	Reindex(ctx context.Context, documentID int64) (assistant.ReindexResult, error)
	ListDocuments(ctx context.Context, sessionID string) ([]storage.DocumentSummary, error)
	History(ctx context.Context, sessionID string) ([]storage.ConversationTurn, error)
	Healthy(ctx context.Context) bool
	EngineName() string
}

var _ Service = (*assistant.Assistant)(nil)

// Deps configures the HTTP handler.
type Deps struct {
	Service Service
	// Token enables bearer auth on every route except /health and /metrics.
	Token string
	// MaxUploadBytes caps /upload-doc bodies; 0 selects DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// SummarizeOnUpload adds a document summary to the upload response.
	SummarizeOnUpload bool
}

// NewHandler returns the REST API router.
func NewHandler(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", handleHealth(deps))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/chat", handleChat(deps))
		r.Post("/upload-doc", handleUpload(deps))
		r.Get("/list-docs", handleListDocs(deps))
		r.Post("/delete-doc", handleDeleteDoc(deps))
		r.Post("/challenge-me", handleChallenge(deps))
		r.Post("/evaluate-response", handleEvaluate(deps))
		r.Post("/summarize", handleSummarize(deps))
		r.Post("/reindex-doc", handleReindex(deps))
		r.Get("/history", handleHistory(deps))
	})

	return r
}
