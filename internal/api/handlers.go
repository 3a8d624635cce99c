package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kalambet/docqa/internal/assistant"
)

type chatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

type uploadResponse struct {
	Message      string `json:"message"`
	FileID       int64  `json:"file_id"`
	Filename     string `json:"filename"`
	Chunks       int    `json:"chunks"`
	Summary      string `json:"summary,omitempty"`
	SummaryError string `json:"summary_error,omitempty"`
}

type documentInfo struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	UploadTimestamp time.Time `json:"upload_timestamp"`
}

type fileRequest struct {
	FileID int64 `json:"file_id"`
}

type evaluateRequest struct {
	FileID     int64  `json:"file_id"`
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
}

type turnInfo struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if !deps.Service.Healthy(r.Context()) {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{"status": status, "engine": deps.Service.EngineName()})
	}
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// decodeFile reads a {file_id} body and rejects non-positive ids.
func decodeFile(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req fileRequest
	if !decodeJSON(w, r, &req) {
		return 0, false
	}
	if req.FileID <= 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "file_id is required")
		return 0, false
	}
	return req.FileID, true
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := deps.Service.Chat(r.Context(), assistant.ChatRequest{
			SessionID: req.SessionID,
			Question:  req.Question,
			Model:     req.Model,
		})
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		slog.Info("chat answered", "session_id", res.SessionID, "model", res.Model)
		writeJSON(w, http.StatusOK, chatResponse{Answer: res.Answer, SessionID: res.SessionID, Model: res.Model})
	}
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > deps.MaxUploadBytes {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "upload exceeds %d bytes", deps.MaxUploadBytes)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "upload exceeds %d bytes", deps.MaxUploadBytes)
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "multipart field \"file\" is required: %v", err)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading upload: %v", err)
			return
		}

		res, err := deps.Service.Upload(r.Context(), assistant.UploadRequest{
			Filename:  header.Filename,
			Data:      data,
			SessionID: r.FormValue("session_id"),
		})
		if err != nil {
			msg := ""
			if errors.Is(err, assistant.ErrIndex) {
				msg = fmt.Sprintf("Failed to index %s: %v", header.Filename, err)
			}
			writeError(w, r, err, msg)
			return
		}

		resp := uploadResponse{
			Message:  fmt.Sprintf("File %s has been successfully uploaded and indexed.", res.Filename),
			FileID:   res.DocumentID,
			Filename: res.Filename,
			Chunks:   res.Chunks,
		}
		if deps.SummarizeOnUpload {
			sum, err := deps.Service.Summarize(r.Context(), res.DocumentID)
			if err != nil {
				slog.Warn("summarizing uploaded document", "document_id", res.DocumentID, "error", err)
				resp.SummaryError = err.Error()
			} else {
				resp.Summary = sum.Summary
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListDocs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Service.ListDocuments(r.Context(), r.URL.Query().Get("session_id"))
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		out := make([]documentInfo, len(docs))
		for i, d := range docs {
			out[i] = documentInfo{ID: d.ID, Filename: d.Filename, UploadTimestamp: d.UploadedAt}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleDeleteDoc(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decodeFile(w, r)
		if !ok {
			return
		}
		_, err := deps.Service.DeleteDocument(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{
				"message": fmt.Sprintf("Successfully deleted document with file_id %d from the system.", id),
			})
		case errors.Is(err, assistant.ErrConsistency):
			writeError(w, r, err, fmt.Sprintf("Deleted from the index but failed to delete document with file_id %d from the database.", id))
		case errors.Is(err, assistant.ErrIndex):
			writeError(w, r, err, fmt.Sprintf("Failed to delete document with file_id %d from the index.", id))
		default:
			writeError(w, r, err, "")
		}
	}
}

func handleChallenge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decodeFile(w, r)
		if !ok {
			return
		}
		res, err := deps.Service.GenerateQuestions(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": res.Questions, "file_id": id})
	}
}

func handleEvaluate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req evaluateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.FileID <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "file_id is required")
			return
		}
		res, err := deps.Service.Evaluate(r.Context(), assistant.EvaluateRequest{
			DocumentID: req.FileID,
			Question:   req.Question,
			Answer:     req.UserAnswer,
		})
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feedback": res.Feedback, "file_id": req.FileID})
	}
}

func handleSummarize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decodeFile(w, r)
		if !ok {
			return
		}
		res, err := deps.Service.Summarize(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"summary": res.Summary, "file_id": id})
	}
}

func handleReindex(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := decodeFile(w, r)
		if !ok {
			return
		}
		res, err := deps.Service.Reindex(r.Context(), id)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Reindexed document with file_id %d.", id),
			"chunks":  res.Chunks,
		})
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turns, err := deps.Service.History(r.Context(), r.URL.Query().Get("session_id"))
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		out := make([]turnInfo, len(turns))
		for i, t := range turns {
			out[i] = turnInfo{
				ID:        t.ID,
				SessionID: t.SessionID,
				Question:  t.Question,
				Answer:    t.Answer,
				Model:     t.Model,
				CreatedAt: t.CreatedAt,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
