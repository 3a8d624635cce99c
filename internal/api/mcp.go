package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/docqa/internal/assistant"
)

const documentsURI = "docqa://documents"

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service Service
	Version string
}

// NewMCPServer creates an MCP server with the document tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"docqa",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("docqa answers questions about uploaded documents. List documents first, then ask, summarize or quiz on them by id."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question answered from the uploaded documents."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Conversation to continue; omit to start a new one")),
			mcp.WithString("model", mcp.Description("Chat model override")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("list_documents",
			mcp.WithDescription("List uploaded documents with their ids."),
			mcp.WithString("session_id", mcp.Description("Only documents attached to this session")),
		),
		mcpListDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("summarize_document",
			mcp.WithDescription("Summarize a document in at most 150 words."),
			mcp.WithNumber("document_id", mcp.Description("Document id"), mcp.Required()),
		),
		mcpSummarize(deps),
	)

	s.AddTool(
		mcp.NewTool("challenge_document",
			mcp.WithDescription("Generate three comprehension questions about a document."),
			mcp.WithNumber("document_id", mcp.Description("Document id"), mcp.Required()),
		),
		mcpChallenge(deps),
	)

	s.AddTool(
		mcp.NewTool("evaluate_answer",
			mcp.WithDescription("Evaluate an answer to a question about a document."),
			mcp.WithNumber("document_id", mcp.Description("Document id"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question that was asked"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The answer to evaluate"), mcp.Required()),
		),
		mcpEvaluate(deps),
	)

	s.AddResource(
		mcp.NewResource(
			documentsURI,
			"Documents",
			mcp.WithResourceDescription("All uploaded documents as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcpError("question is required"), nil
		}

		res, err := deps.Service.Chat(ctx, assistant.ChatRequest{
			SessionID: req.GetString("session_id", ""),
			Question:  question,
			Model:     req.GetString("model", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}

		return mcpJSON(map[string]string{
			"answer":     res.Answer,
			"session_id": res.SessionID,
			"model":      res.Model,
		})
	}
}

func mcpListDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docs, err := deps.Service.ListDocuments(ctx, req.GetString("session_id", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("listing documents failed: %v", err)), nil
		}
		if len(docs) == 0 {
			return mcpText("[]"), nil
		}
		out := make([]documentInfo, len(docs))
		for i, d := range docs {
			out[i] = documentInfo{ID: d.ID, Filename: d.Filename, UploadTimestamp: d.UploadedAt}
		}
		return mcpJSON(out)
	}
}

func mcpSummarize(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := documentID(req)
		if !ok {
			return mcpError("document_id is required"), nil
		}
		res, err := deps.Service.Summarize(ctx, id)
		if err != nil {
			return mcpError(toolFailure("summarize", id, err)), nil
		}
		return mcpText(res.Summary), nil
	}
}

func mcpChallenge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := documentID(req)
		if !ok {
			return mcpError("document_id is required"), nil
		}
		res, err := deps.Service.GenerateQuestions(ctx, id)
		if err != nil {
			return mcpError(toolFailure("challenge", id, err)), nil
		}
		return mcpJSON(res.Questions)
	}
}

func mcpEvaluate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, ok := documentID(req)
		if !ok {
			return mcpError("document_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}
		res, err := deps.Service.Evaluate(ctx, assistant.EvaluateRequest{
			DocumentID: id,
			Question:   question,
			Answer:     answer,
		})
		if err != nil {
			return mcpError(toolFailure("evaluate", id, err)), nil
		}
		return mcpText(res.Feedback), nil
	}
}

func mcpResourceDocuments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Service.ListDocuments(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		type documentEntry struct {
			ID         int64  `json:"id"`
			Filename   string `json:"filename"`
			UploadedAt string `json:"upload_timestamp"`
		}

		entries := make([]documentEntry, len(docs))
		for i, d := range docs {
			entries[i] = documentEntry{
				ID:         d.ID,
				Filename:   d.Filename,
				UploadedAt: d.UploadedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// documentID reads a positive document_id argument.
func documentID(req mcp.CallToolRequest) (int64, bool) {
	id := req.GetInt("document_id", 0)
	if id <= 0 {
		return 0, false
	}
	return int64(id), true
}

func toolFailure(task string, id int64, err error) string {
	if errors.Is(err, assistant.ErrNotFound) {
		return fmt.Sprintf("document %d not found", id)
	}
	return fmt.Sprintf("%s failed: %v", task, err)
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
