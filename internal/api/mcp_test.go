package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/docqa/internal/assistant"
	"github.com/kalambet/docqa/internal/storage"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_Ask(t *testing.T) {
	var got assistant.ChatRequest
	deps := MCPDeps{Service: &fakeService{chatFn: func(_ context.Context, req assistant.ChatRequest) (assistant.ChatResult, error) {
		got = req
		return assistant.ChatResult{SessionID: "s-1", Answer: "Paris", Model: "m"}, nil
	}}}
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question":   "capital of France?",
		"session_id": "s-1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if got.Question != "capital of France?" || got.SessionID != "s-1" {
		t.Errorf("request = %+v", got)
	}

	var resp map[string]string
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["answer"] != "Paris" || resp["session_id"] != "s-1" {
		t.Errorf("response = %v", resp)
	}
}

func TestMCPTool_Ask_MissingQuestion(t *testing.T) {
	handler := mcpAsk(MCPDeps{Service: &fakeService{}})

	for _, args := range []map[string]interface{}{{}, {"question": "   "}} {
		result, err := handler(context.Background(), makeCallToolRequest("ask", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
}

func TestMCPTool_ListDocuments(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{listFn: func(context.Context, string) ([]storage.DocumentSummary, error) {
		return []storage.DocumentSummary{
			{ID: 1, Filename: "a.txt", UploadedAt: time.Now()},
			{ID: 2, Filename: "b.pdf", UploadedAt: time.Now()},
		}, nil
	}}}

	result, err := mcpListDocuments(deps)(context.Background(), makeCallToolRequest("list_documents", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var docs []documentInfo
	if err := json.Unmarshal([]byte(toolText(t, result)), &docs); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(docs) != 2 || docs[1].Filename != "b.pdf" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestMCPTool_ListDocuments_Empty(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{listFn: func(context.Context, string) ([]storage.DocumentSummary, error) {
		return nil, nil
	}}}

	result, err := mcpListDocuments(deps)(context.Background(), makeCallToolRequest("list_documents", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text := toolText(t, result); text != "[]" {
		t.Fatalf("expected empty array, got: %s", text)
	}
}

func TestMCPTool_Summarize(t *testing.T) {
	var gotID int64
	deps := MCPDeps{Service: &fakeService{summarizeFn: func(_ context.Context, id int64) (assistant.SummaryResult, error) {
		gotID = id
		return assistant.SummaryResult{DocumentID: id, Summary: "A short summary."}, nil
	}}}

	result, err := mcpSummarize(deps)(context.Background(), makeCallToolRequest("summarize_document", map[string]interface{}{
		"document_id": float64(12),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != 12 {
		t.Errorf("document id = %d, want 12", gotID)
	}
	if text := toolText(t, result); text != "A short summary." {
		t.Errorf("summary = %q", text)
	}
}

func TestMCPTool_DocumentIDRequired(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{}}
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"summarize_document": mcpSummarize(deps),
		"challenge_document": mcpChallenge(deps),
		"evaluate_answer":    mcpEvaluate(deps),
	}
	for name, h := range handlers {
		result, err := h(context.Background(), makeCallToolRequest(name, map[string]interface{}{"document_id": float64(0)}))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !result.IsError || toolText(t, result) != "document_id is required" {
			t.Errorf("%s: result = %+v", name, result)
		}
	}
}

func TestMCPTool_Challenge_NotFound(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{questionsFn: func(context.Context, int64) (assistant.QuestionsResult, error) {
		return assistant.QuestionsResult{}, &assistant.Error{Kind: assistant.ErrNotFound, Op: "questions"}
	}}}

	result, err := mcpChallenge(deps)(context.Background(), makeCallToolRequest("challenge_document", map[string]interface{}{
		"document_id": float64(99),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || toolText(t, result) != "document 99 not found" {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPTool_Challenge(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{questionsFn: func(_ context.Context, id int64) (assistant.QuestionsResult, error) {
		return assistant.QuestionsResult{DocumentID: id, Questions: []string{"One?", "Two?", "Three?"}}, nil
	}}}

	result, err := mcpChallenge(deps)(context.Background(), makeCallToolRequest("challenge_document", map[string]interface{}{
		"document_id": float64(1),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var questions []string
	if err := json.Unmarshal([]byte(toolText(t, result)), &questions); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(questions) != 3 {
		t.Errorf("questions = %v", questions)
	}
}

func TestMCPTool_Evaluate(t *testing.T) {
	var got assistant.EvaluateRequest
	deps := MCPDeps{Service: &fakeService{evaluateFn: func(_ context.Context, req assistant.EvaluateRequest) (assistant.EvaluationResult, error) {
		got = req
		return assistant.EvaluationResult{DocumentID: req.DocumentID, Feedback: "Partially correct."}, nil
	}}}

	result, err := mcpEvaluate(deps)(context.Background(), makeCallToolRequest("evaluate_answer", map[string]interface{}{
		"document_id": float64(2),
		"question":    "Why?",
		"answer":      "Because.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if got.DocumentID != 2 || got.Question != "Why?" || got.Answer != "Because." {
		t.Errorf("request = %+v", got)
	}
	if toolText(t, result) != "Partially correct." {
		t.Errorf("feedback = %q", toolText(t, result))
	}
}

func TestMCPTool_Evaluate_ModelError(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{evaluateFn: func(context.Context, assistant.EvaluateRequest) (assistant.EvaluationResult, error) {
		return assistant.EvaluationResult{}, &assistant.Error{Kind: assistant.ErrModel, Op: "evaluate", Err: errors.New("rate limited")}
	}}}

	result, err := mcpEvaluate(deps)(context.Background(), makeCallToolRequest("evaluate_answer", map[string]interface{}{
		"document_id": float64(2),
		"question":    "Why?",
		"answer":      "Because.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "rate limited") {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPResource_Documents(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{listFn: func(_ context.Context, sessionID string) ([]storage.DocumentSummary, error) {
		if sessionID != "" {
			t.Errorf("resource listed session %q, want all documents", sessionID)
		}
		return []storage.DocumentSummary{{ID: 3, Filename: "c.txt", UploadedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}}, nil
	}}}

	contents, err := mcpResourceDocuments(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: documentsURI},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if !strings.Contains(tc.Text, `"filename":"c.txt"`) || !strings.Contains(tc.Text, "2025-06-01T00:00:00Z") {
		t.Errorf("resource text = %s", tc.Text)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps := MCPDeps{Service: &fakeService{
		chatFn: func(_ context.Context, req assistant.ChatRequest) (assistant.ChatResult, error) {
			return assistant.ChatResult{SessionID: "s", Answer: req.Question}, nil
		},
		listFn: func(context.Context, string) ([]storage.DocumentSummary, error) {
			return nil, nil
		},
	}}
	ask := mcpAsk(deps)
	list := mcpListDocuments(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := ask(context.Background(), makeCallToolRequest("ask", map[string]interface{}{"question": "q"})); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := list(context.Background(), makeCallToolRequest("list_documents", nil)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}
