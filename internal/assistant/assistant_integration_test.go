//go:build integration

package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/docqa/internal/engine"
	"github.com/kalambet/docqa/internal/retrieval"
	"github.com/kalambet/docqa/internal/storage"
)

const (
	integrationChat  = "llama3.2"
	integrationEmbed = "nomic-embed-text"
	integrationDim   = 768
)

func TestUploadAndChat_RealOllama(t *testing.T) {
	ctx := context.Background()
	eng := engine.NewOllamaEngine("http://localhost:11434")
	if !eng.IsRunning(ctx) {
		t.Skip("Ollama is not running, skipping integration test")
	}
	for _, m := range []string{integrationChat, integrationEmbed} {
		if !eng.HasModel(ctx, m) {
			t.Skipf("%s model not available, skipping integration test", m)
		}
	}

	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	defer st.Close()

	embedder := retrieval.NewEmbedder(eng, integrationEmbed, integrationDim)
	index := retrieval.NewIndex(embedder, retrieval.NewSQLiteStore(st.DB(), integrationDim))
	a, err := New(st, index, retrieval.NewRetriever(index, 0), eng, Options{ChatModel: integrationChat})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc := "The Larkspur office is open Monday to Thursday. " +
		"Refund requests must be filed within 45 days of purchase. " +
		"The support line is staffed by a team of nine people."
	up, err := a.Upload(ctx, UploadRequest{Filename: "policy.txt", Data: []byte(doc)})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	start := time.Now()
	res, err := a.Chat(ctx, ChatRequest{Question: "Within how many days must refunds be requested?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.Contains(res.Answer, "45") {
		t.Errorf("answer %q does not mention 45", res.Answer)
	}
	t.Logf("answer: %q (took %v)", res.Answer, time.Since(start))

	questions, err := a.GenerateQuestions(ctx, up.DocumentID)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions.Questions) == 0 {
		t.Error("no questions generated")
	}
}
