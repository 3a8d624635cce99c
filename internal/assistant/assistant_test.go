package assistant

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/docqa/internal/chunker"
	"github.com/kalambet/docqa/internal/composer"
	"github.com/kalambet/docqa/internal/engine"
	"github.com/kalambet/docqa/internal/reconcile"
	"github.com/kalambet/docqa/internal/retrieval"
	"github.com/kalambet/docqa/internal/storage"
)

const testDim = 64

// mockEngine implements engine.Engine for testing.
type mockEngine struct {
	mu      sync.Mutex
	calls   [][]engine.Message
	chatFn  func(ctx context.Context, model string, msgs []engine.Message) (string, error)
	embedFn func(ctx context.Context, model, text string) ([]float32, error)
}

func (m *mockEngine) Name() string { return "mock" }

func (m *mockEngine) Chat(ctx context.Context, model string, msgs []engine.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, msgs)
	m.mu.Unlock()
	if m.chatFn != nil {
		return m.chatFn(ctx, model, msgs)
	}
	return "answer", nil
}

func (m *mockEngine) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, model, text)
	}
	return bagOfWords(text), nil
}

func (m *mockEngine) IsRunning(context.Context) bool               { return true }
func (m *mockEngine) ListModels(context.Context) ([]string, error) { return nil, nil }

func (m *mockEngine) lastCall() []engine.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func bagOfWords(text string) []float32 {
	v := make([]float32, testDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%testDim]++
	}
	return v
}

type fixture struct {
	store *storage.Store
	index *retrieval.Index
	eng   *mockEngine
	asst  *Assistant
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	return newFixtureWithStore(t, opts, nil)
}

// newFixtureWithStore builds an Assistant over an in-memory database. wrap,
// when set, replaces the store the Assistant sees.
func newFixtureWithStore(t *testing.T, opts Options, wrap func(*storage.Store) Store) *fixture {
	t.Helper()
	st, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := &mockEngine{}
	embedder := retrieval.NewEmbedder(eng, "embed", testDim)
	index := retrieval.NewIndex(embedder, retrieval.NewSQLiteStore(st.DB(), testDim))

	var s Store = st
	if wrap != nil {
		s = wrap(st)
	}
	a, err := New(s, index, retrieval.NewRetriever(index, 0), eng, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{store: st, index: index, eng: eng, asst: a}
}

func (f *fixture) upload(t *testing.T, name, content string) int64 {
	t.Helper()
	res, err := f.asst.Upload(context.Background(), UploadRequest{Filename: name, Data: []byte(content)})
	if err != nil {
		t.Fatalf("Upload(%s): %v", name, err)
	}
	return res.DocumentID
}

func (f *fixture) chunksOf(t *testing.T, id int64) int {
	t.Helper()
	hits, err := f.index.SearchDocument(context.Background(), id, "anything", 1000)
	if err != nil {
		t.Fatalf("SearchDocument: %v", err)
	}
	return len(hits)
}

func (f *fixture) history(t *testing.T, sessionID string) []storage.ConversationTurn {
	t.Helper()
	turns, err := f.asst.History(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("History(%s): %v", sessionID, err)
	}
	return turns
}

func (f *fixture) documents(t *testing.T) []storage.DocumentSummary {
	t.Helper()
	docs, err := f.asst.ListDocuments(context.Background(), "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	return docs
}

func paragraphDoc(n int) string {
	var sb strings.Builder
	for sb.Len() < n {
		fmt.Fprintf(&sb, "Sentence number %d talks about solar energy. ", sb.Len())
	}
	return sb.String()[:n]
}

func TestUpload_IndexesChunks(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.asst.Upload(ctx, UploadRequest{Filename: "doc.txt", Data: []byte(paragraphDoc(2500)), SessionID: "s1"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", res.Chunks)
	}
	if got := f.chunksOf(t, res.DocumentID); got != 3 {
		t.Errorf("indexed chunks = %d, want 3", got)
	}

	docs, err := f.asst.ListDocuments(ctx, "s1")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != res.DocumentID || docs[0].Filename != "doc.txt" {
		t.Errorf("ListDocuments = %+v", docs)
	}
}

func TestUpload_UnsupportedRejectedBeforeWrite(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	for _, req := range []UploadRequest{
		{Filename: "slides.pptx", Data: []byte("x")},
		{Filename: "blank.txt", Data: []byte("   \n\n ")},
	} {
		_, err := f.asst.Upload(ctx, req)
		if !errors.Is(err, ErrUnsupportedInput) {
			t.Errorf("Upload(%s) error = %v, want ErrUnsupportedInput", req.Filename, err)
		}
	}
	docs := f.documents(t)
	if len(docs) != 0 {
		t.Errorf("%d documents stored after rejected uploads", len(docs))
	}
}

func TestUpload_IndexFailureRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	f.eng.embedFn = func(_ context.Context, _, text string) ([]float32, error) {
		if strings.Contains(text, "poison") {
			return nil, errors.New("quota exceeded")
		}
		return bagOfWords(text), nil
	}
	ctx := context.Background()

	_, err := f.asst.Upload(ctx, UploadRequest{Filename: "a.txt", Data: []byte(paragraphDoc(1500) + " poison")})
	if !errors.Is(err, ErrIndex) {
		t.Fatalf("error = %v, want ErrIndex", err)
	}

	docs := f.documents(t)
	if len(docs) != 0 {
		t.Errorf("orphaned documents left: %+v", docs)
	}
	if n, _ := f.index.Count(ctx); n != 0 {
		t.Errorf("%d chunks left after rollback", n)
	}
}

func TestChat_NewSessionAndGrounding(t *testing.T) {
	f := newFixture(t, Options{ChatModel: "default-model"})
	f.upload(t, "cats.txt", "Cats are small domesticated carnivorous mammals.")
	ctx := context.Background()

	res, err := f.asst.Chat(ctx, ChatRequest{Question: "What are cats?"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.SessionID == "" {
		t.Error("no session id generated")
	}
	if res.Model != "default-model" {
		t.Errorf("Model = %q, want default-model", res.Model)
	}

	msgs := f.eng.lastCall()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want system + user", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].Content, composer.ChatInstruction) {
		t.Error("system message does not start with the chat instruction")
	}
	if !strings.Contains(msgs[0].Content, "domesticated carnivorous") {
		t.Error("retrieved context missing from system message")
	}
	if msgs[1].Role != engine.RoleUser || msgs[1].Content != "What are cats?" {
		t.Errorf("user message = %+v", msgs[1])
	}

	turns := f.history(t, res.SessionID)
	if len(turns) != 1 || turns[0].Answer != "answer" || turns[0].Model != "default-model" {
		t.Errorf("history = %+v", turns)
	}
}

func TestChat_HistoryAndModelOverride(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first, err := f.asst.Chat(ctx, ChatRequest{SessionID: "s", Question: "first?"})
	if err != nil {
		t.Fatalf("Chat 1: %v", err)
	}
	if _, err := f.asst.Chat(ctx, ChatRequest{SessionID: first.SessionID, Question: "second?", Model: "other"}); err != nil {
		t.Fatalf("Chat 2: %v", err)
	}

	msgs := f.eng.lastCall()
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[1].Content != "first?" || msgs[2].Role != engine.RoleAssistant || msgs[3].Content != "second?" {
		t.Errorf("history not threaded: %+v", msgs)
	}

	turns := f.history(t, "s")
	if len(turns) != 2 || turns[1].Model != "other" {
		t.Errorf("history = %+v", turns)
	}
}

func TestChat_CondensesFollowUp(t *testing.T) {
	f := newFixture(t, Options{CondenseQuestions: true})
	f.upload(t, "wind.txt", "Wind turbines convert kinetic energy into electricity.")
	var retrievalQuery string
	f.eng.chatFn = func(_ context.Context, _ string, msgs []engine.Message) (string, error) {
		if msgs[0].Content == composer.CondenseInstruction {
			return "How do wind turbines work?", nil
		}
		return "They convert kinetic energy.", nil
	}
	f.eng.embedFn = func(_ context.Context, _, text string) ([]float32, error) {
		retrievalQuery = text
		return bagOfWords(text), nil
	}
	ctx := context.Background()

	if _, err := f.asst.Chat(ctx, ChatRequest{SessionID: "s", Question: "Tell me about wind turbines"}); err != nil {
		t.Fatalf("Chat 1: %v", err)
	}
	res, err := f.asst.Chat(ctx, ChatRequest{SessionID: "s", Question: "How do they work?"})
	if err != nil {
		t.Fatalf("Chat 2: %v", err)
	}
	if retrievalQuery != "How do wind turbines work?" {
		t.Errorf("retrieval query = %q, want condensed question", retrievalQuery)
	}
	if res.Answer != "They convert kinetic energy." {
		t.Errorf("Answer = %q", res.Answer)
	}

	turns := f.history(t, "s")
	if turns[1].Question != "How do they work?" {
		t.Errorf("stored question = %q, want the original wording", turns[1].Question)
	}
}

func TestChat_ModelFailureRecordsNothing(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return "", errors.New("401 unauthorized")
	}
	_, err := f.asst.Chat(ctx, ChatRequest{SessionID: "s", Question: "q?"})
	if !errors.Is(err, ErrModel) {
		t.Fatalf("error = %v, want ErrModel", err)
	}
	if Retryable(err) {
		t.Error("auth failure marked retryable")
	}

	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return "  \n", nil
	}
	if _, err := f.asst.Chat(ctx, ChatRequest{SessionID: "s", Question: "q?"}); !errors.Is(err, ErrModel) {
		t.Errorf("empty output error = %v, want ErrModel", err)
	}

	if turns := f.history(t, "s"); len(turns) != 0 {
		t.Errorf("history has %d turns after failures", len(turns))
	}
}

func TestChat_TimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, Options{ModelTimeout: 20 * time.Millisecond})
	f.eng.chatFn = func(ctx context.Context, _ string, _ []engine.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := f.asst.Chat(context.Background(), ChatRequest{SessionID: "s", Question: "slow?"})
	if !errors.Is(err, ErrModel) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want ErrModel wrapping DeadlineExceeded", err)
	}
	if !Retryable(err) {
		t.Error("timeout not marked retryable")
	}
	if turns := f.history(t, "s"); len(turns) != 0 {
		t.Errorf("partial turn persisted: %+v", turns)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.asst.Chat(context.Background(), ChatRequest{Question: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestChat_ConcurrentSameSessionSerialized(t *testing.T) {
	f := newFixture(t, Options{})
	var inFlight, peak int
	var mu sync.Mutex
	f.eng.chatFn = func(_ context.Context, _ string, msgs []engine.Message) (string, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "re: " + msgs[len(msgs)-1].Content, nil
	}

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.asst.Chat(context.Background(), ChatRequest{SessionID: "shared", Question: fmt.Sprintf("q%d", i)}); err != nil {
				t.Errorf("Chat: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("peak concurrent model calls in one session = %d, want 1", peak)
	}
	turns := f.history(t, "shared")
	if len(turns) != n {
		t.Fatalf("history has %d turns, want %d", len(turns), n)
	}
	for i, turn := range turns {
		if turn.Answer != "re: "+turn.Question {
			t.Errorf("turn %d interleaved: %+v", i, turn)
		}
		if i > 0 && turn.CreatedAt.Before(turns[i-1].CreatedAt) {
			t.Errorf("turn %d out of order", i)
		}
	}
}

func TestSummarize_TruncatesToWordLimit(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.upload(t, "long.txt", paragraphDoc(800))
	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return strings.Repeat("word ", 200), nil
	}

	res, err := f.asst.Summarize(context.Background(), id)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got := len(strings.Fields(res.Summary)); got != composer.SummaryWordLimit {
		t.Errorf("summary has %d words, want %d", got, composer.SummaryWordLimit)
	}

	msgs := f.eng.lastCall()
	if msgs[0].Content != composer.SummarizeInstruction {
		t.Error("summarize instruction not used")
	}
	if !strings.HasPrefix(msgs[1].Content, "Document: Sentence number") {
		t.Error("full document content not sent")
	}
}

func TestSummarize_NotFound(t *testing.T) {
	f := newFixture(t, Options{})
	if _, err := f.asst.Summarize(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGenerateQuestions(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.upload(t, "doc.txt", "Photosynthesis turns light into chemical energy.")
	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return "Here are some questions:\n\n1. Why does photosynthesis need light?\n2) What is produced?\n- How is energy stored?\n4. What happens at night?", nil
	}

	res, err := f.asst.GenerateQuestions(context.Background(), id)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	want := []string{"Why does photosynthesis need light?", "What is produced?", "How is energy stored?"}
	if len(res.Questions) != len(want) {
		t.Fatalf("Questions = %q, want %q", res.Questions, want)
	}
	for i := range want {
		if res.Questions[i] != want[i] {
			t.Errorf("Questions[%d] = %q, want %q", i, res.Questions[i], want[i])
		}
	}
}

func TestGenerateQuestions_NoUsableLines(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.upload(t, "doc.txt", "Some content here.")
	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return "1.\n-\n", nil
	}
	if _, err := f.asst.GenerateQuestions(context.Background(), id); !errors.Is(err, ErrModel) {
		t.Errorf("error = %v, want ErrModel", err)
	}
}

func TestEvaluate_ScopedToDocument(t *testing.T) {
	f := newFixture(t, Options{})
	target := f.upload(t, "target.txt", "The capital of France is Paris.")
	f.upload(t, "other.txt", "The capital of France is Lyon according to this wrong text.")
	f.eng.chatFn = func(context.Context, string, []engine.Message) (string, error) {
		return "Correct.", nil
	}

	res, err := f.asst.Evaluate(context.Background(), EvaluateRequest{DocumentID: target, Question: "What is the capital of France?", Answer: "Paris"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Feedback != "Correct." || res.DocumentID != target {
		t.Errorf("result = %+v", res)
	}

	msgs := f.eng.lastCall()
	if strings.Contains(msgs[0].Content, "Lyon") {
		t.Error("context leaked from another document")
	}
	if !strings.Contains(msgs[0].Content, "Paris") {
		t.Error("target document context missing")
	}
	if msgs[1].Content != "Question: What is the capital of France?\nUser Answer: Paris\nEvaluation:" {
		t.Errorf("user message = %q", msgs[1].Content)
	}
}

func TestEvaluate_MissingDocument(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.asst.Evaluate(context.Background(), EvaluateRequest{DocumentID: 9, Question: "q?", Answer: "a"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument_RemovesEverything(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.upload(t, "a.txt", paragraphDoc(1800))
	keep := f.upload(t, "b.txt", "Another document about solar energy.")

	res, err := f.asst.DeleteDocument(ctx, id)
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if res.Chunks == 0 {
		t.Error("no chunks reported deleted")
	}

	docs := f.documents(t)
	for _, d := range docs {
		if d.ID == id {
			t.Error("deleted document still listed")
		}
	}
	hits, err := f.index.Search(ctx, "solar energy sentence", 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.DocumentID == id {
			t.Fatal("search returned a chunk of the deleted document")
		}
	}
	if f.chunksOf(t, keep) == 0 {
		t.Error("other document lost its chunks")
	}

	if _, err := f.asst.DeleteDocument(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

// failingIndexer fails every delete.
type failingIndexer struct {
	Indexer
}

func (failingIndexer) DeleteByDocument(context.Context, int64) (int, error) {
	return 0, errors.New("index offline")
}

func TestDeleteDocument_IndexFailureKeepsRecord(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.upload(t, "a.txt", "content to keep")

	f.asst.index = failingIndexer{Indexer: f.index}
	_, err := f.asst.DeleteDocument(ctx, id)
	if !errors.Is(err, ErrIndex) {
		t.Fatalf("error = %v, want ErrIndex", err)
	}
	if ok, _ := f.store.DocumentExists(ctx, id); !ok {
		t.Error("record removed although index delete failed")
	}
}

// failingDeleteStore fails DeleteDocument.
type failingDeleteStore struct {
	*storage.Store
}

func (failingDeleteStore) DeleteDocument(context.Context, int64) (bool, error) {
	return false, errors.New("database is locked")
}

func TestDeleteDocument_StoreFailureIsConsistencyError(t *testing.T) {
	f := newFixtureWithStore(t, Options{}, func(s *storage.Store) Store { return failingDeleteStore{s} })
	ctx := context.Background()
	id := f.upload(t, "a.txt", "content")

	_, err := f.asst.DeleteDocument(ctx, id)
	if !errors.Is(err, ErrConsistency) {
		t.Fatalf("error = %v, want ErrConsistency", err)
	}
	if f.chunksOf(t, id) != 0 {
		t.Error("chunks remain although index delete ran first")
	}

	job, err := f.store.ClaimNextJob(ctx, []string{reconcile.JobPurgeDocument})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if job == nil {
		t.Fatal("no purge job queued")
	}
	if !strings.Contains(job.PayloadJSON, fmt.Sprintf(`"document_id":%d`, id)) {
		t.Errorf("payload = %s", job.PayloadJSON)
	}
}

func TestReindex(t *testing.T) {
	f := newFixture(t, Options{ChunkSize: 200, ChunkOverlap: 20})
	ctx := context.Background()
	id := f.upload(t, "a.txt", paragraphDoc(900))
	before := f.chunksOf(t, id)

	res, err := f.asst.Reindex(ctx, id)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if res.Chunks != before {
		t.Errorf("Reindex chunks = %d, want %d", res.Chunks, before)
	}
	if got := f.chunksOf(t, id); got != before {
		t.Errorf("indexed chunks = %d after reindex, want %d", got, before)
	}

	if _, err := f.asst.Reindex(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document error = %v, want ErrNotFound", err)
	}
}

func TestNew_InvalidChunking(t *testing.T) {
	_, err := New(nil, nil, nil, &mockEngine{}, Options{ChunkSize: 100, ChunkOverlap: 100})
	if !errors.Is(err, chunker.ErrInvalidParams) {
		t.Errorf("error = %v, want chunker.ErrInvalidParams", err)
	}
}

func TestLockWaitAbortedIsClassified(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.upload(t, "a.txt", "content")

	unlock, err := f.asst.LockDocument(context.Background(), id)
	if err != nil {
		t.Fatalf("LockDocument: %v", err)
	}
	defer unlock()
	sessionUnlock, err := f.asst.sessions.Lock(context.Background(), "busy")
	if err != nil {
		t.Fatalf("sessions.Lock: %v", err)
	}
	defer sessionUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = f.asst.Reindex(ctx, id)
	if !errors.Is(err, ErrIndex) || !Retryable(err) {
		t.Errorf("Reindex error = %v, want retryable ErrIndex", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Reindex error = %v, want cause context.DeadlineExceeded", err)
	}

	_, err = f.asst.DeleteDocument(ctx, id)
	if !errors.Is(err, ErrIndex) || !Retryable(err) {
		t.Errorf("DeleteDocument error = %v, want retryable ErrIndex", err)
	}

	_, err = f.asst.Chat(ctx, ChatRequest{SessionID: "busy", Question: "hello?"})
	if !errors.Is(err, ErrModel) || !Retryable(err) {
		t.Errorf("Chat error = %v, want retryable ErrModel", err)
	}
}

func TestReindex_EmbedFailureReturnsIndexError(t *testing.T) {
	f := newFixture(t, Options{})
	id := f.upload(t, "a.txt", "some content about solar energy")

	f.eng.embedFn = func(context.Context, string, string) ([]float32, error) {
		return nil, errors.New("embedding backend down")
	}
	if _, err := f.asst.Reindex(context.Background(), id); !errors.Is(err, ErrIndex) {
		t.Fatalf("Reindex error = %v, want ErrIndex", err)
	}
	f.eng.embedFn = nil
	if f.chunksOf(t, id) != 0 {
		t.Error("old chunks survived a failed reindex")
	}

	res, err := f.asst.Reindex(context.Background(), id)
	if err != nil {
		t.Fatalf("retry Reindex: %v", err)
	}
	if res.Chunks == 0 || f.chunksOf(t, id) != res.Chunks {
		t.Errorf("retry indexed %d chunks, index holds %d", res.Chunks, f.chunksOf(t, id))
	}
}
