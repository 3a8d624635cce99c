package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/docqa/internal/composer"
	"github.com/kalambet/docqa/internal/metrics"
	"github.com/kalambet/docqa/internal/storage"
)

// ChatRequest is a question within a session. An empty SessionID starts a
// new session; an empty Model selects the configured chat model.
type ChatRequest struct {
	SessionID string
	Question  string
	Model     string
}

// ChatResult is a grounded answer.
type ChatResult struct {
	SessionID string
	Answer    string
	Model     string
}

// SummaryResult is a document summary of at most composer.SummaryWordLimit words.
type SummaryResult struct {
	DocumentID int64
	Summary    string
}

// QuestionsResult holds up to three comprehension questions.
type QuestionsResult struct {
	DocumentID int64
	Questions  []string
}

// EvaluateRequest is a user's answer to a question about a document.
type EvaluateRequest struct {
	DocumentID int64
	Question   string
	Answer     string
}

// EvaluationResult is the model's feedback on an answer.
type EvaluationResult struct {
	DocumentID int64
	Feedback   string
}

// Chat answers a question from retrieved context and the session history,
// then appends the turn. Turns of one session are processed one at a time
// in arrival order. Nothing is recorded when any step fails.
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (res ChatResult, err error) {
	const op = "chat"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return ChatResult{}, invalid(op, "question is required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	model := req.Model
	if model == "" {
		model = a.opts.ChatModel
	}

	unlock, err := a.sessions.Lock(ctx, sessionID)
	if err != nil {
		return ChatResult{}, lockError(ErrModel, op, err)
	}
	defer unlock()

	turns, err := a.store.GetHistory(ctx, sessionID)
	if err != nil {
		return ChatResult{}, storeError(op, err)
	}
	history := toTurns(turns)

	query := question
	if a.opts.CondenseQuestions && len(history) > 0 {
		query = a.condense(ctx, model, history, question)
	}

	chunks, err := a.retrieve(ctx, query, 0)
	if err != nil {
		return ChatResult{}, newError(ErrIndex, op, err)
	}

	msgs := composer.New(composer.ChatInstruction).
		WithBudget(a.opts.MaxContextTokens).
		WithContext(chunks).
		WithHistory(history).
		WithUserMessage(question).
		Messages()

	answer, err := a.complete(ctx, op, model, msgs)
	if err != nil {
		return ChatResult{}, err
	}
	answer = strings.TrimSpace(answer)

	if _, err := a.store.AppendTurn(ctx, sessionID, question, answer, model); err != nil {
		return ChatResult{}, storeError(op, err)
	}

	a.logger.Debug("chat answered", "session_id", sessionID, "model", model, "chunks", len(chunks))
	return ChatResult{SessionID: sessionID, Answer: answer, Model: model}, nil
}

// condense rewrites a follow-up question into a standalone one. Failures
// fall back to the original question.
func (a *Assistant) condense(ctx context.Context, model string, history []composer.Turn, question string) string {
	msgs := composer.New(composer.CondenseInstruction).
		WithHistory(history).
		WithUserMessage(question).
		Messages()
	out, err := a.complete(ctx, "condense question", model, msgs)
	if err != nil {
		a.logger.Warn("condensing follow-up question", "error", err)
		return question
	}
	return strings.TrimSpace(out)
}

// retrieve runs a retrieval under the model timeout; documentID 0 searches
// every document.
func (a *Assistant) retrieve(ctx context.Context, query string, documentID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.ModelTimeout)
	defer cancel()
	if documentID == 0 {
		return a.retriever.Retrieve(ctx, query, a.opts.TopK)
	}
	return a.retriever.RetrieveFromDocument(ctx, documentID, query, a.opts.TopK)
}

// Summarize summarizes a whole document. Output longer than the word limit
// is cut at a word boundary.
func (a *Assistant) Summarize(ctx context.Context, documentID int64) (res SummaryResult, err error) {
	const op = "summarize"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	content, err := a.store.GetDocumentContent(ctx, documentID)
	if err != nil {
		return SummaryResult{}, storeError(op, err)
	}

	msgs := composer.New(composer.SummarizeInstruction).
		WithUserMessage(composer.DocumentMessage(content, "Summary:")).
		Messages()
	out, err := a.complete(ctx, op, a.opts.ChatModel, msgs)
	if err != nil {
		return SummaryResult{}, err
	}
	return SummaryResult{DocumentID: documentID, Summary: truncateWords(out, composer.SummaryWordLimit)}, nil
}

// GenerateQuestions asks for three comprehension questions about a whole
// document and returns at most three of them.
func (a *Assistant) GenerateQuestions(ctx context.Context, documentID int64) (res QuestionsResult, err error) {
	const op = "generate questions"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	content, err := a.store.GetDocumentContent(ctx, documentID)
	if err != nil {
		return QuestionsResult{}, storeError(op, err)
	}

	msgs := composer.New(composer.QuestionsInstruction).
		WithUserMessage(composer.DocumentMessage(content, "Questions:")).
		Messages()
	out, err := a.complete(ctx, op, a.opts.ChatModel, msgs)
	if err != nil {
		return QuestionsResult{}, err
	}

	questions := parseQuestions(out, maxQuestions)
	if len(questions) == 0 {
		return QuestionsResult{}, &Error{Kind: ErrModel, Op: op, Err: errEmptyOutput}
	}
	return QuestionsResult{DocumentID: documentID, Questions: questions}, nil
}

// Evaluate judges a user's answer against chunks retrieved from the same
// document, using the question as the query.
func (a *Assistant) Evaluate(ctx context.Context, req EvaluateRequest) (res EvaluationResult, err error) {
	const op = "evaluate"
	defer func(start time.Time) { metrics.ObserveTask(op, start, err) }(time.Now())

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return EvaluationResult{}, invalid(op, "question is required")
	}

	exists, err := a.store.DocumentExists(ctx, req.DocumentID)
	if err != nil {
		return EvaluationResult{}, storeError(op, err)
	}
	if !exists {
		return EvaluationResult{}, notFound(op, "document %d", req.DocumentID)
	}

	chunks, err := a.retrieve(ctx, question, req.DocumentID)
	if err != nil {
		return EvaluationResult{}, newError(ErrIndex, op, err)
	}

	msgs := composer.New(composer.EvaluateInstruction).
		WithBudget(a.opts.MaxContextTokens).
		WithContext(chunks).
		WithUserMessage(composer.EvaluationMessage(question, strings.TrimSpace(req.Answer))).
		Messages()
	out, err := a.complete(ctx, op, a.opts.ChatModel, msgs)
	if err != nil {
		return EvaluationResult{}, err
	}
	return EvaluationResult{DocumentID: req.DocumentID, Feedback: strings.TrimSpace(out)}, nil
}

// History returns a session's turns, oldest first.
func (a *Assistant) History(ctx context.Context, sessionID string) ([]storage.ConversationTurn, error) {
	if sessionID == "" {
		return nil, invalid("history", "session id is required")
	}
	turns, err := a.store.GetHistory(ctx, sessionID)
	if err != nil {
		return nil, storeError("history", err)
	}
	return turns, nil
}

func toTurns(turns []storage.ConversationTurn) []composer.Turn {
	out := make([]composer.Turn, len(turns))
	for i, t := range turns {
		out[i] = composer.Turn{Question: t.Question, Answer: t.Answer}
	}
	return out
}

// Healthy reports whether the model backend answers.
func (a *Assistant) Healthy(ctx context.Context) bool {
	return a.engine.IsRunning(ctx)
}

// EngineName names the model backend.
func (a *Assistant) EngineName() string {
	return a.engine.Name()
}

