// Package composer assembles the message sequence sent to the chat model
// from a task instruction, retrieved context, prior turns and the new
// user message.
package composer

import (
	"strings"

	"github.com/kalambet/docqa/internal/engine"
)

// DefaultMaxContextTokens is the token budget for the system message when
// none is configured.
const DefaultMaxContextTokens = 4000

const (
	contextHeader    = "\n\nContext:\n"
	contextSeparator = "\n\n"
)

// Turn is one earlier question/answer exchange.
type Turn struct {
	Question string
	Answer   string
}

// Conversation is an immutable message builder. Every With method returns a
// modified copy and leaves the receiver untouched, so a base conversation
// can be shared between requests.
type Conversation struct {
	instruction string
	maxTokens   int
	chunks      []string
	hasContext  bool
	history     []Turn
	user        string
	hasUser     bool
}

// New starts a conversation with the given system instruction and the
// default context budget.
func New(instruction string) Conversation {
	return Conversation{instruction: instruction, maxTokens: DefaultMaxContextTokens}
}

// WithBudget sets the token budget for the system message. Values <= 0
// select DefaultMaxContextTokens.
func (c Conversation) WithBudget(maxTokens int) Conversation {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	c.maxTokens = maxTokens
	return c
}

// WithContext sets the retrieved chunks, highest ranked first. The system
// message carries a Context section once this is called, even when chunks
// is empty.
func (c Conversation) WithContext(chunks []string) Conversation {
	c.chunks = append([]string(nil), chunks...)
	c.hasContext = true
	return c
}

// WithHistory sets the prior turns, oldest first.
func (c Conversation) WithHistory(turns []Turn) Conversation {
	c.history = append([]Turn(nil), turns...)
	return c
}

// WithUserMessage sets the final user message.
func (c Conversation) WithUserMessage(text string) Conversation {
	c.user = text
	c.hasUser = true
	return c
}

// Messages renders the conversation: the system message, then each history
// turn as a user/assistant pair, then the new user message.
func (c Conversation) Messages() []engine.Message {
	msgs := make([]engine.Message, 0, 2+2*len(c.history))
	msgs = append(msgs, engine.Message{Role: engine.RoleSystem, Content: c.systemContent()})
	for _, t := range c.history {
		msgs = append(msgs,
			engine.Message{Role: engine.RoleUser, Content: t.Question},
			engine.Message{Role: engine.RoleAssistant, Content: t.Answer},
		)
	}
	if c.hasUser {
		msgs = append(msgs, engine.Message{Role: engine.RoleUser, Content: c.user})
	}
	return msgs
}

// ContextChunks returns the chunks that fit the budget, in rank order.
func (c Conversation) ContextChunks() []string {
	return c.fitChunks()
}

func (c Conversation) systemContent() string {
	if !c.hasContext {
		return c.instruction
	}
	return c.instruction + contextHeader + strings.Join(c.fitChunks(), contextSeparator)
}

// fitChunks keeps the highest-ranked chunks while the system message stays
// within the budget. The first chunk that does not fit and every chunk
// ranked below it are dropped.
func (c Conversation) fitChunks() []string {
	remaining := c.maxTokens - EstimateTokens(c.instruction) - EstimateTokens(contextHeader)
	var selected []string
	for i, ch := range c.chunks {
		cost := EstimateTokens(ch)
		if i > 0 {
			cost += EstimateTokens(contextSeparator)
		}
		if cost > remaining {
			break
		}
		selected = append(selected, ch)
		remaining -= cost
	}
	return selected
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
