package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
)

// WindowSize is the number of recent messages loaded into the prompt.
const WindowSize = 10

// Window assembles token-budgeted prompts from conversation history.
type Window struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// NewWindow creates a conversation window with the specified token budget.
// model selects the tokenizer (e.g. "gpt-4o"); maxTokens is the model's
// context size and reserve is held back for the response.
func NewWindow(model string, maxTokens, reserve int) (*Window, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Window{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

func (w *Window) countTokens(text string) int {
	return len(w.tokenizer.Encode(text, nil, nil))
}

// Build assembles the prompt: system message first, then as much recent
// history as the token budget allows. History is given oldest-first; when
// the budget is tight the oldest messages are dropped first.
func (w *Window) Build(system string, history []*types.Message) []llm.Message {
	budget := w.maxTokens - w.reserve - w.countTokens(system)

	// Walk newest-first so trimming drops the oldest messages.
	kept := make([]llm.Message, 0, len(history))
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msg := llm.Message{Role: history[i].Role, Content: history[i].Content}
		tokens := w.countTokens(msg.Content)
		if used+tokens > budget && len(kept) > 0 {
			break
		}
		kept = append(kept, msg)
		used += tokens
	}

	messages := make([]llm.Message, 0, 1+len(kept))
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for i := len(kept) - 1; i >= 0; i-- {
		messages = append(messages, kept[i])
	}
	return messages
}
