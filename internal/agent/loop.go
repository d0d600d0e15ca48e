package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/tools"
	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
)

// DefaultMaxIterations bounds the model/tool round trips in one turn.
const DefaultMaxIterations = 5

// errorReply is persisted when a turn cannot produce a real answer.
const errorReply = "Sorry, I ran into a problem handling that. Please try again."

// RegistryFunc builds the tool catalog bound to one owner's connections.
type RegistryFunc func(owner types.OwnerID) *tools.Registry

// AdvisorFunc resolves an owner's display name for the system prompt.
type AdvisorFunc func(owner types.OwnerID) string

// Agent runs the tool-calling turn loop.
type Agent struct {
	provider      llm.Provider
	store         types.ConversationStore
	window        *Window
	registryFor   RegistryFunc
	advisorFor    AdvisorFunc
	retry         *gateway.RetryPolicy
	model         string
	maxIterations int
	now           func() time.Time
}

// New creates an Agent with the given dependencies. maxIterations <= 0
// selects DefaultMaxIterations.
func New(
	provider llm.Provider,
	store types.ConversationStore,
	window *Window,
	registryFor RegistryFunc,
	advisorFor AdvisorFunc,
	retry *gateway.RetryPolicy,
	model string,
	maxIterations int,
) *Agent {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	return &Agent{
		provider:      provider,
		store:         store,
		window:        window,
		registryFor:   registryFor,
		advisorFor:    advisorFor,
		retry:         retry,
		model:         model,
		maxIterations: maxIterations,
		now:           time.Now,
	}
}

// ChatRequest is one incoming user turn. An empty Thread targets the
// owner's most recent thread, creating one if needed.
type ChatRequest struct {
	Owner  types.OwnerID
	Thread types.ThreadID
	Text   string
}

// Chat executes one full turn: persist the user message, run the
// model/tool loop, and persist exactly one assistant message. Provider
// failures are absorbed into an error-flagged assistant message so the
// one-reply-per-turn contract holds either way.
func (a *Agent) Chat(ctx context.Context, req ChatRequest) (*types.Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("empty message")
	}

	var thread *types.Thread
	var err error
	if req.Thread == "" {
		thread, err = a.store.ResolveThread(ctx, req.Owner)
	} else {
		thread, err = a.store.GetThread(ctx, req.Owner, req.Thread)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	userMsg := &types.Message{
		ID:        types.NewMessageID(),
		OwnerID:   req.Owner,
		ThreadID:  thread.ID,
		Role:      types.RoleUser,
		Content:   req.Text,
		Metadata:  types.MessageMetadata{Context: thread.Context},
		CreatedAt: a.now(),
	}
	if err := a.store.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	if thread.Title == "" || thread.Title == types.DefaultThreadTitle {
		if err := a.store.SetThreadTitle(ctx, req.Owner, thread.ID, deriveTitle(req.Text)); err != nil {
			slog.Warn("set thread title", "thread", thread.ID, "error", err)
		}
	}

	history, err := a.store.RecentMessages(ctx, req.Owner, thread.ID, WindowSize)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	// The context filter is applied to the outgoing copy of the current
	// message only; the stored message keeps the user's wording.
	if instr := contextInstruction(thread.Context); instr != "" && len(history) > 0 {
		last := history[len(history)-1]
		if last.ID == userMsg.ID {
			amended := *last
			amended.Content = instr + " " + last.Content
			history[len(history)-1] = &amended
		}
	}

	registry := a.registryFor(req.Owner)
	llmTools := registry.AsLLMTools()
	messages := a.window.Build(systemPrompt(a.advisorFor(req.Owner), a.now()), history)

	var executed []types.ToolCall
	var content string

	for iter := 0; iter < a.maxIterations; iter++ {
		resp, err := a.complete(ctx, messages, llmTools)
		if err != nil {
			return a.persistError(ctx, req.Owner, thread, err)
		}

		if len(resp.ToolCalls) == 0 {
			content = resp.Content
			break
		}

		messages = append(messages, llm.Message{
			Role:    "assistant",
			Content: resp.Content,
			Tools:   resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			res := registry.Execute(ctx, tc.Function.Name, tc.Function.Arguments)

			var args map[string]any
			json.Unmarshal(tc.Function.Arguments, &args)
			executed = append(executed, types.ToolCall{
				Tool:   tc.Function.Name,
				Args:   args,
				Result: res,
			})

			payload, _ := json.Marshal(res)
			messages = append(messages, llm.Message{
				Role:    "tool",
				Content: string(payload),
				Tools:   []llm.ToolCall{{ID: tc.ID}},
			})
		}
	}

	// The loop either ran out of iterations with tool calls still pending
	// or the model returned an empty answer. One last call with tool
	// calling disabled forces a synthesis from what was gathered.
	if content == "" && len(executed) > 0 {
		resp, err := a.complete(ctx, messages, nil)
		if err != nil {
			slog.Warn("final synthesis call failed", "thread", thread.ID, "error", err)
		} else {
			content = resp.Content
		}
	}
	if content == "" {
		content = synthesizeFallback(executed)
	}

	reply := &types.Message{
		ID:       types.NewMessageID(),
		OwnerID:  req.Owner,
		ThreadID: thread.ID,
		Role:     types.RoleAssistant,
		Content:  content,
		Metadata: types.MessageMetadata{
			ToolCalls: executed,
			Model:     a.model,
			Context:   thread.Context,
		},
		CreatedAt: a.now(),
	}
	if err := a.store.CreateMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	if err := a.store.TouchThread(ctx, req.Owner, thread.ID, reply.CreatedAt); err != nil {
		slog.Warn("touch thread", "thread", thread.ID, "error", err)
	}
	return reply, nil
}

// complete calls the provider with the configured retry policy. Tools are
// never re-executed on retry; only the model call repeats.
func (a *Agent) complete(ctx context.Context, messages []llm.Message, llmTools []llm.Tool) (*llm.Response, error) {
	var resp *llm.Response
	err := a.retry.Execute(func() error {
		var err error
		resp, err = a.provider.Complete(ctx, messages, llmTools)
		return err
	})
	return resp, err
}

// persistError records a failed turn as an error-flagged assistant message
// so the conversation still shows a reply.
func (a *Agent) persistError(ctx context.Context, owner types.OwnerID, thread *types.Thread, cause error) (*types.Message, error) {
	slog.Error("turn failed", "owner", owner, "thread", thread.ID, "error", cause)

	msg := &types.Message{
		ID:       types.NewMessageID(),
		OwnerID:  owner,
		ThreadID: thread.ID,
		Role:     types.RoleAssistant,
		Content:  errorReply,
		Metadata: types.MessageMetadata{
			Model:   a.model,
			Context: thread.Context,
			Error:   true,
		},
		CreatedAt: a.now(),
	}
	if err := a.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist error message: %w", err)
	}
	if err := a.store.TouchThread(ctx, owner, thread.ID, msg.CreatedAt); err != nil {
		slog.Warn("touch thread", "thread", thread.ID, "error", err)
	}
	return msg, nil
}
