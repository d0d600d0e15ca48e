//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/user/finclaw/internal/agent"
	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/store/memory"
	"github.com/user/finclaw/internal/tools"
	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
)

const owner = types.OwnerID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// mockProvider replays a scripted sequence of responses, then echoes a
// canned answer for any further calls.
type mockProvider struct {
	responses []*llm.Response
	calls     int
}

func (m *mockProvider) Complete(_ context.Context, _ []llm.Message, _ []llm.Tool) (*llm.Response, error) {
	if m.calls < len(m.responses) {
		resp := m.responses[m.calls]
		m.calls++
		return resp, nil
	}
	m.calls++
	return &llm.Response{Content: "done"}, nil
}

type stubRetriever struct{}

func (stubRetriever) SearchEmails(_ context.Context, _ types.OwnerID, _ string, _ int) ([]types.EmailRecord, error) {
	return []types.EmailRecord{{
		FromName:  "Sue Smith",
		FromEmail: "sue@example.com",
		Subject:   "Tax documents",
		BodyText:  "Attached are the forms.",
		Date:      time.Now(),
	}}, nil
}

func (stubRetriever) SearchContacts(_ context.Context, _ types.OwnerID, _ string, _ int) ([]types.ContactRecord, error) {
	return nil, nil
}

func (stubRetriever) SearchEvents(_ context.Context, _ types.OwnerID, _ string, _ int, _ types.TimeRange) ([]types.EventRecord, error) {
	return nil, nil
}

func newAgent(t *testing.T, st *memory.Store, provider llm.Provider) *agent.Agent {
	t.Helper()
	window, err := agent.NewWindow("gpt-4", 128000, 4096)
	if err != nil {
		t.Fatal(err)
	}
	registryFor := func(o types.OwnerID) *tools.Registry {
		return tools.NewRegistry(tools.Capabilities{Owner: o, Retriever: stubRetriever{}})
	}
	advisorFor := func(types.OwnerID) string { return "Pat Doyle" }
	retry := &gateway.RetryPolicy{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return agent.New(provider, st, window, registryFor, advisorFor, retry, "gpt-4", 0)
}

// TestEndToEnd drives a full turn through the gateway: submit, agent loop
// with one tool call, persisted reply delivered via OnComplete.
func TestEndToEnd(t *testing.T) {
	st := memory.New()
	provider := &mockProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "search_emails",
				Arguments: json.RawMessage(`{"query":"tax documents"}`),
			},
		}}},
		{Content: "Sue Smith sent you the tax documents."},
	}}
	ag := newAgent(t, st, provider)

	gw := gateway.New(2)
	gw.Queue.SetProcessor(func(turn *gateway.Turn) error {
		reply, err := ag.Chat(turn.Ctx, agent.ChatRequest{
			Owner:  turn.Owner,
			Thread: turn.Thread,
			Text:   turn.Text,
		})
		if err != nil {
			return err
		}
		if turn.OnComplete != nil {
			turn.OnComplete(reply)
		}
		return nil
	})

	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	done := make(chan *types.Message, 1)
	_, err := gw.Submit(owner, "", "who sent my tax documents?", "test",
		gateway.WithOnComplete(func(m *types.Message) { done <- m }),
	)
	if err != nil {
		t.Fatal(err)
	}

	var reply *types.Message
	select {
	case reply = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	if reply.Content != "Sue Smith sent you the tax documents." {
		t.Errorf("unexpected reply %q", reply.Content)
	}
	if len(reply.Metadata.ToolCalls) != 1 || reply.Metadata.ToolCalls[0].Tool != "search_emails" {
		t.Errorf("expected one search_emails tool call, got %v", reply.Metadata.ToolCalls)
	}

	threads, err := st.ListThreads(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if threads[0].Title != "who sent my tax documents?" {
		t.Errorf("unexpected thread title %q", threads[0].Title)
	}

	msgs, err := st.ListMessages(ctx, owner, threads[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(msgs))
	}
	if msgs[0].Role != types.RoleUser || msgs[1].Role != types.RoleAssistant {
		t.Errorf("unexpected roles %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

// TestEndToEndOrdering submits several turns for one owner and verifies
// the conversation interleaves strictly in submission order.
func TestEndToEndOrdering(t *testing.T) {
	st := memory.New()
	ag := newAgent(t, st, &mockProvider{})

	gw := gateway.New(2)
	gw.Queue.SetProcessor(func(turn *gateway.Turn) error {
		_, err := ag.Chat(turn.Ctx, agent.ChatRequest{
			Owner:  turn.Owner,
			Thread: turn.Thread,
			Text:   turn.Text,
		})
		return err
	})

	ctx := context.Background()
	gw.Start(ctx)
	defer gw.Stop()

	for i := 0; i < 3; i++ {
		if _, err := gw.Submit(owner, "", fmt.Sprintf("message %d", i), "test"); err != nil {
			t.Fatal(err)
		}
	}

	if !gw.Queue.WaitIdle(5 * time.Second) {
		t.Fatal("queue did not drain")
	}
	time.Sleep(50 * time.Millisecond)

	threads, err := st.ListThreads(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected all turns in 1 thread, got %d", len(threads))
	}

	msgs, err := st.ListMessages(ctx, owner, threads[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	for i := 0; i < 3; i++ {
		if got := msgs[i*2].Content; got != fmt.Sprintf("message %d", i) {
			t.Errorf("expected user message %d in order, got %q", i, got)
		}
	}
}
