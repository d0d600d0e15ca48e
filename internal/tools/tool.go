package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/llm"
)

// Tool defines the interface for an executable tool.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// Capabilities holds the per-owner collaborators the tool catalog is built
// from. A nil field means the corresponding integration is not connected
// for this owner; the tool stays in the catalog and reports the missing
// connection as a precondition error instead.
type Capabilities struct {
	Owner     types.OwnerID
	Retriever types.Retriever
	Mail      types.MailSender
	CRM       types.CRMClient
	Calendar  types.CalendarClient
}

// Registry holds the fixed tool catalog for one owner and provides
// lookup and dispatch. The declared catalog is identical for every owner;
// only the bound capabilities differ.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds the full catalog against the given capabilities.
func NewRegistry(caps Capabilities) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(NewSearchEmails(caps.Owner, caps.Retriever))
	r.Register(NewSearchContacts(caps.Owner, caps.Retriever))
	r.Register(NewGetAllContacts(caps.CRM))
	r.Register(NewSendEmail(caps.Mail))
	r.Register(NewCreateContact(caps.CRM))
	r.Register(NewAddContactNote(caps.CRM))
	r.Register(NewSearchCalendarEvents(caps.Owner, caps.Retriever))
	r.Register(NewCreateCalendarEvent(caps.Calendar))
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns all registered tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// AsLLMTools converts registered tools to the LLM provider format.
func (r *Registry) AsLLMTools() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.order))
	for _, t := range r.All() {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return out
}

// Execute dispatches a tool call by name and normalizes every outcome into
// a Result map. It never returns an error to the caller: failures from the
// underlying tool become {"error": message} results, and an unrecognized
// name becomes {"error": "Unknown tool"}.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) Result {
	t, ok := r.tools[name]
	if !ok {
		slog.Warn("unknown tool requested", "tool", name)
		return Result{"error": "Unknown tool"}
	}

	slog.Info("executing tool", "tool", name)
	res, err := t.Execute(ctx, args)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			if te.Kind == KindPrecondition {
				slog.Info("tool precondition failed", "tool", name, "error", te.Msg)
			} else {
				slog.Error("tool failed", "tool", name, "kind", string(te.Kind), "error", te.Msg)
			}
			return te.Result()
		}
		slog.Error("tool failed", "tool", name, "error", err)
		return Result{"error": err.Error()}
	}
	if res == nil {
		res = Result{}
	}
	return res
}
