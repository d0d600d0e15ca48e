package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/types"
)

// Dispatcher reacts to newly synced emails by running an agent turn over
// them and delivering the reply to the owner's registered channels. Each
// notification gets its own thread so it does not interleave with the
// owner's active conversation.
type Dispatcher struct {
	gw       *gateway.Gateway
	store    types.ConversationStore
	registry *Registry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(gw *gateway.Gateway, store types.ConversationStore, registry *Registry) *Dispatcher {
	return &Dispatcher{gw: gw, store: store, registry: registry}
}

// NewEmail summarizes a freshly synced email and pushes the summary to the
// owner. Failures are logged; notification is best effort.
func (d *Dispatcher) NewEmail(owner types.OwnerID, rec types.EmailRecord) {
	thread := &types.Thread{
		OwnerID: owner,
		Title:   "New email: " + rec.Subject,
		Context: types.ContextEmails,
	}
	if err := d.store.CreateThread(context.Background(), thread); err != nil {
		slog.Error("create notification thread", "owner", string(owner), "error", err)
		return
	}

	prompt := fmt.Sprintf(
		"A new email just arrived from %s <%s> with the subject %q:\n\n%s\n\nBriefly summarize it and suggest a follow-up action if one makes sense.",
		rec.FromName, rec.FromEmail, rec.Subject, rec.BodyText,
	)

	_, err := d.gw.Submit(owner, thread.ID, prompt, "notifier",
		gateway.WithOnComplete(func(reply *types.Message) {
			if err := d.registry.Deliver(owner, reply.Content); err != nil {
				slog.Error("deliver notification", "owner", string(owner), "error", err)
			}
		}),
		gateway.WithOnError(func(err error) {
			slog.Error("notification turn failed", "owner", string(owner), "error", err)
		}),
	)
	if err != nil {
		slog.Error("submit notification turn", "owner", string(owner), "error", err)
	}
}
