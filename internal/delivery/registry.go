package delivery

import (
	"fmt"
	"sync"

	"github.com/user/finclaw/internal/types"
)

// Handler pushes a proactive message to an owner over one channel.
type Handler func(owner types.OwnerID, message string) error

// Registry routes proactive messages to registered delivery channels
// (e.g. "telegram"). Channels register at startup; delivery fans out to
// every channel and reports the first failure.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for the named channel.
func (r *Registry) Register(channel string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = handler
}

// Deliver sends the message to the owner on every registered channel.
// Returns an error if no channel is registered, or the first channel error.
func (r *Registry) Deliver(owner types.OwnerID, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.handlers) == 0 {
		return fmt.Errorf("no delivery channels registered")
	}

	var firstErr error
	for channel, handler := range r.handlers {
		if err := handler(owner, message); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deliver via %s: %w", channel, err)
		}
	}
	return firstErr
}
