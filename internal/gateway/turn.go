package gateway

import (
	"context"
	"time"

	"github.com/user/finclaw/internal/types"
)

// TurnStatus represents the lifecycle state of a Turn.
type TurnStatus string

const (
	TurnStatusQueued   TurnStatus = "queued"
	TurnStatusRunning  TurnStatus = "running"
	TurnStatusComplete TurnStatus = "complete"
	TurnStatusFailed   TurnStatus = "failed"
)

// Turn tracks a single execution of an inbound user message. Turns for the
// same owner are processed strictly in submission order.
type Turn struct {
	ID        types.TurnID
	Owner     types.OwnerID
	Thread    types.ThreadID
	Text      string
	Source    string
	Status    TurnStatus
	Attempts  int
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Err       error

	// Ctx is set by the queue when the turn starts processing.
	Ctx context.Context

	// OnComplete receives the persisted assistant message.
	OnComplete func(reply *types.Message)
	// OnError is invoked when the turn fails outright and no assistant
	// message could be persisted.
	OnError func(err error)
}

// NewTurn creates a Turn in the Queued state.
func NewTurn(owner types.OwnerID, thread types.ThreadID, text, source string) *Turn {
	return &Turn{
		ID:        types.NewTurnID(),
		Owner:     owner,
		Thread:    thread,
		Text:      text,
		Source:    source,
		Status:    TurnStatusQueued,
		CreatedAt: time.Now(),
	}
}
