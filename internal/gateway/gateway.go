package gateway

import (
	"context"
	"sync"

	"github.com/user/finclaw/internal/types"
)

// Gateway turns inbound user messages into queued turns. All surfaces
// (HTTP API, Telegram, scheduled jobs) submit through the gateway so the
// per-owner ordering guarantee holds regardless of where a message came
// from.
type Gateway struct {
	Queue *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway with the given concurrency limit for simultaneous
// turn processing.
func New(maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	return &Gateway{
		Queue: NewQueue(concurrency),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// TurnOption configures optional behavior on a Turn.
type TurnOption func(*Turn)

// WithOnComplete sets a callback invoked with the persisted assistant
// message when the turn finishes.
func WithOnComplete(fn func(*types.Message)) TurnOption {
	return func(t *Turn) { t.OnComplete = fn }
}

// WithOnError sets a callback invoked when the turn fails outright.
func WithOnError(fn func(error)) TurnOption {
	return func(t *Turn) { t.OnError = fn }
}

// Submit wraps an inbound message in a Turn and enqueues it on the owner's
// lane. An empty thread targets the owner's most recent thread.
func (g *Gateway) Submit(owner types.OwnerID, thread types.ThreadID, text, source string, opts ...TurnOption) (*Turn, error) {
	turn := NewTurn(owner, thread, text, source)
	for _, opt := range opts {
		opt(turn)
	}
	if err := g.Queue.Enqueue(turn); err != nil {
		return nil, err
	}
	return turn, nil
}
