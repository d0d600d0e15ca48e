package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/finclaw/internal/types"
)

// Queue manages per-owner lanes with a global concurrency semaphore.
// Each owner gets its own FIFO channel (lane) so that turns for an owner
// are processed sequentially, while the semaphore limits the total number
// of concurrent turn processors across all owners.
type Queue struct {
	lanes     map[types.OwnerID]chan *Turn
	semaphore *semaphore.Weighted
	processor func(*Turn) error
	active    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent turns to execute
// simultaneously across all owner lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.OwnerID]chan *Turn),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Turn to the owner's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(turn *Turn) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane, exists := q.lanes[turn.Owner]
	if !exists {
		lane = make(chan *Turn, 100)
		q.lanes[turn.Owner] = lane
		q.wg.Add(1)
		go q.processLane(turn.Owner, lane)
	}

	select {
	case lane <- turn:
		return nil
	default:
		return fmt.Errorf("queue full for owner %s", turn.Owner)
	}
}

// processLane drains a single owner lane, acquiring a semaphore slot
// before running the processor synchronously. This ensures strict FIFO
// ordering per owner while the semaphore limits cross-owner parallelism.
func (q *Queue) processLane(owner types.OwnerID, lane chan *Turn) {
	defer q.wg.Done()
	for {
		select {
		case turn, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			if q.processor != nil {
				q.active.Add(1)
				turn.Ctx = q.ctx
				turn.Status = TurnStatusRunning
				started := time.Now()
				turn.StartedAt = &started
				turn.Attempts++
				err := q.processor(turn)
				ended := time.Now()
				turn.EndedAt = &ended
				if err != nil {
					turn.Status = TurnStatusFailed
					turn.Err = err
					slog.Error("turn failed", "turn_id", string(turn.ID), "owner", string(turn.Owner), "error", err)
					if turn.OnError != nil {
						turn.OnError(err)
					}
				} else {
					turn.Status = TurnStatusComplete
				}
				q.active.Add(-1)
			}
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// WaitIdle blocks until no turns are actively being processed, or the
// timeout expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Turn.
func (q *Queue) SetProcessor(fn func(*Turn) error) {
	q.processor = fn
}
