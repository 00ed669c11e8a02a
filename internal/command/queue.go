// Package command provides the hand-off from input contexts to the active
// connection: an unbounded, thread-safe FIFO of remote service calls.
//
// A Queue is created once at startup, before any producer can run, and
// outlives every connection. Commands pushed while disconnected are held
// and drained in order by the next session.
package command

import (
	"context"
	"sync"

	"github.com/jwulff/deckhand/internal/domain"
)

// Queue is a multi-producer, single-consumer FIFO of commands.
type Queue struct {
	mu    sync.Mutex
	items []domain.Command
	// ready holds at most one wake-up token for a waiting consumer.
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends a command. It never blocks.
func (q *Queue) Push(cmd domain.Command) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Next removes and returns the oldest command, waiting until one is
// available or ctx is done.
func (q *Queue) Next(ctx context.Context) (domain.Command, error) {
	for {
		if cmd, ok := q.pop(); ok {
			return cmd, nil
		}
		select {
		case <-ctx.Done():
			return domain.Command{}, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *Queue) pop() (domain.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.Command{}, false
	}
	cmd := q.items[0]
	q.items[0] = domain.Command{}
	q.items = q.items[1:]
	return cmd, true
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
