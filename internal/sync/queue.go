package sync

import (
	"sync"

	"promptdeck/internal/domain/models"
)

// MutationState tracks a queued mutation through its lifecycle.
type MutationState string

const (
	StatePending      MutationState = "pending"
	StatePushed       MutationState = "pushed"
	StateAcknowledged MutationState = "acknowledged"
	StateFailed       MutationState = "failed"
)

// QueuedMutation is a mutation with its queue state.
type QueuedMutation struct {
	models.Mutation
	State MutationState
}

// queue is an in-memory FIFO of local mutations awaiting push. Arrival order
// is drain order, which also gives every entity id its per-id FIFO guarantee.
type queue struct {
	mu       sync.Mutex
	pending  []*QueuedMutation
	inFlight *QueuedMutation
	canceled map[string]bool
}

func newQueue() *queue {
	return &queue{canceled: make(map[string]bool)}
}

func (q *queue) enqueue(m models.Mutation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, &QueuedMutation{Mutation: m, State: StatePending})
}

// next marks the head mutation Pushed and returns it, or nil when empty.
func (q *queue) next() *QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	head := q.pending[0]
	head.State = StatePushed
	q.inFlight = head
	return head
}

// settle removes the in-flight mutation with its final state. It reports
// false when the mutation was canceled while pushed, in which case the
// caller must discard the result.
func (q *queue) settle(state MutationState) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight == nil {
		return false
	}
	id := q.inFlight.ID
	q.inFlight.State = state
	q.pending = q.pending[1:]
	q.inFlight = nil
	if q.canceled[id] {
		delete(q.canceled, id)
		return false
	}
	return true
}

// requeue returns the in-flight mutation to Pending at the head. Used when
// the remote is unreachable.
func (q *queue) requeue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight == nil {
		return
	}
	q.inFlight.State = StatePending
	q.inFlight = nil
}

// cancel removes a still-Pending mutation, or flags an in-flight one so its
// result is discarded. Reports whether the id was known.
func (q *queue) cancel(mutationID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight != nil && q.inFlight.ID == mutationID {
		q.canceled[mutationID] = true
		return true
	}
	for i, m := range q.pending {
		if m.ID == mutationID && m.State == StatePending {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// snapshot returns the queued mutations in order, for inspection.
func (q *queue) snapshot() []QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedMutation, len(q.pending))
	for i, m := range q.pending {
		out[i] = *m
	}
	return out
}
