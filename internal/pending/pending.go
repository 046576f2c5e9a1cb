package pending

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what real side effect an operation commits.
type Kind string

const (
	KindDelete Kind = "delete"
	KindSend   Kind = "send"
)

type opState int

const (
	statePending opState = iota
	stateCancelled
	stateCommitted
)

// Operation is one delayed-commit unit: visually applied already, real
// side effect held back until CommitAt unless cancelled first.
type Operation struct {
	ID        string
	Kind      Kind
	EntityIDs []string
	Payload   interface{}
	CommitAt  time.Time

	state opState
	timer Timer
}

// CommitFunc performs the real side effect of an operation. It runs at
// most once per operation, on the timer's goroutine.
type CommitFunc func(op *Operation)

// CancelFunc reverts the optimistic state of an operation. It runs at
// most once, never issues network calls, and only on the first Cancel.
type CancelFunc func(op *Operation)

// Queue tracks live pending operations. Commits and cancels are mutually
// exclusive per operation: exactly one of them runs, exactly once.
type Queue struct {
	mu     sync.Mutex
	clock  Clock
	ops    map[string]*Operation
	logger *log.Logger
}

// NewQueue creates a queue scheduling on the given clock.
func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = RealClock{}
	}
	return &Queue{clock: clock, ops: make(map[string]*Operation)}
}

// SetLogger sets the logger for debug output.
func (q *Queue) SetLogger(logger *log.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.logger = logger
}

// Clock returns the queue's clock, for callers that need Now.
func (q *Queue) Clock() Clock {
	return q.clock
}

// Schedule enqueues an operation whose commit fires after the grace
// window. The returned handle's Cancel is idempotent; a second call is a
// no-op. Commit and onCancel never both run for the same operation.
func (q *Queue) Schedule(kind Kind, entityIDs []string, payload interface{}, grace time.Duration, commit CommitFunc, onCancel CancelFunc) *Handle {
	op := &Operation{
		ID:        uuid.New().String(),
		Kind:      kind,
		EntityIDs: append([]string(nil), entityIDs...),
		Payload:   payload,
		CommitAt:  q.clock.Now().Add(grace),
	}
	q.mu.Lock()
	q.ops[op.ID] = op
	q.mu.Unlock()
	op.timer = q.clock.AfterFunc(grace, func() {
		q.mu.Lock()
		if op.state != statePending {
			q.mu.Unlock()
			return
		}
		op.state = stateCommitted
		delete(q.ops, op.ID)
		q.mu.Unlock()
		if q.logger != nil {
			q.logger.Printf("pending: commit %s %s (%d ids)", op.Kind, op.ID, len(op.EntityIDs))
		}
		commit(op)
	})
	if q.logger != nil {
		q.logger.Printf("pending: scheduled %s %s, commit at %s", kind, op.ID, op.CommitAt.Format(time.RFC3339))
	}
	return &Handle{queue: q, op: op, onCancel: onCancel}
}

// Live returns the number of operations still awaiting commit or cancel.
func (q *Queue) Live() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// LiveByKind returns the live operations of a kind, for overlap checks.
func (q *Queue) LiveByKind(kind Kind) []*Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Operation
	for _, op := range q.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Handle exposes cancellation of one pending operation to the undo UI.
type Handle struct {
	queue    *Queue
	op       *Operation
	onCancel CancelFunc
}

// ID returns the operation ID.
func (h *Handle) ID() string { return h.op.ID }

// Kind returns the operation kind.
func (h *Handle) Kind() Kind { return h.op.Kind }

// EntityIDs returns the IDs the operation affects.
func (h *Handle) EntityIDs() []string {
	return append([]string(nil), h.op.EntityIDs...)
}

// Cancel stops the timer and reverts the optimistic state. It never
// issues a network call. Reports whether this call did the cancelling;
// false means the operation already committed or was already cancelled.
func (h *Handle) Cancel() bool {
	q := h.queue
	q.mu.Lock()
	if h.op.state != statePending {
		q.mu.Unlock()
		return false
	}
	h.op.state = stateCancelled
	delete(q.ops, h.op.ID)
	timer := h.op.timer
	q.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	if q.logger != nil {
		q.logger.Printf("pending: cancelled %s %s", h.op.Kind, h.op.ID)
	}
	if h.onCancel != nil {
		h.onCancel(h.op)
	}
	return true
}

// Cancelled reports whether the operation was cancelled.
func (h *Handle) Cancelled() bool {
	h.queue.mu.Lock()
	defer h.queue.mu.Unlock()
	return h.op.state == stateCancelled
}
