package skorche

import (
	"sync"

	"github.com/AnsBalin/skorche/errs"
)

// Queue is an unbounded FIFO edge carrying items and the EOS
// sentinel between nodes. Before Start, Put/Get operate against an in-memory
// buffer; Start drains that buffer into the runtime queue in order and all
// subsequent operations use the runtime queue only.
type Queue struct {
	baseNode

	mu      sync.Mutex
	cond    *sync.Cond
	buffer  []any
	items   []any
	started bool

	// anon is true when the caller did not supply a Name, marking this
	// queue as elidable during BFS snapshot rendering.
	anon bool
}

// QueueOption configures a Queue at construction time.
type QueueOption func(*Queue)

// WithName gives the queue a display name, opting it out of anonymous-queue
// elision during snapshot rendering.
func WithName(name string) QueueOption {
	return func(q *Queue) {
		q.name = name
		q.anon = false
	}
}

// WithFixedInputs seeds the queue's pre-start buffer with items followed by
// exactly one EOS, per the "fixed inputs" data-model invariant.
func WithFixedInputs(items []any) QueueOption {
	return func(q *Queue) {
		q.buffer = append(q.buffer, items...)
		q.buffer = append(q.buffer, EOS)
	}
}

// NewQueue constructs an unstarted Queue. With no options it is anonymous
// and empty.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		baseNode: newBaseNode(NodeQueue, "Queue"),
		anon:     true,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Put appends x to the queue. Before Start it is appended to the pre-start
// buffer; afterwards it joins the runtime queue and wakes any blocked Get.
func (q *Queue) Put(x any) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		q.buffer = append(q.buffer, x)
		return
	}
	q.items = append(q.items, x)
	q.cond.Signal()
}

// Get removes and returns the oldest item, blocking until one is available.
// Get is meant for exactly one consumer per queue, enforced at build time by
// the single-consumer graph invariant; calling it concurrently from more than
// one goroutine, or after the queue's sole consumer has already drained its
// EOS, is a programmer error the engine does not guard against at runtime
// (see errs.DrainError).
func (q *Queue) Get() any {
	q.mu.Lock()
	defer q.mu.Unlock()

	src := &q.items
	if !q.started {
		src = &q.buffer
	}
	for len(*src) == 0 {
		q.cond.Wait()
	}
	x := (*src)[0]
	*src = (*src)[1:]
	return x
}

// Empty reports whether no item is currently available without blocking.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return len(q.buffer) == 0
	}
	return len(q.items) == 0
}

// Start transitions the pre-start buffer into the runtime queue, in order.
// It is an error to call Start on an already-started queue.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return errs.New(errs.LifecycleError, "queue %q: Start called twice", q.name)
	}
	q.items = append(q.items, q.buffer...)
	q.buffer = nil
	q.started = true
	q.cond.Broadcast()
	return nil
}

// Flush empties the queue and returns the items that preceded the first EOS;
// the EOS and any items after it are discarded. It is meant for use only outside the running
// phase (build time, or after Shutdown); calling it on an actively-consumed
// queue races with that consumer by design (see errs.DrainError).
func (q *Queue) Flush() []any {
	q.mu.Lock()
	defer q.mu.Unlock()

	var src []any
	if q.started {
		src = q.items
		q.items = nil
	} else {
		src = q.buffer
		q.buffer = nil
	}

	out := make([]any, 0, len(src))
	for _, x := range src {
		if isEOS(x) {
			break
		}
		out = append(out, x)
	}
	return out
}

// Stats overrides baseNode.Stats to add the queue's pending item count,
// grounded on the Kapacitor task engine's collected/emitted counters
// (adapted here to Prometheus-style snapshot introspection rather than its
// own hand-rolled counters).
func (q *Queue) Stats() map[string]any {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.baseNode.Stats()
	if q.started {
		stats["pending"] = len(q.items)
	} else {
		stats["pending"] = len(q.buffer)
	}
	stats["started"] = q.started
	return stats
}

var _ Node = (*Queue)(nil)
