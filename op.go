package skorche

import (
	"github.com/sirupsen/logrus"

	"github.com/AnsBalin/skorche/errs"
)

// PredicateFunc evaluates an item and returns a value declared in the
// owning SplitOp's value set.
type PredicateFunc func(any) any

// FilterFunc evaluates an item and reports whether it should pass through.
type FilterFunc func(any) bool

// SplitOp routes each item from qIn to one of several output queues, chosen
// by evaluating predicate and looking up the result in qOut. On EOS it
// forwards EOS to every output and shuts down.
type SplitOp struct {
	baseNode

	predicate PredicateFunc
	qIn       *Queue
	qOut      map[any]*Queue
	logger    *logrus.Entry
	shutdown  bool
}

func newSplitOp(predicate PredicateFunc, qIn *Queue, qOut map[any]*Queue, logger *logrus.Entry) *SplitOp {
	return &SplitOp{
		baseNode:  newBaseNode(NodeOp, "SplitOp"),
		predicate: predicate,
		qIn:       qIn,
		qOut:      qOut,
		logger:    logger,
	}
}

func (s *SplitOp) step() bool {
	if s.shutdown {
		return true
	}
	if s.qIn.Empty() {
		return false
	}

	item := s.qIn.Get()
	if isEOS(item) {
		for _, q := range s.qOut {
			q.Put(EOS)
		}
		s.shutdown = true
		return true
	}

	v := s.predicate(item)
	qOut, ok := s.qOut[v]
	if !ok {
		fields := logrus.Fields(s.Stats())
		fields["value"] = v
		s.logger.WithFields(fields).Error(errs.New(errs.BadPredicateValue, "split predicate returned unregistered value %v", v))
		return false
	}
	qOut.Put(item)
	return false
}

// MergeOp dequeues one item per step from each non-empty input, forwarding
// non-EOS items to qOut in the order dequeued. It shuts down after the k-th
// EOS (one per input) and forwards exactly one EOS downstream.
type MergeOp struct {
	baseNode

	qIns        []*Queue
	qOut        *Queue
	eosSeen     int
	eosExpected int
	shutdown    bool
}

func newMergeOp(qIns []*Queue, qOut *Queue) *MergeOp {
	return &MergeOp{
		baseNode:    newBaseNode(NodeOp, "MergeOp"),
		qIns:        qIns,
		qOut:        qOut,
		eosExpected: len(qIns),
	}
}

func (m *MergeOp) step() bool {
	if m.shutdown {
		return true
	}
	for _, qIn := range m.qIns {
		if qIn.Empty() {
			continue
		}
		item := qIn.Get()
		if isEOS(item) {
			m.eosSeen++
			if m.eosSeen == m.eosExpected {
				m.qOut.Put(EOS)
				m.shutdown = true
				return true
			}
			continue
		}
		m.qOut.Put(item)
	}
	return m.shutdown
}

// BatchOp groups items from qIn into ordered-list batches of size
// batchSize. With fillBatch false, any short batch remaining after a step's
// drain is emitted immediately; with fillBatch true, a short batch is only
// emitted once EOS arrives.
type BatchOp struct {
	baseNode

	qIn       *Queue
	qOut      *Queue
	batchSize int
	fillBatch bool
	buffer    []any
	shutdown  bool
}

func newBatchOp(qIn, qOut *Queue, batchSize int, fillBatch bool) *BatchOp {
	return &BatchOp{
		baseNode:  newBaseNode(NodeOp, "BatchOp"),
		qIn:       qIn,
		qOut:      qOut,
		batchSize: batchSize,
		fillBatch: fillBatch,
	}
}

func (b *BatchOp) step() bool {
	if b.shutdown {
		return true
	}

	for !b.qIn.Empty() {
		item := b.qIn.Get()
		if isEOS(item) {
			b.sendBatch()
			b.qOut.Put(EOS)
			b.shutdown = true
			return true
		}

		b.buffer = append(b.buffer, item)
		if len(b.buffer) == b.batchSize {
			b.sendBatch()
		}
	}

	if !b.fillBatch && len(b.buffer) > 0 {
		b.sendBatch()
	}
	return false
}

func (b *BatchOp) sendBatch() {
	if len(b.buffer) == 0 {
		return
	}
	b.qOut.Put(b.buffer)
	b.buffer = nil
}

// UnbatchOp forwards the elements of each batch (an ordered list) from qIn
// to qOut individually, preserving order.
type UnbatchOp struct {
	baseNode

	qIn      *Queue
	qOut     *Queue
	logger   *logrus.Entry
	shutdown bool
}

func newUnbatchOp(qIn, qOut *Queue, logger *logrus.Entry) *UnbatchOp {
	return &UnbatchOp{
		baseNode: newBaseNode(NodeOp, "UnbatchOp"),
		qIn:      qIn,
		qOut:     qOut,
		logger:   logger,
	}
}

func (u *UnbatchOp) step() bool {
	if u.shutdown {
		return true
	}

	for !u.qIn.Empty() {
		item := u.qIn.Get()
		if isEOS(item) {
			u.qOut.Put(EOS)
			u.shutdown = true
			return true
		}

		batch, ok := item.([]any)
		if !ok {
			u.logger.WithFields(logrus.Fields(u.Stats())).Error("item is not a batch, dropping")
			continue
		}
		for _, x := range batch {
			u.qOut.Put(x)
		}
	}
	return false
}

// FilterOp forwards each non-EOS item from qIn to qOut iff predicate(item)
// is true.
type FilterOp struct {
	baseNode

	predicate FilterFunc
	qIn       *Queue
	qOut      *Queue
	shutdown  bool
}

func newFilterOp(predicate FilterFunc, qIn, qOut *Queue) *FilterOp {
	return &FilterOp{
		baseNode:  newBaseNode(NodeOp, "FilterOp"),
		predicate: predicate,
		qIn:       qIn,
		qOut:      qOut,
	}
}

func (f *FilterOp) step() bool {
	if f.shutdown {
		return true
	}

	for !f.qIn.Empty() {
		item := f.qIn.Get()
		if isEOS(item) {
			f.qOut.Put(EOS)
			f.shutdown = true
			return true
		}
		if f.predicate(item) {
			f.qOut.Put(item)
		}
	}
	return false
}

var (
	_ operator = (*SplitOp)(nil)
	_ operator = (*MergeOp)(nil)
	_ operator = (*BatchOp)(nil)
	_ operator = (*UnbatchOp)(nil)
	_ operator = (*FilterOp)(nil)
)
