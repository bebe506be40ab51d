package skorche

import (
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/AnsBalin/skorche/errs"
)

// driverYieldInterval is the cooperative sleep the operator driver takes
// between full passes over the operator list, so a momentarily-idle set of
// operators doesn't spin the CPU.
const driverYieldInterval = time.Millisecond

type lifecycleState int

const (
	stateBuilt lifecycleState = iota
	stateRunning
	stateStopped
)

// PipelineManager owns an entire pipeline graph: the build-time API
// (Map/Chain/Split/Merge/Batch/Unbatch/Filter) assembles queues, task
// stages and operators; Run starts every worker activity and the operator
// driver; Shutdown waits for all of them to drain, clears the graph tables
// and leaves the manager stopped until Init makes it buildable again.
type PipelineManager struct {
	mu      sync.Mutex
	logger  *logrus.Entry
	metrics *metricsSet

	state      lifecycleState
	nodes      map[string]Node
	consumerOf map[string]bool
	stages     []*stageSpec
	operators  []operator

	wg sync.WaitGroup
}

// New constructs a PipelineManager. logger and registry may be nil, in
// which case the standard logrus logger and a fresh Prometheus registry are
// used, mirroring the sensible per-Config defaults the teacher's service
// packages fall back to when no logger is supplied.
func New(logger *logrus.Entry, registry *prometheus.Registry) *PipelineManager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &PipelineManager{
		logger:  logger,
		metrics: newMetricsSet(registry),
	}
	m.resetLocked()
	return m
}

// clearTablesLocked empties the build-time tables (nodes, stages,
// operators, consumer claims) without touching state, so Shutdown can clear
// them while still leaving the manager in stateStopped until Init is called.
func (m *PipelineManager) clearTablesLocked() {
	m.nodes = make(map[string]Node)
	m.consumerOf = make(map[string]bool)
	m.stages = nil
	m.operators = nil
	m.wg = sync.WaitGroup{}
}

func (m *PipelineManager) resetLocked() {
	m.state = stateBuilt
	m.clearTablesLocked()
}

// Init resets the manager to a fresh, empty build state. It is safe to call
// at any point in the lifecycle and is equivalent to discarding the manager
// and constructing a new one.
func (m *PipelineManager) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *PipelineManager) registerNode(n Node) {
	m.nodes[n.NodeID().String()] = n
}

// claimConsumer enforces the graph invariant that a queue has at most one
// consuming component.
func (m *PipelineManager) claimConsumer(q *Queue) error {
	key := q.NodeID().String()
	if m.consumerOf[key] {
		return errs.New(errs.GraphError, "queue %q already has a consumer", q.name)
	}
	m.consumerOf[key] = true
	return nil
}

func (m *PipelineManager) checkBuildable() error {
	if m.state == stateRunning {
		return errs.New(errs.LifecycleError, "pipeline is running; call Shutdown before building further")
	}
	if m.state == stateStopped {
		return errs.New(errs.LifecycleError, "pipeline was shut down; call Init before building again")
	}
	return nil
}

// Map registers a task stage reading qIn and writing qOut. If qOut is nil a
// fresh anonymous queue is allocated and returned.
func (m *PipelineManager) Map(task *Task, qIn *Queue, qOut *Queue) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if err := m.claimConsumer(qIn); err != nil {
		return nil, err
	}
	if qOut == nil {
		qOut = NewQueue()
	}

	m.registerNode(qIn)
	m.registerNode(qOut)
	m.registerNode(task)
	qIn.addChild(task)
	task.addChild(qOut)

	m.stages = append(m.stages, &stageSpec{task: task, qIn: qIn, qOut: qOut})
	return qOut, nil
}

// Chain is sugar for map(t1, qIn, q1), map(t2, q1, q2), ..., map(tn, q_(n-1),
// qOut), wiring fresh intermediate queues between consecutive tasks. It
// always returns the final output queue, including when len(tasks) == 1
// (the Python source's chain is documented as returning inconsistently in
// that case; this implementation does not reproduce that bug).
func (m *PipelineManager) Chain(tasks []*Task, qIn *Queue, qOut *Queue) (*Queue, error) {
	if len(tasks) == 0 {
		return nil, errs.New(errs.GraphError, "chain requires at least one task")
	}

	cur := qIn
	for i, t := range tasks {
		var out *Queue
		if i == len(tasks)-1 {
			out = qOut
		}
		next, err := m.Map(t, cur, out)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Split registers a SplitOp reading qIn and routing items to one queue per
// declared predicate value. If values is nil, the default {true, false} set
// is used.
func (m *PipelineManager) Split(predicate PredicateFunc, qIn *Queue, values []any) (map[any]*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if err := m.claimConsumer(qIn); err != nil {
		return nil, err
	}
	if values == nil {
		values = []any{true, false}
	}

	qOut := make(map[any]*Queue, len(values))
	for _, v := range values {
		qOut[v] = NewQueue()
	}

	op := newSplitOp(predicate, qIn, qOut, m.logger)
	m.registerNode(qIn)
	m.registerNode(op)
	qIn.addChild(op)
	for _, q := range qOut {
		m.registerNode(q)
		op.addChild(q)
	}

	m.operators = append(m.operators, op)
	return qOut, nil
}

// Merge registers a MergeOp fanning qIns into qOut. If qOut is nil a fresh
// anonymous queue is allocated and returned.
func (m *PipelineManager) Merge(qIns []*Queue, qOut *Queue) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if len(qIns) == 0 {
		return nil, errs.New(errs.GraphError, "merge requires at least one input queue")
	}
	for _, q := range qIns {
		if err := m.claimConsumer(q); err != nil {
			return nil, err
		}
	}
	if qOut == nil {
		qOut = NewQueue()
	}

	op := newMergeOp(qIns, qOut)
	for _, q := range qIns {
		m.registerNode(q)
		q.addChild(op)
	}
	m.registerNode(op)
	m.registerNode(qOut)
	op.addChild(qOut)

	m.operators = append(m.operators, op)
	return qOut, nil
}

// Batch registers a BatchOp grouping qIn's items into lists of size
// batchSize. If qOut is nil a fresh anonymous queue is allocated and
// returned.
func (m *PipelineManager) Batch(qIn *Queue, qOut *Queue, batchSize int, fillBatch bool) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, errs.New(errs.GraphError, "batch size must be positive, got %d", batchSize)
	}
	if err := m.claimConsumer(qIn); err != nil {
		return nil, err
	}
	if qOut == nil {
		qOut = NewQueue()
	}

	op := newBatchOp(qIn, qOut, batchSize, fillBatch)
	m.registerNode(qIn)
	m.registerNode(op)
	m.registerNode(qOut)
	qIn.addChild(op)
	op.addChild(qOut)

	m.operators = append(m.operators, op)
	return qOut, nil
}

// Unbatch registers an UnbatchOp forwarding each element of qIn's
// list-valued items individually to qOut. If qOut is nil a fresh anonymous
// queue is allocated and returned.
func (m *PipelineManager) Unbatch(qIn *Queue, qOut *Queue) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if err := m.claimConsumer(qIn); err != nil {
		return nil, err
	}
	if qOut == nil {
		qOut = NewQueue()
	}

	op := newUnbatchOp(qIn, qOut, m.logger)
	m.registerNode(qIn)
	m.registerNode(op)
	m.registerNode(qOut)
	qIn.addChild(op)
	op.addChild(qOut)

	m.operators = append(m.operators, op)
	return qOut, nil
}

// Filter registers a FilterOp forwarding qIn's items to qOut iff predicate
// returns true. If qOut is nil a fresh anonymous queue is allocated and
// returned.
func (m *PipelineManager) Filter(predicate FilterFunc, qIn *Queue, qOut *Queue) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkBuildable(); err != nil {
		return nil, err
	}
	if err := m.claimConsumer(qIn); err != nil {
		return nil, err
	}
	if qOut == nil {
		qOut = NewQueue()
	}

	op := newFilterOp(predicate, qIn, qOut)
	m.registerNode(qIn)
	m.registerNode(op)
	m.registerNode(qOut)
	qIn.addChild(op)
	op.addChild(qOut)

	m.operators = append(m.operators, op)
	return qOut, nil
}

// PushToQueue is a build-time convenience: it puts each item in items onto
// q, followed by exactly one EOS.
func PushToQueue(items []any, q *Queue) {
	for _, x := range items {
		q.Put(x)
	}
	q.Put(EOS)
}

// Run starts every task stage's worker activities and a single operator
// driver activity, then returns immediately (non-blocking). It is an error
// to call Run twice without an intervening Shutdown+Init, or to call it on
// an already-shut-down manager without first calling Init.
func (m *PipelineManager) Run() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateRunning {
		return errs.New(errs.LifecycleError, "Run called while already running")
	}
	if m.state == stateStopped {
		return errs.New(errs.LifecycleError, "pipeline was shut down; call Init before Run")
	}

	var startErr *multierror.Error
	for _, n := range m.nodes {
		if q, ok := n.(*Queue); ok {
			if err := q.Start(); err != nil {
				startErr = multierror.Append(startErr, err)
			}
		}
	}
	if err := startErr.ErrorOrNil(); err != nil {
		return err
	}

	m.state = stateRunning

	m.wg.Add(len(m.stages))
	for _, st := range m.stages {
		go m.runStage(st)
	}

	m.wg.Add(1)
	go m.runDriver()

	return nil
}

// runDriver cooperatively advances every non-shutdown operator in
// round-robin order, removing an operator only after a full pass over the
// (stable) list it started that pass with - mutating the list mid-iteration
// would skip the operator immediately after one that shut down.
func (m *PipelineManager) runDriver() {
	defer m.wg.Done()

	ops := append([]operator(nil), m.operators...)
	for len(ops) > 0 {
		remaining := ops[:0]
		for _, op := range ops {
			if !op.step() {
				remaining = append(remaining, op)
			}
		}
		ops = remaining
		time.Sleep(driverYieldInterval)
	}
}

// Shutdown blocks until every worker activity and the operator driver has
// exited, then clears the build tables and transitions the manager to
// stateStopped. A stopped manager rejects further build calls and Run with
// errs.LifecycleError until Init is called. Shutdown relies on EOS having
// already reached every source queue; if a source never terminates its
// stream, Shutdown blocks indefinitely - this is documented behavior, not a
// bug.
func (m *PipelineManager) Shutdown() error {
	m.mu.Lock()
	if m.state != stateRunning {
		m.mu.Unlock()
		return errs.New(errs.LifecycleError, "Shutdown called while not running")
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateStopped
	m.clearTablesLocked()
	return nil
}
