package skorche

import "github.com/google/uuid"

// NodeType classifies a vertex in a pipeline graph.
type NodeType int

const (
	// NodeQueue marks a vertex as a Queue.
	NodeQueue NodeType = iota

	// NodeTask marks a vertex as a Task stage.
	NodeTask

	// NodeOp marks a vertex as a control operator (split/merge/batch/
	// unbatch/filter).
	NodeOp
)

// String implements fmt.Stringer.
func (t NodeType) String() string {
	switch t {
	case NodeQueue:
		return "Queue"
	case NodeTask:
		return "Task"
	case NodeOp:
		return "Op"
	default:
		return "Unknown"
	}
}

// Node is any vertex in a pipeline graph: a Queue, a Task, or an Op. Every
// node carries a set of child edges pointing downstream; the manager wires
// parent/child edges while building and never mutates them after Run.
type Node interface {
	// NodeType reports which of the three node variants this is.
	NodeType() NodeType

	// NodeName returns the node's display name.
	NodeName() string

	// NodeID returns the node's unique, stable identifier.
	NodeID() uuid.UUID

	// Children returns the node's downstream edges.
	Children() []Node

	// Stats returns a snapshot of the node's counters, keyed for structured
	// logging and introspection (e.g. "id", "name", "type").
	Stats() map[string]any

	addChild(Node)
}

// baseNode implements the bookkeeping shared by Queue, Task and every
// operator: identity, display name and the set of downstream children.
type baseNode struct {
	id       uuid.UUID
	name     string
	typ      NodeType
	children []Node
}

func newBaseNode(typ NodeType, name string) baseNode {
	return baseNode{id: uuid.New(), name: name, typ: typ}
}

// NodeType implements Node.
func (n *baseNode) NodeType() NodeType { return n.typ }

// NodeName implements Node.
func (n *baseNode) NodeName() string { return n.name }

// NodeID implements Node.
func (n *baseNode) NodeID() uuid.UUID { return n.id }

// Children implements Node.
func (n *baseNode) Children() []Node { return n.children }

// Stats implements Node with the bookkeeping common to every node variant.
// Queue overrides this to add item counters.
func (n *baseNode) Stats() map[string]any {
	return map[string]any{
		"id":   n.id.String(),
		"name": n.name,
		"type": n.typ.String(),
	}
}

func (n *baseNode) addChild(c Node) { n.children = append(n.children, c) }

// operator is implemented by the five control-flow state machines (split,
// merge, batch, unbatch, filter). step performs a bounded amount of work on
// what is currently available on its inputs (one item for SplitOp, one item
// per input for MergeOp, everything currently queued for the others) and
// reports
// whether the operator has reached its terminal condition and emitted its
// EOS downstream.
type operator interface {
	Node
	step() bool
}
