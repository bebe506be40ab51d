package skorche

import (
	"bytes"
	"fmt"
	"os"

	"github.com/AnsBalin/skorche/errs"
)

// edge is one parent-to-child relationship captured by a snapshot walk.
type edge struct {
	from Node
	to   Node
}

// snapshot walks the graph reachable from root in breadth-first order and
// returns the visited nodes together with the edges between them. When
// skipAnon is true, anonymous queues are elided from the rendered graph:
// they are dropped from the node list and an edge that would otherwise
// terminate on one is instead forwarded to their sole child, per spec.md
// §4.2 ("forwarding to their sole child"), matching the Python source's
// treatment of unnamed intermediate queues as invisible plumbing rather
// than graph vertices worth rendering.
func snapshot(root Node, skipAnon bool) ([]Node, []edge) {
	var nodes []Node
	var edges []edge

	visited := make(map[string]bool)
	queue := []Node{root}
	visited[root.NodeID().String()] = true

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if !skipAnon || !isAnonQueue(n) {
			nodes = append(nodes, n)
		}

		for _, child := range n.Children() {
			if !visited[child.NodeID().String()] {
				visited[child.NodeID().String()] = true
				queue = append(queue, child)
			}

			// An edge sourced at an elided node was already emitted, spliced
			// through, by its own visible ancestor - don't duplicate it here.
			if skipAnon && isAnonQueue(n) {
				continue
			}
			if target := visibleTarget(child, skipAnon); target != nil {
				edges = append(edges, edge{from: n, to: target})
			}
		}
	}

	return nodes, edges
}

// visibleTarget follows a chain of elided anonymous queues to the nearest
// visible descendant, returning nil if the chain dead-ends (an anonymous
// queue with no consumer, e.g. an unused pipeline output).
func visibleTarget(n Node, skipAnon bool) Node {
	for skipAnon && isAnonQueue(n) {
		children := n.Children()
		if len(children) == 0 {
			return nil
		}
		n = children[0]
	}
	return n
}

func isAnonQueue(n Node) bool {
	q, ok := n.(*Queue)
	return ok && q.anon
}

// Render walks the graph reachable from root and writes a Graphviz DOT
// representation to filename, grounded on the hand-rolled buffer-based DOT
// writers used elsewhere in the example pack for visualizing task graphs:
// no Go library in the dependency set generates DOT, so this is a deliberate
// standard-library-only component.
func (m *PipelineManager) Render(root *Queue, filename string, skipAnon bool) error {
	nodes, edges := snapshot(root, skipAnon)

	var buf bytes.Buffer
	buf.WriteString("digraph skorche {\n")
	buf.WriteString("\trankdir=LR;\n")

	for _, n := range nodes {
		shape, style := nodeDotShape(n)
		fmt.Fprintf(&buf, "\t%q [shape=%s, style=%q, label=%q];\n", nodeDotID(n), shape, style, nodeDotLabel(n))
	}
	for _, e := range edges {
		fmt.Fprintf(&buf, "\t%q -> %q;\n", nodeDotID(e.from), nodeDotID(e.to))
	}
	buf.WriteString("}\n")

	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return errs.New(errs.GraphError, "render: write %q: %w", filename, err)
	}
	return nil
}

func nodeDotID(n Node) string {
	return n.NodeID().String()
}

// nodeDotShape reports the Graphviz shape and style for n, per spec.md §6's
// node shape hints: operator=filled rectangle, task=rectangle, queue=default.
func nodeDotShape(n Node) (shape, style string) {
	switch n.NodeType() {
	case NodeTask:
		return "box", ""
	case NodeOp:
		return "box", "filled"
	default:
		return "ellipse", ""
	}
}

func nodeDotLabel(n Node) string {
	return n.NodeName()
}
