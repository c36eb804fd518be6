// Package schema implements the script-visible object model:
// Agent (VM+Object), Whole/Collection/Part grouping, and Node's
// directed-graph port model connected by Edges carrying double-
// precision scalars. It is grounded on the host engine layer's
// invocable/port-style method dispatch (system/engine/invocable.go),
// generalized from "named invocable methods on a service" to "named
// input/output port interfaces on a Node".
package schema

import (
	"fmt"
)

// Interface is a named vector of doubles: one of a Node's input or
// output ports.
type Interface struct {
	Name   string
	Values []float64
}

// Edge connects a source Node's output port to one of this Node's
// input ports, carrying double-precision scalars at each Update.
type Edge struct {
	Source   *Node
	FromPort string
	ToPort   string
}

// Node is an Object whose shape is a directed graph of typed input/
// output ports connected by Edges.
type Node struct {
	ID string

	inputs  map[string]*Interface
	outputs map[string]*Interface

	edges []*Edge

	children []*Node
	parent   *Node
}

// NewNode creates an empty Node with no ports or edges.
func NewNode(id string) *Node {
	return &Node{
		ID:      id,
		inputs:  make(map[string]*Interface),
		outputs: make(map[string]*Interface),
	}
}

// CreateInputInterface declares a named input port of the given width.
func (n *Node) CreateInputInterface(name string, width int) *Interface {
	iface := &Interface{Name: name, Values: make([]float64, width)}
	n.inputs[name] = iface
	return iface
}

// CreateOutputInterface declares a named output port of the given
// width.
func (n *Node) CreateOutputInterface(name string, width int) *Interface {
	iface := &Interface{Name: name, Values: make([]float64, width)}
	n.outputs[name] = iface
	return iface
}

// ReadInput returns the current values of a named input port.
func (n *Node) ReadInput(name string) ([]float64, error) {
	iface, ok := n.inputs[name]
	if !ok {
		return nil, fmt.Errorf("node %q has no input interface %q", n.ID, name)
	}
	return iface.Values, nil
}

// WriteOutput sets the values of a named output port.
func (n *Node) WriteOutput(name string, values []float64) error {
	iface, ok := n.outputs[name]
	if !ok {
		return fmt.Errorf("node %q has no output interface %q", n.ID, name)
	}
	iface.Values = values
	return nil
}

// AddChild attaches child as a child Node of n (used by CreateEdge's
// positive-index sibling/child resolution and by DestroyChildNodes).
func (n *Node) AddChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

// GetChildNodes returns n's child Nodes.
func (n *Node) GetChildNodes() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// siblingOrChild resolves index: negative indices select
// siblings (via n's parent's children), positive select n's own
// children.
func (n *Node) siblingOrChild(index int) (*Node, error) {
	if index < 0 {
		if n.parent == nil {
			return nil, fmt.Errorf("node %q has no parent to resolve sibling index %d", n.ID, index)
		}
		i := -index - 1
		if i < 0 || i >= len(n.parent.children) {
			return nil, fmt.Errorf("sibling index %d out of range", index)
		}
		return n.parent.children[i], nil
	}
	if index >= len(n.children) {
		return nil, fmt.Errorf("child index %d out of range", index)
	}
	return n.children[index], nil
}

// CreateEdge connects another Node's output port to one of this Node's
// input ports. sourceIndex selects the source Node per
// siblingOrChild's negative/positive convention.
func (n *Node) CreateEdge(sourceIndex int, fromPort, toPort string) (*Edge, error) {
	source, err := n.siblingOrChild(sourceIndex)
	if err != nil {
		return nil, err
	}
	if _, ok := source.outputs[fromPort]; !ok {
		return nil, fmt.Errorf("source node %q has no output port %q", source.ID, fromPort)
	}
	if _, ok := n.inputs[toPort]; !ok {
		return nil, fmt.Errorf("node %q has no input port %q", n.ID, toPort)
	}
	edge := &Edge{Source: source, FromPort: fromPort, ToPort: toPort}
	n.edges = append(n.edges, edge)
	return edge, nil
}

// Update copies edge-targeted outputs into inputs at phase boundaries,
//.
func (n *Node) Update() {
	for _, e := range n.edges {
		out, ok := e.Source.outputs[e.FromPort]
		if !ok {
			continue
		}
		in, ok := n.inputs[e.ToPort]
		if !ok {
			continue
		}
		copy(in.Values, out.Values)
	}
}

// Destroy removes n from its parent's child list, if any.
func (n *Node) Destroy() {
	if n.parent == nil {
		return
	}
	for i, c := range n.parent.children {
		if c == n {
			n.parent.children = append(n.parent.children[:i], n.parent.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// DestroyChildNodes detaches and clears every child Node.
func (n *Node) DestroyChildNodes() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}
