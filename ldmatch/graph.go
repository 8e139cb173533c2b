//go:generate mockgen -source graph.go -destination ./mocks/mock_graph.go -package mocks Graph
package ldmatch

// Node is a subject node of a flattened graph: an identifier and, for each
// predicate, an ordered list of object values. Predicates keep the order in
// which they were first added.
//
// A Node is built once with Add and treated as read-only afterwards.
type Node struct {
	ID         string
	predicates []string
	values     map[string][]Value
}

// NewNode creates a node with no properties
func NewNode(id string) *Node {
	return &Node{ID: id, values: make(map[string][]Value)}
}

// Add appends object values to a predicate
func (n *Node) Add(predicate string, values ...Value) *Node {
	if n.values == nil {
		n.values = make(map[string][]Value)
	}
	if _, ok := n.values[predicate]; !ok {
		n.predicates = append(n.predicates, predicate)
		n.values[predicate] = nil
	}
	n.values[predicate] = append(n.values[predicate], values...)
	return n
}

// Ref returns the node identifier as a Value
func (n *Node) Ref() Value {
	return NewRef(n.ID)
}

// Predicates returns the predicates present on the node, in order
func (n *Node) Predicates() []string {
	return n.predicates
}

// Values returns the object values of predicate, in order
func (n *Node) Values(predicate string) []Value {
	return n.values[predicate]
}

// HasProperty reports whether the node has predicate at all
func (n *Node) HasProperty(predicate string) bool {
	_, ok := n.values[predicate]
	return ok
}

// HasValue reports whether predicate has an object equal to value
func (n *Node) HasValue(predicate string, value Value, eq Equality) bool {
	for _, v := range n.values[predicate] {
		if eq(v, value) {
			return true
		}
	}
	return false
}

// Graph is a read-only sequence of subject nodes.
// Implementations backed by storage may fail to produce their subjects.
type Graph interface {
	Subjects() ([]*Node, error)
}

// MemoryGraph is a Graph held entirely in memory
type MemoryGraph []*Node

// Subjects implements Graph
func (g MemoryGraph) Subjects() ([]*Node, error) {
	return g, nil
}

// Subject returns the first node whose identifier equals id under eq
func (g MemoryGraph) Subject(id string, eq Equality) *Node {
	return FindSubject(g, NewRef(id), eq)
}

// FindSubject returns the first node whose reference equals ref under eq
func FindSubject(nodes []*Node, ref Value, eq Equality) *Node {
	for _, n := range nodes {
		if eq(n.Ref(), ref) {
			return n
		}
	}
	return nil
}
