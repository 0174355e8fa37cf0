package flow

import (
	"fmt"
	"strings"

	"github.com/stc-project/stc/pkg/stcerrors"
)

// ProcessFlow is the immutable, compiled DAG over steps and groups. It is
// built once by Builder.Finish and never mutated thereafter; the
// coordinator holds a shared reference to it.
type ProcessFlow struct {
	nodes       map[string]*Node
	declOrder   []string // declaration order, for stable dispatch tie-breaks
	topoOrder   []string // a valid topological order, stable by declOrder
	prereqsOf   map[string][]Edge // keyed by dependent (From)
	dependents  map[string][]Edge // keyed by prerequisite (To)
}

// Steps returns every node name in declaration order.
func (f *ProcessFlow) Steps() []string {
	out := make([]string, len(f.declOrder))
	copy(out, f.declOrder)
	return out
}

// TopoOrder returns a valid topological order of all nodes, ties broken by
// declaration order.
func (f *ProcessFlow) TopoOrder() []string {
	out := make([]string, len(f.topoOrder))
	copy(out, f.topoOrder)
	return out
}

// Node returns the node with the given name, or nil if absent.
func (f *ProcessFlow) Node(name string) *Node {
	return f.nodes[name]
}

// Roots returns nodes with no incoming edges (no prerequisites).
func (f *ProcessFlow) Roots() []string {
	var out []string
	for _, name := range f.declOrder {
		if len(f.prereqsOf[name]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Leaves returns nodes with no outgoing edges (nothing depends on them).
func (f *ProcessFlow) Leaves() []string {
	var out []string
	for _, name := range f.declOrder {
		if len(f.dependents[name]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Prerequisites returns the edges whose dependent is name.
func (f *ProcessFlow) Prerequisites(name string) []Edge {
	return append([]Edge(nil), f.prereqsOf[name]...)
}

// Dependents returns the edges whose prerequisite is name.
func (f *ProcessFlow) Dependents(name string) []Edge {
	return append([]Edge(nil), f.dependents[name]...)
}

// Builder incrementally assembles a ProcessFlow, validating structure on
// Finish: unresolved references and cycles are fatal compile errors.
type Builder struct {
	nodes     map[string]*Node
	declOrder []string
	edges     []Edge
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nodes: make(map[string]*Node)}
}

// AddNode registers a node. Duplicate names are a fatal validation error.
func (b *Builder) AddNode(n *Node) error {
	if n == nil || n.Name == "" {
		return stcerrors.NewValidationError("", "node must have a non-empty name", nil)
	}
	if _, exists := b.nodes[n.Name]; exists {
		return stcerrors.NewValidationError(n.Name, fmt.Sprintf("duplicate step or group name %q", n.Name), nil)
	}
	b.nodes[n.Name] = n
	b.declOrder = append(b.declOrder, n.Name)
	return nil
}

// AddEdge records a dependency edge from a dependent node to a prerequisite.
func (b *Builder) AddEdge(from, to string, soft bool) {
	b.edges = append(b.edges, Edge{From: from, To: to, Soft: soft})
}

// Finish validates and freezes the graph, returning an immutable ProcessFlow.
func (b *Builder) Finish() (*ProcessFlow, error) {
	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok {
			return nil, stcerrors.NewValidationError(e.From, fmt.Sprintf("unknown step or group %q", e.From), nil)
		}
		if _, ok := b.nodes[e.To]; !ok {
			return nil, stcerrors.NewValidationError(e.From, fmt.Sprintf("requires unknown step or group %q", e.To), nil)
		}
	}

	prereqsOf := make(map[string][]Edge, len(b.nodes))
	dependents := make(map[string][]Edge, len(b.nodes))
	for _, e := range b.edges {
		prereqsOf[e.From] = append(prereqsOf[e.From], e)
		dependents[e.To] = append(dependents[e.To], e)
	}

	topo, err := topologicalSort(b.declOrder, prereqsOf)
	if err != nil {
		return nil, err
	}

	return &ProcessFlow{
		nodes:      b.nodes,
		declOrder:  append([]string(nil), b.declOrder...),
		topoOrder:  topo,
		prereqsOf:  prereqsOf,
		dependents: dependents,
	}, nil
}

// topologicalSort performs Kahn's algorithm, breaking ties by declaration
// order. If nodes remain unprocessed, it reconstructs one cycle by DFS on
// the residual subgraph for the diagnostic.
func topologicalSort(declOrder []string, prereqsOf map[string][]Edge) ([]string, error) {
	indexOf := make(map[string]int, len(declOrder))
	for i, name := range declOrder {
		indexOf[name] = i
	}

	remaining := make(map[string]map[string]struct{}, len(declOrder))
	for _, name := range declOrder {
		deps := make(map[string]struct{})
		for _, e := range prereqsOf[name] {
			deps[e.To] = struct{}{}
		}
		remaining[name] = deps
	}

	var order []string
	for len(order) < len(declOrder) {
		var ready []string
		for _, name := range declOrder {
			if _, done := indexSet(order)[name]; done {
				continue
			}
			if len(remaining[name]) == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			return nil, buildCycleError(declOrder, prereqsOf, indexSet(order))
		}
		for _, name := range ready {
			order = append(order, name)
		}
		done := indexSet(order)
		for _, name := range declOrder {
			if _, isDone := done[name]; isDone {
				continue
			}
			for dep := range remaining[name] {
				if _, satisfied := done[dep]; satisfied {
					delete(remaining[name], dep)
				}
			}
		}
	}
	_ = indexOf
	return order, nil
}

func indexSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// buildCycleError reconstructs a single cycle among the unresolved nodes
// via DFS, for a readable diagnostic.
func buildCycleError(declOrder []string, prereqsOf map[string][]Edge, done map[string]struct{}) error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)
		for _, e := range prereqsOf[node] {
			dep := e.To
			if _, isDone := done[dep]; isDone {
				continue
			}
			if !visited[dep] {
				if visiting[dep] {
					idx := indexOfString(stack, dep)
					if idx >= 0 {
						cycle = append([]string(nil), stack[idx:]...)
						cycle = append(cycle, dep)
					}
					return true
				}
				if dfs(dep) {
					return true
				}
			}
		}
		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	for _, name := range declOrder {
		if _, isDone := done[name]; isDone {
			continue
		}
		if visited[name] {
			continue
		}
		if dfs(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return stcerrors.NewValidationError("", "dependency cycle detected", nil)
	}
	return stcerrors.NewValidationError("", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
}

func indexOfString(s []string, target string) int {
	for i, v := range s {
		if v == target {
			return i
		}
	}
	return -1
}
