package graph

import (
	"fmt"

	"riskcast/internal/domain"
)

// Edge is a typed dependency constraint between two nodes, referenced by
// arena index.
type Edge struct {
	From int
	To   int
	Type domain.DependencyType
	Lag  float64
}

// Node is one work item in the arena, with adjacency lists of indices.
type Node struct {
	Index int
	Item  *domain.WorkItem
	// In holds edges arriving from predecessors, Out edges leaving to dependents.
	In  []Edge
	Out []Edge
}

// Graph is the derived, in-memory DAG over work items for one run. Nodes are
// stored in input order; Order is a topological ordering restricted to
// non-completed items. Completed items are fixed points with known finish
// dates, excluded from both the ordering and the acyclicity requirement.
type Graph struct {
	Nodes []Node
	Order []int
	index map[string]int
}

// DFS colors for cycle detection.
const (
	white = iota
	gray
	black
)

// Build validates and indexes the portfolio's work items into a directed
// graph. A cycle among non-completed items fails with
// *domain.CircularDependencyError before any simulation can start.
func Build(p *domain.Portfolio) (*Graph, error) {
	g := &Graph{
		Nodes: make([]Node, len(p.Items)),
		index: make(map[string]int, len(p.Items)),
	}

	// First pass: arena nodes in input order.
	for i := range p.Items {
		item := &p.Items[i]
		if _, dup := g.index[item.ID]; dup {
			return nil, &domain.ValidationError{EntityKind: "work_item", EntityID: item.ID, Message: "duplicate id"}
		}
		g.Nodes[i] = Node{Index: i, Item: item}
		g.index[item.ID] = i
	}

	// Second pass: forward and reverse edges, validating endpoints.
	for i := range p.Items {
		for _, dep := range p.Items[i].DependsOn {
			from, ok := g.index[dep.OnID]
			if !ok {
				return nil, &domain.ValidationError{EntityKind: "work_item", EntityID: p.Items[i].ID,
					Message: fmt.Sprintf("depends on unknown item %q", dep.OnID)}
			}
			e := Edge{From: from, To: i, Type: dep.Type, Lag: dep.LagDays}
			g.Nodes[i].In = append(g.Nodes[i].In, e)
			g.Nodes[from].Out = append(g.Nodes[from].Out, e)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &domain.CircularDependencyError{Cycle: cycle}
	}

	g.Order = g.topoOrder()
	return g, nil
}

// NodeByID returns the node for a work item id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.Nodes[i], true
}

// active reports whether a node participates in ordering and sampling.
func (g *Graph) active(i int) bool {
	return !g.Nodes[i].Item.Completed()
}

// findCycle runs DFS with color marking over the non-completed subgraph and
// returns the first cycle found as an ordered id list with the entry point
// repeated at the end, or nil if the subgraph is acyclic. Nodes are visited
// in input order so the reported cycle is deterministic.
func (g *Graph) findCycle() []string {
	colors := make([]int, len(g.Nodes))
	var stack []int

	var visit func(i int) []string
	visit = func(i int) []string {
		colors[i] = gray
		stack = append(stack, i)

		for _, e := range g.Nodes[i].Out {
			if !g.active(e.To) {
				continue
			}
			switch colors[e.To] {
			case gray:
				// Back edge: slice the current path from the repeated node.
				start := 0
				for k, n := range stack {
					if n == e.To {
						start = k
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start+1)
				for _, n := range stack[start:] {
					cycle = append(cycle, g.Nodes[n].Item.ID)
				}
				return append(cycle, g.Nodes[e.To].Item.ID)
			case white:
				if c := visit(e.To); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[i] = black
		return nil
	}

	for i := range g.Nodes {
		if g.active(i) && colors[i] == white {
			if c := visit(i); c != nil {
				return c
			}
		}
	}
	return nil
}

// topoOrder returns a Kahn ordering of the non-completed subgraph. The ready
// queue is seeded and served in input order, which makes the ordering, and
// with it every downstream sampling sequence, deterministic for identical
// input.
func (g *Graph) topoOrder() []int {
	indegree := make([]int, len(g.Nodes))
	for i := range g.Nodes {
		if !g.active(i) {
			continue
		}
		for _, e := range g.Nodes[i].In {
			if g.active(e.From) {
				indegree[i]++
			}
		}
	}

	var queue []int
	for i := range g.Nodes {
		if g.active(i) && indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(queue))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, e := range g.Nodes[n].Out {
			if !g.active(e.To) {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}
	return order
}

// Dependents returns the transitive downstream item ids of the given item in
// discovery order. Used to size the blast radius of a blockage.
func (g *Graph) Dependents(id string) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := make([]bool, len(g.Nodes))
	seen[start] = true
	var out []string
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range g.Nodes[n].Out {
			if seen[e.To] {
				continue
			}
			seen[e.To] = true
			out = append(out, g.Nodes[e.To].Item.ID)
			queue = append(queue, e.To)
		}
	}
	return out
}

// MilestoneMembers groups node indices by milestone id, in input order.
func (g *Graph) MilestoneMembers() map[string][]int {
	members := make(map[string][]int)
	for i := range g.Nodes {
		if mid := g.Nodes[i].Item.MilestoneID; mid != "" {
			members[mid] = append(members[mid], i)
		}
	}
	return members
}
