// Package depgraph keeps a bidirectional index of dependencies between named cells.
//
// An edge (dependee, dependent) means the dependent's value requires the
// dependee's value. Both directions are stored so that either side can be
// queried in constant time.
package depgraph

import "sort"

type set map[string]struct{}

// Graph is a many-to-many set of dependency edges between names.
// The zero value is not usable; create one with New.
type Graph struct {
	dependents map[string]set // dependee → names that depend on it
	dependees  map[string]set // dependent → names it depends on
	size       int
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[string]set),
		dependees:  make(map[string]set),
	}
}

// Size returns the number of distinct edges.
func (g *Graph) Size() int {
	return g.size
}

// DependeeCount returns how many names the given name depends on.
func (g *Graph) DependeeCount(name string) int {
	return len(g.dependees[name])
}

// HasDependents reports whether any name depends on name.
func (g *Graph) HasDependents(name string) bool {
	_, ok := g.dependents[name]
	return ok
}

// HasDependees reports whether name depends on any other name.
func (g *Graph) HasDependees(name string) bool {
	_, ok := g.dependees[name]
	return ok
}

// Dependents returns a sorted snapshot of the names that depend on name.
// The returned slice is owned by the caller.
func (g *Graph) Dependents(name string) []string {
	return snapshot(g.dependents[name])
}

// Dependees returns a sorted snapshot of the names that name depends on.
// The returned slice is owned by the caller.
func (g *Graph) Dependees(name string) []string {
	return snapshot(g.dependees[name])
}

// Add inserts the edge (dependee, dependent). Adding an existing edge is a no-op.
func (g *Graph) Add(dependee, dependent string) {
	if _, ok := g.dependents[dependee][dependent]; ok {
		return
	}
	link(g.dependents, dependee, dependent)
	link(g.dependees, dependent, dependee)
	g.size++
}

// Remove deletes the edge (dependee, dependent). Removing a missing edge is a no-op.
func (g *Graph) Remove(dependee, dependent string) {
	if _, ok := g.dependents[dependee][dependent]; !ok {
		return
	}
	unlink(g.dependents, dependee, dependent)
	unlink(g.dependees, dependent, dependee)
	g.size--
}

// ReplaceDependents removes every edge (dependee, *) and then adds
// (dependee, t) for each t in newDependents.
func (g *Graph) ReplaceDependents(dependee string, newDependents []string) {
	for _, old := range g.Dependents(dependee) {
		g.Remove(dependee, old)
	}
	for _, t := range newDependents {
		g.Add(dependee, t)
	}
}

// ReplaceDependees removes every edge (*, dependent) and then adds
// (s, dependent) for each s in newDependees.
func (g *Graph) ReplaceDependees(dependent string, newDependees []string) {
	for _, old := range g.Dependees(dependent) {
		g.Remove(old, dependent)
	}
	for _, s := range newDependees {
		g.Add(s, dependent)
	}
}

func link(m map[string]set, from, to string) {
	s, ok := m[from]
	if !ok {
		s = make(set)
		m[from] = s
	}
	s[to] = struct{}{}
}

// unlink drops the entry for from once its set is empty, so presence in the
// map always means at least one edge.
func unlink(m map[string]set, from, to string) {
	s := m[from]
	delete(s, to)
	if len(s) == 0 {
		delete(m, from)
	}
}

func snapshot(s set) []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
