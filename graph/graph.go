// Package graph maintains the forward and inverted note-dependency
// adjacency the incremental evaluator walks to determine evaluation
// order (spec §4.5).
package graph

import (
	"sort"

	"noteforge/bytecode"
)

// Graph tracks, per note, which other notes it depends on (forward)
// and which notes depend on it (inverse), plus the set of notes whose
// expressions reference BaseNote directly.
type Graph struct {
	forward  map[bytecode.NoteID]map[bytecode.NoteID]struct{}
	inverse  map[bytecode.NoteID]map[bytecode.NoteID]struct{}
	baseDeps map[bytecode.NoteID]struct{}
}

func New() *Graph {
	return &Graph{
		forward:  make(map[bytecode.NoteID]map[bytecode.NoteID]struct{}),
		inverse:  make(map[bytecode.NoteID]map[bytecode.NoteID]struct{}),
		baseDeps: make(map[bytecode.NoteID]struct{}),
	}
}

// AddNote replaces id's outgoing edges with deps, updates every
// affected inverse set, and toggles id's base-dependent membership.
// Call this once per expression reassignment; id's previous outgoing
// edges are cleared here, so callers need not remove them first.
func (g *Graph) AddNote(id bytecode.NoteID, deps []bytecode.NoteID, referencesBase bool) {
	g.clearForward(id)

	set := make(map[bytecode.NoteID]struct{}, len(deps))
	for _, d := range deps {
		set[d] = struct{}{}
		if g.inverse[d] == nil {
			g.inverse[d] = make(map[bytecode.NoteID]struct{})
		}
		g.inverse[d][id] = struct{}{}
	}
	g.forward[id] = set

	if referencesBase {
		g.baseDeps[id] = struct{}{}
	} else {
		delete(g.baseDeps, id)
	}
}

// clearForward removes id's current outgoing edges from every
// dependency's inverse set, leaving id's forward entry absent.
func (g *Graph) clearForward(id bytecode.NoteID) {
	for d := range g.forward[id] {
		delete(g.inverse[d], id)
		if len(g.inverse[d]) == 0 {
			delete(g.inverse, d)
		}
	}
	delete(g.forward, id)
}

// RemoveNote deletes id from the graph entirely: its own outgoing
// edges, every inverse entry referencing it, and its base-dependent
// membership. Dependents keep their (now possibly dangling) reference
// to id — rewriting them is the façade's responsibility, not the
// graph's (spec §4.5, "Deletion semantics").
func (g *Graph) RemoveNote(id bytecode.NoteID) {
	g.clearForward(id)
	delete(g.inverse, id)
	delete(g.baseDeps, id)
}

// Dependencies returns id's direct forward neighbors, ascending.
func (g *Graph) Dependencies(id bytecode.NoteID) []bytecode.NoteID {
	return sortedKeys(g.forward[id])
}

// Dependents returns id's direct inverse neighbors, ascending.
func (g *Graph) Dependents(id bytecode.NoteID) []bytecode.NoteID {
	return sortedKeys(g.inverse[id])
}

// AllDependencies returns id's transitive forward closure via BFS,
// ascending, excluding id itself.
func (g *Graph) AllDependencies(id bytecode.NoteID) []bytecode.NoteID {
	return g.bfs(id, g.forward)
}

// AllDependents returns id's transitive inverse closure via BFS,
// ascending, excluding id itself.
func (g *Graph) AllDependents(id bytecode.NoteID) []bytecode.NoteID {
	return g.bfs(id, g.inverse)
}

func (g *Graph) bfs(start bytecode.NoteID, adj map[bytecode.NoteID]map[bytecode.NoteID]struct{}) []bytecode.NoteID {
	visited := map[bytecode.NoteID]struct{}{start: {}}
	queue := []bytecode.NoteID{start}
	var out []bytecode.NoteID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range sortedKeys(adj[cur]) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BaseNoteDependents returns every note whose expressions reference
// BaseNote directly (ascending).
func (g *Graph) BaseNoteDependents() []bytecode.NoteID {
	return sortedKeys(g.baseDeps)
}

// HasPath reports whether dst is reachable from src following forward
// edges, used to pre-check whether adding an edge would close a cycle
// (spec §6, set_expression validation).
func (g *Graph) HasPath(src, dst bytecode.NoteID) bool {
	if src == dst {
		return true
	}
	visited := map[bytecode.NoteID]struct{}{src: {}}
	queue := []bytecode.NoteID{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.forward[cur] {
			if next == dst {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

func sortedKeys(m map[bytecode.NoteID]struct{}) []bytecode.NoteID {
	out := make([]bytecode.NoteID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
