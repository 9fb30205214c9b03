package graph

import (
	"sort"

	"noteforge/bytecode"
)

// Cycle is one detected cycle, listed in traversal order starting and
// ending at the same note id (the repeated id is omitted; len(Nodes)
// is the cycle's length).
type Cycle struct {
	Nodes []bytecode.NoteID
}

// DetectCycles runs DFS with a recursion-stack set over every note,
// reporting each distinct cycle found as its node list — not merely a
// boolean — so callers such as a validation report can name the
// offending notes (spec §4.5; payload shape is this repo's own
// addition since spec.md only names the operation).
func (g *Graph) DetectCycles() []Cycle {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[bytecode.NoteID]int)
	var stack []bytecode.NoteID
	var cycles []Cycle

	var ids []bytecode.NoteID
	for id := range g.forward {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var visit func(id bytecode.NoteID)
	visit = func(id bytecode.NoteID) {
		color[id] = gray
		stack = append(stack, id)

		for _, next := range g.Dependencies(id) {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Found a back edge into the current recursion stack:
				// the cycle is the stack slice from next's position
				// onward.
				for i, n := range stack {
					if n == next {
						cycle := make([]bytecode.NoteID, len(stack)-i)
						copy(cycle, stack[i:])
						cycles = append(cycles, Cycle{Nodes: cycle})
						break
					}
				}
			case black:
				// already fully explored, no new cycle through here.
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

