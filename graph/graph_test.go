package graph

import (
	"testing"

	"noteforge/bytecode"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestAddNoteRecordsForwardAndInverseEdges(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2, 3}, false)

	assert.Equal(t, []bytecode.NoteID{2, 3}, g.Dependencies(1))
	assert.Equal(t, []bytecode.NoteID{1}, g.Dependents(2))
	assert.Equal(t, []bytecode.NoteID{1}, g.Dependents(3))
}

func TestAddNoteReplacesPriorEdges(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(1, []bytecode.NoteID{3}, false)

	assert.Equal(t, []bytecode.NoteID{3}, g.Dependencies(1))
	assert.Empty(t, g.Dependents(2))
}

func TestAddNoteTracksBaseDependents(t *testing.T) {
	g := New()
	g.AddNote(1, nil, true)
	g.AddNote(2, nil, false)

	assert.Equal(t, []bytecode.NoteID{1}, g.BaseNoteDependents())
}

func TestRemoveNoteSweepsAllEdges(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, true)
	g.AddNote(3, []bytecode.NoteID{1}, false)

	g.RemoveNote(1)

	assert.Empty(t, g.Dependencies(1))
	assert.Empty(t, g.Dependents(2))
	assert.Empty(t, g.BaseNoteDependents())
	// 3 still forward-references 1 (the removed note); the graph does
	// not rewrite dependents, per spec §4.5.
	assert.Equal(t, []bytecode.NoteID{1}, g.Dependencies(3))
}

func TestAllDependenciesTransitiveClosure(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(2, []bytecode.NoteID{3}, false)
	g.AddNote(3, nil, false)

	assert.Equal(t, []bytecode.NoteID{2, 3}, g.AllDependencies(1))
	assert.Equal(t, []bytecode.NoteID{1, 2}, g.AllDependents(3))
}

func TestHasPathDetectsTransitiveReachability(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(2, []bytecode.NoteID{3}, false)

	assert.True(t, g.HasPath(1, 3))
	assert.False(t, g.HasPath(3, 1))
	assert.True(t, g.HasPath(1, 1))
}

func TestDetectCyclesFindsSimpleCycle(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(2, []bytecode.NoteID{1}, false)

	cycles := g.DetectCycles()
	want := []Cycle{{Nodes: []bytecode.NoteID{1, 2}}}
	if diff := cmp.Diff(want, cycles); diff != "" {
		t.Errorf("DetectCycles() mismatch (-want +got):\n%s", diff)
	}
}

func TestDetectCyclesEmptyOnAcyclicGraph(t *testing.T) {
	g := New()
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(2, nil, false)

	assert.Empty(t, g.DetectCycles())
}
