package incremental

import (
	"testing"

	"noteforge/bytecode"
	"noteforge/compile"
	"noteforge/eval"
	"noteforge/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal ExpressionSource backed by compiled source
// text per (note, property), used to exercise the driver without
// depending on the module façade.
type fakeSource struct {
	exprs   map[bytecode.NoteID]map[bytecode.Var]*bytecode.Expression
	markers map[bytecode.NoteID]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		exprs:   make(map[bytecode.NoteID]map[bytecode.Var]*bytecode.Expression),
		markers: make(map[bytecode.NoteID]bool),
	}
}

func (f *fakeSource) set(t *testing.T, id bytecode.NoteID, v bytecode.Var, source string) *bytecode.Expression {
	expr, err := compile.Compile(source)
	require.NoError(t, err)
	if f.exprs[id] == nil {
		f.exprs[id] = make(map[bytecode.Var]*bytecode.Expression)
	}
	f.exprs[id][v] = expr
	return expr
}

func (f *fakeSource) Expression(id bytecode.NoteID, v bytecode.Var) *bytecode.Expression {
	return f.exprs[id][v]
}

func (f *fakeSource) IsMeasureMarker(id bytecode.NoteID) bool { return f.markers[id] }

func newBaseGraph(t *testing.T, src *fakeSource) *graph.Graph {
	g := graph.New()
	src.set(t, bytecode.BaseNoteID, bytecode.VarFrequency, "440")
	src.set(t, bytecode.BaseNoteID, bytecode.VarStartTime, "0")
	src.set(t, bytecode.BaseNoteID, bytecode.VarTempo, "60")
	src.set(t, bytecode.BaseNoteID, bytecode.VarBeatsPerMeasure, "4")
	g.AddNote(bytecode.BaseNoteID, nil, false)
	return g
}

func TestEvaluateOrdersDependenciesBeforeDependents(t *testing.T) {
	src := newFakeSource()
	g := newBaseGraph(t, src)

	freqExpr := src.set(t, 1, bytecode.VarFrequency, "base.f * (3/2)")
	startExpr := src.set(t, 1, bytecode.VarStartTime, "base.t")
	g.AddNote(1, freqExpr.ReferencedNoteIDs(), freqExpr.ReferencesBase || startExpr.ReferencesBase)

	cache := eval.NewCache()
	d := NewDriver(g, cache)
	d.InvalidateAll([]bytecode.NoteID{bytecode.BaseNoteID, 1})
	d.Evaluate(src)

	note, ok := cache.Get(1)
	require.True(t, ok)
	freq, _ := note.Get(bytecode.VarFrequency)
	assert.Equal(t, "660", freq.Rational().String())
}

func TestEvaluateIdempotentSecondCallDoesNoWork(t *testing.T) {
	src := newFakeSource()
	g := newBaseGraph(t, src)

	cache := eval.NewCache()
	d := NewDriver(g, cache)
	d.InvalidateAll([]bytecode.NoteID{bytecode.BaseNoteID})
	d.Evaluate(src)

	assert.Equal(t, 0, d.DirtyLen())
	d.Evaluate(src) // no-op: dirty set is empty
	assert.Equal(t, 0, d.DirtyLen())
}

func TestEvaluateSequentialChainPropagatesDurationChange(t *testing.T) {
	src := newFakeSource()
	g := newBaseGraph(t, src)

	n1freq := src.set(t, 1, bytecode.VarFrequency, "base.f * (9/8)")
	n1start := src.set(t, 1, bytecode.VarStartTime, "base.t")
	n1dur := src.set(t, 1, bytecode.VarDuration, "1")
	g.AddNote(1, nil, true)
	_ = n1freq
	_ = n1start
	_ = n1dur

	n2freq := src.set(t, 2, bytecode.VarFrequency, "[1].f * (10/9)")
	n2start := src.set(t, 2, bytecode.VarStartTime, "[1].t + [1].d")
	n2dur := src.set(t, 2, bytecode.VarDuration, "1")
	deps := append(append([]bytecode.NoteID{}, n2freq.ReferencedNoteIDs()...), n2start.ReferencedNoteIDs()...)
	g.AddNote(2, deps, n2freq.ReferencesBase || n2start.ReferencesBase || n2dur.ReferencesBase)

	cache := eval.NewCache()
	d := NewDriver(g, cache)
	d.InvalidateAll([]bytecode.NoteID{bytecode.BaseNoteID, 1, 2})
	d.Evaluate(src)

	n2, _ := cache.Get(2)
	freq, _ := n2.Get(bytecode.VarFrequency)
	start, _ := n2.Get(bytecode.VarStartTime)
	assert.Equal(t, "550", freq.Rational().String())
	assert.Equal(t, "1", start.Rational().String())

	// Now change note 1's duration to 2 and invalidate its dependents.
	src.set(t, 1, bytecode.VarDuration, "2")
	d.Invalidate(1)
	d.Evaluate(src)

	n2, _ = cache.Get(2)
	start, _ = n2.Get(bytecode.VarStartTime)
	assert.Equal(t, "2", start.Rational().String())
}

func TestEvaluateMeasureMarkerDerivesMeasureLength(t *testing.T) {
	src := newFakeSource()
	g := graph.New()
	src.set(t, bytecode.BaseNoteID, bytecode.VarFrequency, "440")
	src.set(t, bytecode.BaseNoteID, bytecode.VarStartTime, "0")
	src.set(t, bytecode.BaseNoteID, bytecode.VarTempo, "120")
	src.set(t, bytecode.BaseNoteID, bytecode.VarBeatsPerMeasure, "3")
	src.markers[bytecode.BaseNoteID] = true
	g.AddNote(bytecode.BaseNoteID, nil, false)

	cache := eval.NewCache()
	d := NewDriver(g, cache)
	d.InvalidateAll([]bytecode.NoteID{bytecode.BaseNoteID})
	d.Evaluate(src)

	base, ok := cache.Get(bytecode.BaseNoteID)
	require.True(t, ok)
	ml, _ := base.Get(bytecode.VarMeasureLength)
	assert.Equal(t, "3/2", ml.Rational().String())
}

func TestEvaluateFallsBackToAscendingOrderOnCycle(t *testing.T) {
	src := newFakeSource()
	g := graph.New()
	src.set(t, 1, bytecode.VarFrequency, "[2].f")
	src.set(t, 2, bytecode.VarFrequency, "[1].f")
	g.AddNote(1, []bytecode.NoteID{2}, false)
	g.AddNote(2, []bytecode.NoteID{1}, false)

	cache := eval.NewCache()
	d := NewDriver(g, cache)
	d.InvalidateAll([]bytecode.NoteID{1, 2})
	assert.NotPanics(t, func() { d.Evaluate(src) })

	_, ok1 := cache.Get(1)
	_, ok2 := cache.Get(2)
	assert.True(t, ok1)
	assert.True(t, ok2)
}
