// Package incremental implements the topologically-ordered dirty-set
// re-evaluator: given a set of notes needing re-evaluation and the
// dependency graph, it produces the deterministic per-note order the
// stack evaluator must run in, then drives the per-note evaluation
// steps of spec §4.6.
package incremental

import (
	"sort"

	"noteforge/bytecode"
	"noteforge/eval"
	"noteforge/graph"
	"noteforge/rational"

	"github.com/golang/glog"
)

// ExpressionSource supplies the compiled expression (if any) for one
// note's property, letting the driver stay agnostic of how the
// façade stores notes.
type ExpressionSource interface {
	Expression(id bytecode.NoteID, v bytecode.Var) *bytecode.Expression
	// IsMeasureMarker reports whether id has only a startTime
	// expression (or is BaseNote itself), the condition under which a
	// missing measureLength is derived rather than defaulted (spec
	// §4.4 step 4).
	IsMeasureMarker(id bytecode.NoteID) bool
}

// Driver runs incremental batches over a Graph, an eval.Cache, and an
// eval.Evaluator, tracking the current dirty set between calls.
type Driver struct {
	g      *graph.Graph
	cache  *eval.Cache
	pool   *eval.Pool
	dirty  map[bytecode.NoteID]struct{}
	Strict bool // mirrors module.Strict; routes DIV through the checked path (spec §9).
}

func NewDriver(g *graph.Graph, cache *eval.Cache) *Driver {
	return &Driver{
		g:     g,
		cache: cache,
		pool:  eval.NewPool(),
		dirty: make(map[bytecode.NoteID]struct{}),
	}
}

// Invalidate adds id and every transitive dependent to the dirty set.
// For BaseNote this includes every base-referencing note and their
// transitive dependents, since base references carry no graph edge.
func (d *Driver) Invalidate(id bytecode.NoteID) {
	d.dirty[id] = struct{}{}
	for _, dep := range d.g.AllDependents(id) {
		d.dirty[dep] = struct{}{}
	}
	if id == bytecode.BaseNoteID {
		for _, b := range d.g.BaseNoteDependents() {
			d.dirty[b] = struct{}{}
			for _, dep := range d.g.AllDependents(b) {
				d.dirty[dep] = struct{}{}
			}
		}
	}
}

// InvalidateAll clears the cache and marks every known note dirty.
// allNotes is supplied by the caller since the graph alone does not
// track notes with no edges at all.
func (d *Driver) InvalidateAll(allNotes []bytecode.NoteID) {
	d.cache.Reset()
	for _, id := range allNotes {
		d.dirty[id] = struct{}{}
	}
}

// Dirty reports whether id is currently marked for re-evaluation.
func (d *Driver) Dirty(id bytecode.NoteID) bool {
	_, ok := d.dirty[id]
	return ok
}

// DirtyLen reports the size of the current dirty set, mainly for
// idempotence tests (spec §8 property 5: a second evaluate() with no
// intervening mutation should do zero work).
func (d *Driver) DirtyLen() int { return len(d.dirty) }

// Evaluate runs one incremental batch: it topologically orders the
// current dirty set, evaluates each note's properties in the order
// spec §4.6 describes, caches the results, and clears the dirty set.
// src supplies each note's compiled expressions. evaluate() never
// returns an error to the caller (spec §7): structural problems
// (cycles) degrade to a logged warning and a best-effort ascending-id
// fallback order rather than blocking the batch.
func (d *Driver) Evaluate(src ExpressionSource) *eval.Cache {
	if len(d.dirty) == 0 {
		return d.cache
	}

	order := d.topologicalOrder()
	var evaluator *eval.Evaluator
	if d.Strict {
		evaluator = eval.NewStrictEvaluator(d.pool, d.cache)
	} else {
		evaluator = eval.NewEvaluator(d.pool, d.cache)
	}
	d.pool.Reset()

	for _, id := range order {
		d.evaluateNote(evaluator, src, id)
	}

	d.dirty = make(map[bytecode.NoteID]struct{})
	return d.cache
}

// evaluateNote runs the five-step per-note procedure of spec §4.6:
// tempo/beatsPerMeasure/frequency, then measureLength, then
// startTime/duration, deriving measureLength when it was left empty
// on a measure marker or BaseNote, then committing the corruption
// mask and cached values.
func (d *Driver) evaluateNote(evaluator *eval.Evaluator, src ExpressionSource, id bytecode.NoteID) {
	note := eval.EvaluatedNote{}

	independent := []bytecode.Var{bytecode.VarTempo, bytecode.VarBeatsPerMeasure, bytecode.VarFrequency}
	for _, v := range independent {
		d.evalProperty(evaluator, src, id, v, &note)
	}

	hadMeasureLength := src.Expression(id, bytecode.VarMeasureLength) != nil
	d.evalProperty(evaluator, src, id, bytecode.VarMeasureLength, &note)

	timing := []bytecode.Var{bytecode.VarStartTime, bytecode.VarDuration}
	for _, v := range timing {
		d.evalProperty(evaluator, src, id, v, &note)
	}

	if !hadMeasureLength && src.IsMeasureMarker(id) {
		bpm, _ := note.Get(bytecode.VarBeatsPerMeasure)
		tempo, _ := note.Get(bytecode.VarTempo)
		note.Values[bytecode.VarMeasureLength] = eval.DeriveMeasureLength(bpm, tempo)
		note.Have[bytecode.VarMeasureLength] = true
	}

	d.cache.Set(id, note)
}

func (d *Driver) evalProperty(evaluator *eval.Evaluator, src ExpressionSource, id bytecode.NoteID, v bytecode.Var, note *eval.EvaluatedNote) {
	expr := src.Expression(id, v)
	if expr == nil {
		return
	}
	val, corruption, _ := evaluator.Execute(expr, v)
	note.Values[v] = val
	note.Have[v] = true
	note.Corruption |= corruption
}

// topologicalOrder implements Kahn's algorithm over the induced
// subgraph on the dirty set (spec §4.6): in-degree counts only
// dependencies that are themselves dirty, plus one for a
// base-referencing note when BaseNote is dirty, seeding and
// tie-breaking throughout by ascending id for determinism.
func (d *Driver) topologicalOrder() []bytecode.NoteID {
	dirtyIDs := make([]bytecode.NoteID, 0, len(d.dirty))
	for id := range d.dirty {
		dirtyIDs = append(dirtyIDs, id)
	}
	sort.Slice(dirtyIDs, func(i, j int) bool { return dirtyIDs[i] < dirtyIDs[j] })

	inDegree := make(map[bytecode.NoteID]int, len(dirtyIDs))
	baseDirty := d.Dirty(bytecode.BaseNoteID)
	baseDeps := make(map[bytecode.NoteID]struct{})
	for _, id := range d.g.BaseNoteDependents() {
		baseDeps[id] = struct{}{}
	}

	for _, id := range dirtyIDs {
		n := 0
		for _, dep := range d.g.Dependencies(id) {
			if d.Dirty(dep) {
				n++
			}
		}
		if baseDirty {
			if _, refsBase := baseDeps[id]; refsBase && id != bytecode.BaseNoteID {
				n++
			}
		}
		inDegree[id] = n
	}

	var queue []bytecode.NoteID
	for _, id := range dirtyIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	var order []bytecode.NoteID
	emitted := make(map[bytecode.NoteID]struct{})
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
		id := queue[0]
		queue = queue[1:]
		if _, done := emitted[id]; done {
			continue
		}
		emitted[id] = struct{}{}
		order = append(order, id)

		for _, dep := range d.g.Dependents(id) {
			if !d.Dirty(dep) {
				continue
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		if id == bytecode.BaseNoteID {
			for depID := range baseDeps {
				if !d.Dirty(depID) {
					continue
				}
				inDegree[depID]--
				if inDegree[depID] == 0 {
					queue = append(queue, depID)
				}
			}
		}
	}

	if len(order) < len(dirtyIDs) {
		var remaining []bytecode.NoteID
		for _, id := range dirtyIDs {
			if _, done := emitted[id]; !done {
				remaining = append(remaining, id)
			}
		}
		sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
		glog.Warningf("incremental: dependency cycle detected among dirty notes %v; evaluating in ascending id order", remaining)
		order = append(order, remaining...)
	}

	return order
}
