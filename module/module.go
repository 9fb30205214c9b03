// Package module implements the Module façade of spec §6: note
// storage, expression validation, the dependency graph, and the
// incremental evaluator, wired together behind a thread-confined API.
package module

import (
	"fmt"
	"sort"
	"strconv"

	"noteforge/bytecode"
	"noteforge/compile"
	"noteforge/eval"
	"noteforge/graph"
	"noteforge/incremental"
	"noteforge/rational"

	"github.com/golang/glog"
)

// varByName maps the façade's public property names to their
// bytecode.Var index, the inverse of bytecode.Var.String.
var varByName = map[string]bytecode.Var{
	"startTime":       bytecode.VarStartTime,
	"duration":        bytecode.VarDuration,
	"frequency":       bytecode.VarFrequency,
	"tempo":           bytecode.VarTempo,
	"beatsPerMeasure": bytecode.VarBeatsPerMeasure,
	"measureLength":   bytecode.VarMeasureLength,
}

// BaseOverrides optionally replaces one or more of BaseNote's default
// property sources at construction time (spec §6 new_module).
type BaseOverrides struct {
	Frequency       string
	StartTime       string
	Tempo           string
	BeatsPerMeasure string
	MeasureLength   string
}

// Module owns the note table, id allocator, dependency graph,
// evaluation cache and dirty set (spec §3). All operations are
// thread-confined: callers must not share a Module across goroutines
// without external synchronization (spec §5).
type Module struct {
	Strict bool // spec.md §9 open question: division-by-zero surfacing.

	notes   map[NoteID]*Note
	nextID  NoteID
	graph   *graph.Graph
	driver  *incremental.Driver
	cache   *eval.Cache
	cc      *compile.Cache
	allIDs  []NoteID // cached ascending id list, rebuilt on add/remove
	idsDone bool
}

// New creates a Module with BaseNote installed using the documented
// defaults (440/0/1/60/4), optionally overridden (spec §3, §6).
func New(overrides BaseOverrides) (*Module, error) {
	m := &Module{
		notes: make(map[NoteID]*Note),
		graph: graph.New(),
		cache: eval.NewCache(),
		cc:    compile.NewCache(),
	}
	m.driver = incremental.NewDriver(m.graph, m.cache)

	base := &Note{ID: BaseNoteID}
	m.notes[BaseNoteID] = base
	m.nextID = BaseNoteID + 1

	defaults := map[bytecode.Var]string{
		bytecode.VarFrequency:       "440",
		bytecode.VarStartTime:       "0",
		bytecode.VarDuration:        "1",
		bytecode.VarTempo:           "60",
		bytecode.VarBeatsPerMeasure: "4",
	}
	if overrides.Frequency != "" {
		defaults[bytecode.VarFrequency] = overrides.Frequency
	}
	if overrides.StartTime != "" {
		defaults[bytecode.VarStartTime] = overrides.StartTime
	}
	if overrides.Tempo != "" {
		defaults[bytecode.VarTempo] = overrides.Tempo
	}
	if overrides.BeatsPerMeasure != "" {
		defaults[bytecode.VarBeatsPerMeasure] = overrides.BeatsPerMeasure
	}
	if overrides.MeasureLength != "" {
		defaults[bytecode.VarMeasureLength] = overrides.MeasureLength
	}

	for v, src := range defaults {
		expr, err := m.cc.Get(src)
		if err != nil {
			return nil, fmt.Errorf("module: base note default %s: %w", v, err)
		}
		base.Exprs[v] = expr
	}
	m.registerEdges(base)
	m.invalidateIDs()
	m.driver.InvalidateAll(m.NoteIDs())
	return m, nil
}

// AddNote compiles the given property→source map, allocates a new id,
// registers graph edges, and marks the new note dirty (spec §6
// add_note). expressions keys must be one of the canonical property
// names ("frequency", "startTime", "duration", "tempo",
// "beatsPerMeasure", "measureLength").
func (m *Module) AddNote(expressions map[string]string) (NoteID, error) {
	id := m.nextID
	note := &Note{ID: id}
	for name, src := range expressions {
		v, ok := varByName[name]
		if !ok {
			return 0, &UnknownVariableError{Name: name}
		}
		expr, err := m.cc.Get(src)
		if err != nil {
			return 0, &ParseError{NoteID: id, Prop: name, Err: err}
		}
		note.Exprs[v] = expr
	}
	m.nextID++
	m.notes[id] = note
	m.registerEdges(note)
	m.invalidateIDs()
	m.driver.Invalidate(id)
	return id, nil
}

// RemoveNote deletes id from the note table and the graph. Dependents
// retain their now-stale references; rewriting them is the caller's
// responsibility (spec §6 remove_note).
func (m *Module) RemoveNote(id NoteID) {
	if id == BaseNoteID {
		return
	}
	delete(m.notes, id)
	m.graph.RemoveNote(id)
	m.cache.Delete(id)
	m.invalidateIDs()
}

// SetExpression compiles source, validates it against the rules of
// spec §6, and atomically swaps it in, updating edges and marking the
// note dirty. On any validation failure the module is left unmodified.
func (m *Module) SetExpression(id NoteID, prop string, source string) error {
	note, ok := m.notes[id]
	if !ok {
		return fmt.Errorf("module: note %d does not exist", id)
	}
	v, ok := varByName[prop]
	if !ok {
		return &UnknownVariableError{Name: prop}
	}
	if source == "" {
		return &ParseError{NoteID: id, Prop: prop, Err: fmt.Errorf("empty source")}
	}

	expr, err := m.cc.Get(source)
	if err != nil {
		return &ParseError{NoteID: id, Prop: prop, Err: err}
	}

	if _, selfRef := expr.Refs[id]; selfRef {
		return &SelfReferenceError{NoteID: id, Prop: prop}
	}

	if err := m.checkAcyclic(id, prop, expr); err != nil {
		return err
	}

	note.Exprs[v] = expr
	m.registerEdges(note)
	m.driver.Invalidate(id)
	return nil
}

// checkAcyclic verifies that swapping in expr for some property of id
// would not close a cycle, by checking whether any of expr's new
// references can already reach id (spec §6 validation, §8 property 8).
func (m *Module) checkAcyclic(id NoteID, prop string, expr *bytecode.Expression) error {
	for _, ref := range expr.ReferencedNoteIDs() {
		if ref == id {
			continue // caught separately as a self-reference
		}
		if m.graph.HasPath(ref, id) {
			return &CycleError{NoteID: id, Prop: prop, Via: ref}
		}
	}
	return nil
}

// BatchSetExpression is one item of a batch_set_expressions call.
type BatchSetExpression struct {
	ID     NoteID
	Prop   string
	Source string
}

// BatchSetExpressions validates every item first, then applies them all
// and marks each edited note and its dependents dirty, so the whole
// batch is re-evaluated together by the next Evaluate (spec §6
// batch_set_expressions). On the first validation failure, none of the
// batch's edits are applied.
func (m *Module) BatchSetExpressions(items []BatchSetExpression) error {
	type pending struct {
		note *Note
		v    bytecode.Var
		expr *bytecode.Expression
	}
	var plan []pending
	for _, it := range items {
		note, ok := m.notes[it.ID]
		if !ok {
			return fmt.Errorf("module: note %d does not exist", it.ID)
		}
		v, ok := varByName[it.Prop]
		if !ok {
			return &UnknownVariableError{Name: it.Prop}
		}
		if it.Source == "" {
			return &ParseError{NoteID: it.ID, Prop: it.Prop, Err: fmt.Errorf("empty source")}
		}
		expr, err := m.cc.Get(it.Source)
		if err != nil {
			return &ParseError{NoteID: it.ID, Prop: it.Prop, Err: err}
		}
		if _, selfRef := expr.Refs[it.ID]; selfRef {
			return &SelfReferenceError{NoteID: it.ID, Prop: it.Prop}
		}
		if err := m.checkAcyclic(it.ID, it.Prop, expr); err != nil {
			return err
		}
		plan = append(plan, pending{note: note, v: v, expr: expr})
	}

	for _, p := range plan {
		p.note.Exprs[p.v] = p.expr
		m.registerEdges(p.note)
		m.driver.Invalidate(p.note.ID)
	}
	return nil
}

// MarkDirty marks a single note for re-evaluation.
func (m *Module) MarkDirty(id NoteID) { m.driver.Invalidate(id) }

// MarkDirtyBatch marks several notes for re-evaluation.
func (m *Module) MarkDirtyBatch(ids []NoteID) {
	for _, id := range ids {
		m.driver.Invalidate(id)
	}
}

// InvalidateAll marks every note dirty and clears the cache.
func (m *Module) InvalidateAll() { m.driver.InvalidateAll(m.NoteIDs()) }

// Evaluate runs the incremental driver over the current dirty set and
// returns the resulting cache (spec §6 evaluate). Strict is read fresh
// on every call so toggling it takes effect on the next evaluation
// without requiring a new Module.
func (m *Module) Evaluate() *eval.Cache {
	m.driver.Strict = m.Strict
	return m.driver.Evaluate(m)
}

// Expression implements incremental.ExpressionSource.
func (m *Module) Expression(id NoteID, v bytecode.Var) *bytecode.Expression {
	note, ok := m.notes[id]
	if !ok {
		return nil
	}
	return note.Exprs[v]
}

// IsMeasureMarker implements incremental.ExpressionSource.
func (m *Module) IsMeasureMarker(id NoteID) bool {
	if id == BaseNoteID {
		return true
	}
	note, ok := m.notes[id]
	if !ok {
		return false
	}
	return note.IsMeasureMarker()
}

// GetNoteByID returns a cloned snapshot of note id, or false if absent.
func (m *Module) GetNoteByID(id NoteID) (*Note, bool) {
	note, ok := m.notes[id]
	if !ok {
		return nil, false
	}
	return note.clone(), true
}

// BaseNote returns a cloned snapshot of BaseNote.
func (m *Module) BaseNote() *Note {
	note, _ := m.GetNoteByID(BaseNoteID)
	return note
}

// NotesIter returns every note id in ascending order (spec §6
// notes_iter; deterministic iteration per spec §9).
func (m *Module) NotesIter() []NoteID {
	return m.NoteIDs()
}

// NoteIDs returns every known note id, ascending, memoizing between
// mutations.
func (m *Module) NoteIDs() []NoteID {
	if m.idsDone {
		return m.allIDs
	}
	ids := make([]NoteID, 0, len(m.notes))
	for id := range m.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	m.allIDs = ids
	m.idsDone = true
	return ids
}

func (m *Module) invalidateIDs() { m.idsDone = false }

// registerEdges recomputes id's dependency edges in the graph from its
// current expressions, keeping the graph and the note's reference sets
// in lockstep (spec §3, §8 property 2).
func (m *Module) registerEdges(note *Note) {
	deps, referencesBase := note.deps()
	m.graph.AddNote(note.ID, deps, referencesBase)
}

// FindTempo walks the tempo lookup chain for note (its own cached
// value, then BaseNote's, then the documented default), mirroring the
// FIND_TEMPO opcode's semantics for direct façade callers (spec §6
// find_tempo).
func (m *Module) FindTempo(note NoteID) rational.Value {
	return findChain(m.cache, note, bytecode.VarTempo)
}

// FindMeasureLength walks the beatsPerMeasure/tempo chains for note
// and derives measureLength = beatsPerMeasure * 60 / tempo (spec §6
// find_measure_length).
func (m *Module) FindMeasureLength(note NoteID) rational.Value {
	bpm := findChain(m.cache, note, bytecode.VarBeatsPerMeasure)
	tempo := findChain(m.cache, note, bytecode.VarTempo)
	return eval.DeriveMeasureLength(bpm, tempo)
}

// valueSource renders a Value as source text the compiler can parse
// back: the exact ratio literal for a Rational, a decimal literal
// (rationalized again on the way back in, per spec §9) for anything
// that collapsed to an approximation.
func valueSource(v rational.Value) string {
	if v.IsRational() {
		r := v.Rational()
		if r.IsInteger() {
			return r.String()
		}
		return fmt.Sprintf("(%s/%s)", r.Num().String(), r.Den().String())
	}
	return strconv.FormatFloat(v.ToFloat64(), 'f', -1, 64)
}

func findChain(cache *eval.Cache, note NoteID, v bytecode.Var) rational.Value {
	if n, ok := cache.Get(note); ok {
		if val, has := n.Get(v); has {
			return val
		}
	}
	if note != BaseNoteID {
		if n, ok := cache.Get(BaseNoteID); ok {
			if val, has := n.Get(v); has {
				return val
			}
		}
	}
	return eval.Default(v)
}

// GenerateMeasureMarkers adds count measure-marker notes (startTime
// only, no frequency/duration) spaced by the evaluated measureLength
// chain starting at start (spec §6 generate_measure_markers; mechanics
// are this repo's own concretization — see DESIGN.md).
func (m *Module) GenerateMeasureMarkers(start NoteID, count int) ([]NoteID, error) {
	if count <= 0 {
		return nil, nil
	}
	ml := m.FindMeasureLength(start)
	startVal := findChain(m.cache, start, bytecode.VarStartTime)

	ids := make([]NoteID, 0, count)
	cur := startVal
	for i := 0; i < count; i++ {
		id, err := m.AddNote(map[string]string{"startTime": valueSource(cur)})
		if err != nil {
			return ids, fmt.Errorf("module: generate measure markers: %w", err)
		}
		ids = append(ids, id)
		cur = cur.Add(ml)
	}
	glog.V(1).Infof("module: generated %d measure markers starting at note %d", count, start)
	return ids, nil
}

// DetectCycles reports every cycle currently present in the dependency
// graph (spec §8 property 8 is enforced proactively by set_expression;
// this exposes graph.DetectCycles for external validation tooling such
// as cmd/notectl's validate subcommand).
func (m *Module) DetectCycles() []graph.Cycle {
	return m.graph.DetectCycles()
}

// DanglingReference names one expression whose reference set includes
// a note id that no longer exists in the module.
type DanglingReference struct {
	NoteID NoteID
	Prop   string
	Target NoteID
}

// ReferenceClosureViolations checks spec §8 property 1 — every noteId
// referenced by an expression exists in the module — returning every
// violation found.
func (m *Module) ReferenceClosureViolations() []DanglingReference {
	var out []DanglingReference
	for _, id := range m.NoteIDs() {
		note := m.notes[id]
		for v, expr := range note.Exprs {
			if expr == nil {
				continue
			}
			for _, ref := range expr.ReferencedNoteIDs() {
				if _, exists := m.notes[ref]; !exists {
					out = append(out, DanglingReference{NoteID: id, Prop: bytecode.Var(v).String(), Target: ref})
				}
			}
		}
	}
	return out
}
