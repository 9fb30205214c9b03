package module

import "noteforge/bytecode"

// NoteID is the façade's public alias for bytecode.NoteID (spec §3:
// "identified by an unsigned integer, 16-bit domain").
type NoteID = bytecode.NoteID

// BaseNoteID is the reserved id of the module's BaseNote.
const BaseNoteID = bytecode.BaseNoteID

// Note holds up to six compiled property expressions plus the opaque,
// non-expression display attributes spec §3 names. A Note with a
// startTime expression and neither duration nor frequency is a
// *measure marker*.
type Note struct {
	ID         NoteID
	Exprs      [bytecode.NumVars]*bytecode.Expression
	Color      string
	Instrument string
}

// Expression returns the compiled expression for v, or nil if that
// property was never assigned on this note.
func (n *Note) Expression(v bytecode.Var) *bytecode.Expression {
	return n.Exprs[v]
}

// IsMeasureMarker reports whether n has a startTime expression but
// neither duration nor frequency (spec §3).
func (n *Note) IsMeasureMarker() bool {
	return n.Exprs[bytecode.VarStartTime] != nil &&
		n.Exprs[bytecode.VarDuration] == nil &&
		n.Exprs[bytecode.VarFrequency] == nil
}

// clone returns a deep copy whose expressions are independent clones,
// so a caller holding a Note returned from the façade can never
// observe or corrupt the module's own copy.
func (n *Note) clone() *Note {
	out := &Note{ID: n.ID, Color: n.Color, Instrument: n.Instrument}
	for i, e := range n.Exprs {
		out.Exprs[i] = e.Clone()
	}
	return out
}

// deps returns the union of every assigned expression's referenced
// note ids and whether any of them reference BaseNote.
func (n *Note) deps() ([]NoteID, bool) {
	seen := make(map[NoteID]struct{})
	referencesBase := false
	for _, e := range n.Exprs {
		if e == nil {
			continue
		}
		for _, id := range e.ReferencedNoteIDs() {
			seen[id] = struct{}{}
		}
		if e.ReferencesBase {
			referencesBase = true
		}
	}
	ids := make([]NoteID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, referencesBase
}
