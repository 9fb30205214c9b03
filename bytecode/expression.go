package bytecode

import "sort"

// Expression is the immutable, compiled form of one note property: a
// byte buffer of opcodes (spec calls it BinaryExpression), the logical
// length of that buffer in use, the source text it was compiled from
// (kept for round-trip display; empty if lost), and the reference
// metadata the compiler recorded while emitting it.
//
// Code may have spare capacity beyond Used — growable-buffer builders
// naturally over-allocate — but Used is always the authoritative
// length; readers must never look past Code[:Used].
type Expression struct {
	Code           []byte
	Used           int
	Source         string
	Refs           map[NoteID]struct{}
	ReferencesBase bool
}

// Bytes returns the logical instruction stream.
func (e *Expression) Bytes() []byte {
	if e == nil {
		return nil
	}
	return e.Code[:e.Used]
}

// Clone returns an independent deep copy, so compiled expressions
// handed out by a source-text cache can never be mutated by one caller
// and observed by another.
func (e *Expression) Clone() *Expression {
	if e == nil {
		return nil
	}
	code := make([]byte, e.Used)
	copy(code, e.Code[:e.Used])
	refs := make(map[NoteID]struct{}, len(e.Refs))
	for id := range e.Refs {
		refs[id] = struct{}{}
	}
	return &Expression{
		Code:           code,
		Used:           e.Used,
		Source:         e.Source,
		Refs:           refs,
		ReferencesBase: e.ReferencesBase,
	}
}

// ReferencedNoteIDs returns the explicit dependency set as a slice,
// sorted ascending, for deterministic iteration by the graph and
// incremental evaluator.
func (e *Expression) ReferencedNoteIDs() []NoteID {
	if e == nil {
		return nil
	}
	ids := make([]NoteID, 0, len(e.Refs))
	for id := range e.Refs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
