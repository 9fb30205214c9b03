package eval

import (
	"noteforge/bytecode"
	"noteforge/rational"
)

// CorruptionMask is a six-bit mask, one bit per property, set when
// that property's evaluation involved a POW whose exact-power test
// could not certify a rational result (spec §4.4; the bit is a sound
// over-approximation — see ScanForPow's doc comment).
type CorruptionMask uint8

const (
	CorruptStartTime CorruptionMask = 1 << iota
	CorruptDuration
	CorruptFrequency
	CorruptTempo
	CorruptBeatsPerMeasure
	CorruptMeasureLength
)

// bitForVar maps a bytecode.Var to its CorruptionMask bit.
func bitForVar(v bytecode.Var) CorruptionMask {
	switch v {
	case bytecode.VarStartTime:
		return CorruptStartTime
	case bytecode.VarDuration:
		return CorruptDuration
	case bytecode.VarFrequency:
		return CorruptFrequency
	case bytecode.VarTempo:
		return CorruptTempo
	case bytecode.VarBeatsPerMeasure:
		return CorruptBeatsPerMeasure
	case bytecode.VarMeasureLength:
		return CorruptMeasureLength
	default:
		return 0
	}
}

// Default returns the documented per-variable fallback value used
// when a reference is missing from the cache (spec §4.4).
func Default(v bytecode.Var) rational.Value {
	switch v {
	case bytecode.VarStartTime:
		return rational.FromRational(rational.New(0, 1))
	case bytecode.VarDuration:
		return rational.FromRational(rational.New(1, 1))
	case bytecode.VarFrequency:
		return rational.FromRational(rational.New(440, 1))
	case bytecode.VarTempo:
		return rational.FromRational(rational.New(60, 1))
	case bytecode.VarBeatsPerMeasure:
		return rational.FromRational(rational.New(4, 1))
	case bytecode.VarMeasureLength:
		return rational.FromRational(rational.New(4, 1))
	default:
		return rational.FromRational(rational.Zero())
	}
}

// EvaluatedNote holds the fully evaluated values of one note's six
// properties plus its corruption mask. Values are owned clones, never
// aliases into the evaluator's pool (spec §4.4, §9 "Pool aliasing
// hazard").
type EvaluatedNote struct {
	Values     [bytecode.NumVars]rational.Value
	Have       [bytecode.NumVars]bool
	Corruption CorruptionMask
}

// Get returns the evaluated value for v, or the documented default and
// false if the note has no evaluated value for that property yet.
func (n EvaluatedNote) Get(v bytecode.Var) (rational.Value, bool) {
	if int(v) >= len(n.Values) || !n.Have[v] {
		return Default(v), false
	}
	return n.Values[v], true
}

// Clone returns an independent deep copy; rational.Value is
// immutable, so this is a shallow struct copy, but kept as an
// explicit method so callers never have to reason about whether a
// map-returned EvaluatedNote aliases cache-internal memory.
func (n EvaluatedNote) Clone() EvaluatedNote { return n }

// Cache is the map from note id to its latest fully evaluated values,
// the read-only view callers observe between batches (spec §4.6
// "Cache discipline").
type Cache struct {
	notes map[bytecode.NoteID]EvaluatedNote
}

func NewCache() *Cache {
	return &Cache{notes: make(map[bytecode.NoteID]EvaluatedNote)}
}

func (c *Cache) Get(id bytecode.NoteID) (EvaluatedNote, bool) {
	n, ok := c.notes[id]
	return n, ok
}

func (c *Cache) Set(id bytecode.NoteID, n EvaluatedNote) {
	c.notes[id] = n
}

func (c *Cache) Delete(id bytecode.NoteID) {
	delete(c.notes, id)
}

// Reset clears every cached note, used by invalidate_all.
func (c *Cache) Reset() {
	c.notes = make(map[bytecode.NoteID]EvaluatedNote)
}

// Len reports how many notes currently have cached values.
func (c *Cache) Len() int { return len(c.notes) }

// GetVar is a convenience lookup combining Get and EvaluatedNote.Get,
// falling back to the documented default when the note or the
// specific property is absent — the "missing reference" soft fault of
// spec §4.4/§7.
func (c *Cache) GetVar(id bytecode.NoteID, v bytecode.Var) rational.Value {
	n, ok := c.notes[id]
	if !ok {
		return Default(v)
	}
	val, _ := n.Get(v)
	return val
}
