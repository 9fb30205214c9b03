package module

import (
	"encoding/json"
	"fmt"

	"noteforge/bytecode"
	"noteforge/compile"
)

// jsonBaseNote mirrors the "baseNote" object of spec §6's JSON format.
// Pointers distinguish "omitted" from "empty string": an absent
// property is a nil pointer, never an empty one.
type jsonBaseNote struct {
	Frequency       *string `json:"frequency,omitempty"`
	StartTime       *string `json:"startTime,omitempty"`
	Tempo           *string `json:"tempo,omitempty"`
	BeatsPerMeasure *string `json:"beatsPerMeasure,omitempty"`
	MeasureLength   *string `json:"measureLength,omitempty"`
}

// jsonNote mirrors one entry of the "notes" array.
type jsonNote struct {
	ID         NoteID  `json:"id"`
	Frequency  *string `json:"frequency,omitempty"`
	StartTime  *string `json:"startTime,omitempty"`
	Duration   *string `json:"duration,omitempty"`
	Color      string  `json:"color,omitempty"`
	Instrument string  `json:"instrument,omitempty"`
}

type jsonDoc struct {
	BaseNote jsonBaseNote `json:"baseNote"`
	Notes    []jsonNote   `json:"notes"`
}

// Load parses a module JSON document (spec §6 "Module JSON format"):
// the BaseNote object first, then each note in array order. id=0 is
// reserved for BaseNote and never appears in the notes array.
func Load(data []byte) (*Module, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("module: load: %w", err)
	}

	m, err := New(BaseOverrides{
		Frequency:       deref(doc.BaseNote.Frequency),
		StartTime:       deref(doc.BaseNote.StartTime),
		Tempo:           deref(doc.BaseNote.Tempo),
		BeatsPerMeasure: deref(doc.BaseNote.BeatsPerMeasure),
		MeasureLength:   deref(doc.BaseNote.MeasureLength),
	})
	if err != nil {
		return nil, fmt.Errorf("module: load: base note: %w", err)
	}

	for _, jn := range doc.Notes {
		if jn.ID == BaseNoteID {
			return nil, fmt.Errorf("module: load: note id 0 is reserved for BaseNote")
		}
		exprs := make(map[string]string)
		if jn.Frequency != nil {
			exprs["frequency"] = *jn.Frequency
		}
		if jn.StartTime != nil {
			exprs["startTime"] = *jn.StartTime
		}
		if jn.Duration != nil {
			exprs["duration"] = *jn.Duration
		}
		id, err := m.addNoteWithID(jn.ID, exprs)
		if err != nil {
			return nil, fmt.Errorf("module: load: note %d: %w", jn.ID, err)
		}
		note := m.notes[id]
		note.Color = jn.Color
		note.Instrument = jn.Instrument
	}
	return m, nil
}

// addNoteWithID is Load's internal note constructor: unlike AddNote it
// takes the id from the document rather than allocating one, and
// advances the allocator past it so later add_note calls never collide.
func (m *Module) addNoteWithID(id NoteID, expressions map[string]string) (NoteID, error) {
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
	m.notes[id] = note
	if id >= m.nextID {
		m.nextID = id + 1
	}
	m.registerEdges(note)
	m.invalidateIDs()
	m.driver.Invalidate(id)
	return id, nil
}

// Save renders m back to the JSON format of spec §6: each expression's
// stored source text where available, falling back to
// compile.Decompile when the source text was lost (this repo's own
// supplement — see DESIGN.md).
func (m *Module) Save() ([]byte, error) {
	base := m.notes[BaseNoteID]
	doc := jsonDoc{
		BaseNote: jsonBaseNote{
			Frequency:       sourceOf(base.Exprs[bytecode.VarFrequency]),
			StartTime:       sourceOf(base.Exprs[bytecode.VarStartTime]),
			Tempo:           sourceOf(base.Exprs[bytecode.VarTempo]),
			BeatsPerMeasure: sourceOf(base.Exprs[bytecode.VarBeatsPerMeasure]),
			MeasureLength:   sourceOf(base.Exprs[bytecode.VarMeasureLength]),
		},
	}

	for _, id := range m.NoteIDs() {
		if id == BaseNoteID {
			continue
		}
		note := m.notes[id]
		jn := jsonNote{ID: id, Color: note.Color, Instrument: note.Instrument}
		var err error
		if jn.Frequency, err = sourceOrDecompile(note.Exprs[bytecode.VarFrequency]); err != nil {
			return nil, fmt.Errorf("module: save: note %d frequency: %w", id, err)
		}
		if jn.StartTime, err = sourceOrDecompile(note.Exprs[bytecode.VarStartTime]); err != nil {
			return nil, fmt.Errorf("module: save: note %d startTime: %w", id, err)
		}
		if jn.Duration, err = sourceOrDecompile(note.Exprs[bytecode.VarDuration]); err != nil {
			return nil, fmt.Errorf("module: save: note %d duration: %w", id, err)
		}
		doc.Notes = append(doc.Notes, jn)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("module: save: %w", err)
	}
	return out, nil
}

// sourceOf returns expr's stored source text, or nil if expr itself is
// absent (an omitted property, per spec §6's "omitted ... not empty").
func sourceOf(expr *bytecode.Expression) *string {
	if expr == nil {
		return nil
	}
	s := expr.Source
	return &s
}

// sourceOrDecompile prefers expr's stored source text, falling back to
// a decompiled canonical form if the source text was lost (spec §6
// Save; supplement 4 of SPEC_FULL.md).
func sourceOrDecompile(expr *bytecode.Expression) (*string, error) {
	if expr == nil {
		return nil, nil
	}
	if expr.Source != "" {
		s := expr.Source
		return &s, nil
	}
	decompiled, err := compile.Decompile(expr)
	if err != nil {
		return nil, err
	}
	return &decompiled, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
