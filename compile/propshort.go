package compile

import "noteforge/bytecode"

// propShort maps the DSL's and legacy form's short and long property
// names to their bytecode.Var index (spec §4.3).
var propShort = map[string]bytecode.Var{
	"f":               bytecode.VarFrequency,
	"freq":            bytecode.VarFrequency,
	"frequency":       bytecode.VarFrequency,
	"t":               bytecode.VarStartTime,
	"s":               bytecode.VarStartTime,
	"start":           bytecode.VarStartTime,
	"startTime":       bytecode.VarStartTime,
	"d":               bytecode.VarDuration,
	"dur":             bytecode.VarDuration,
	"duration":        bytecode.VarDuration,
	"tempo":           bytecode.VarTempo,
	"bpm":             bytecode.VarBeatsPerMeasure,
	"beatsPerMeasure": bytecode.VarBeatsPerMeasure,
	"ml":              bytecode.VarMeasureLength,
	"measureLength":   bytecode.VarMeasureLength,
}

func lookupVar(name string) (bytecode.Var, bool) {
	v, ok := propShort[name]
	return v, ok
}
