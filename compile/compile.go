package compile

import (
	"fmt"

	"noteforge/bytecode"
)

// Compile turns expression source text into a compiled
// *bytecode.Expression, choosing the modern DSL or the legacy
// verbose-method-chain grammar per the textual detector in spec
// §4.3/§9. Compilation is pure: the same source always yields the same
// bytecode, modulo the documented decimal-to-fraction approximation
// (spec §4.1, §9).
func Compile(source string) (*bytecode.Expression, error) {
	if source == "" {
		return nil, fmt.Errorf("compile: empty source")
	}

	if looksLegacy(source) {
		node, err := parseLegacy(source)
		if err != nil {
			return nil, fmt.Errorf("compile: legacy parse error: %w", err)
		}
		return emitExpression(node, source)
	}

	node, err := parseDSL(source)
	if err != nil {
		return nil, fmt.Errorf("compile: parse error: %w", err)
	}
	return emitExpression(node, source)
}

func emitExpression(node Node, source string) (*bytecode.Expression, error) {
	b := bytecode.NewBuilder()
	if err := emit(b, node); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return b.Finish(source), nil
}
