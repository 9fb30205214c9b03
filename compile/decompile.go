package compile

import (
	"fmt"
	"strconv"
	"strings"

	"noteforge/bytecode"
)

// Decompile renders a compiled expression back to canonical legacy
// source text (spec §4.3's decompile guarantee, testable property 7):
// recompiling the result must produce bytecode equivalent to the
// original. Decompilation always targets the verbose legacy grammar
// since it, unlike the DSL, has a one-to-one instruction mapping for
// FIND_TEMPO/FIND_MEASURE. DUP and SWAP have no source form and are
// rejected with an error.
func Decompile(expr *bytecode.Expression) (string, error) {
	dec := bytecode.NewDecoder(expr.Bytes())
	var stack []string
	for !dec.Done() {
		instr, err := dec.Next()
		if err != nil {
			return "", fmt.Errorf("compile: decompile: %w", err)
		}
		frag, err := decompileStep(instr, &stack)
		if err != nil {
			return "", err
		}
		if frag != "" {
			stack = append(stack, frag)
		}
	}
	if len(stack) != 1 {
		return "", fmt.Errorf("compile: decompile: stack has %d values at end, want 1", len(stack))
	}
	return stack[0], nil
}

func decompileStep(instr bytecode.Instr, stack *[]string) (string, error) {
	pop := func() (string, error) {
		if len(*stack) == 0 {
			return "", fmt.Errorf("compile: decompile: stack underflow")
		}
		top := (*stack)[len(*stack)-1]
		*stack = (*stack)[:len(*stack)-1]
		return top, nil
	}

	switch instr.Op {
	case bytecode.OpLoadConst:
		return fragRatio(instr.Num, instr.Den), nil

	case bytecode.OpLoadConstBig:
		return fmt.Sprintf("new Fraction(%s, %s)", instr.BigNum.String(), instr.BigDen.String()), nil

	case bytecode.OpLoadRef:
		return fmt.Sprintf("module.getNoteById(%d).getVariable('%s')", instr.Note, instr.Var), nil

	case bytecode.OpLoadBase:
		return fmt.Sprintf("module.baseNote.getVariable('%s')", instr.Var), nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpPow:
		right, err := pop()
		if err != nil {
			return "", err
		}
		left, err := pop()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s(%s)", left, legacyMethodName(instr.Op), right), nil

	case bytecode.OpNeg:
		x, err := pop()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.neg()", x), nil

	case bytecode.OpFindTempo, bytecode.OpFindMeasure:
		ref, err := pop()
		if err != nil {
			return "", err
		}
		fn := "findTempo"
		if instr.Op == bytecode.OpFindMeasure {
			fn = "findMeasureLength"
		}
		return fmt.Sprintf("module.%s(%s)", fn, noteRefOperandToSource(ref)), nil

	case bytecode.OpDup, bytecode.OpSwap:
		return "", fmt.Errorf("compile: decompile: %s has no source-level representation", instr.Op)

	default:
		return "", fmt.Errorf("compile: decompile: unsupported opcode %s", instr.Op)
	}
}

func legacyMethodName(op bytecode.Op) string {
	switch op {
	case bytecode.OpAdd:
		return "add"
	case bytecode.OpSub:
		return "sub"
	case bytecode.OpMul:
		return "mul"
	case bytecode.OpDiv:
		return "div"
	case bytecode.OpPow:
		return "pow"
	default:
		return "?"
	}
}

func fragRatio(num, den int32) string {
	if den == 1 {
		return fmt.Sprintf("new Fraction(%d)", num)
	}
	return fmt.Sprintf("new Fraction(%d, %d)", num, den)
}

// noteRefOperandToSource turns the decompiled LOAD_CONST fragment that
// PushNoteRefOperand produces (`new Fraction(n)`, n the note id) into the
// `ref` production findTempo/findMeasureLength expect. Note id 0 always
// names BaseNote (spec: BaseNoteID == 0), so it round-trips unambiguously.
func noteRefOperandToSource(frag string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(frag, "new Fraction("), ")")
	if n, err := strconv.Atoi(strings.TrimSpace(inner)); err == nil {
		if bytecode.NoteID(n) == bytecode.BaseNoteID {
			return "module.baseNote"
		}
		return fmt.Sprintf("module.getNoteById(%d)", n)
	}
	return frag
}
