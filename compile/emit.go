package compile

import (
	"fmt"

	"noteforge/bytecode"
)

// emit walks the AST and emits the equivalent stack bytecode, per the
// emission rules of spec §4.3. It returns an error only for internal
// inconsistencies (the parser should never hand emit() something it
// can't lower); user-facing parse errors are caught earlier.
func emit(b *bytecode.Builder, n Node) error {
	switch v := n.(type) {
	case NumberLit:
		if v.Big {
			b.LoadConstBig(v.BigNum, v.BigDen)
		} else {
			b.LoadConst(v.Num, v.Den)
		}
		return nil

	case RatioLit:
		b.LoadConst(v.Num, v.Den)
		return nil

	case BaseRef:
		b.LoadBase(v.Var)
		return nil

	case NoteRef:
		b.LoadRef(v.Note, v.Var)
		return nil

	case NegNode:
		if err := emit(b, v.X); err != nil {
			return err
		}
		b.Neg()
		return nil

	case PowerNode:
		if err := emit(b, v.Base); err != nil {
			return err
		}
		if err := emit(b, v.Exp); err != nil {
			return err
		}
		b.Pow()
		return nil

	case BinaryNode:
		if err := emit(b, v.Left); err != nil {
			return err
		}
		if err := emit(b, v.Right); err != nil {
			return err
		}
		switch v.Op {
		case '+':
			b.Add()
		case '-':
			b.Sub()
		case '*':
			b.Mul()
		case '/':
			b.Div()
		default:
			return fmt.Errorf("compile: unknown binary operator %q", v.Op)
		}
		return nil

	case FuncCall:
		return emitFuncCall(b, v)

	default:
		return fmt.Errorf("compile: unknown AST node %T", n)
	}
}

func emitFuncCall(b *bytecode.Builder, fc FuncCall) error {
	switch fc.Fn {
	case "beat":
		// beat(r) lowers to LOAD_CONST 60, <push ref>, FIND_TEMPO, DIV
		// (spec §4.3): 60 seconds-per-minute divided by the inherited
		// tempo gives seconds-per-beat.
		b.LoadConst(60, 1)
		b.PushNoteRefOperand(fc.Arg.Note, fc.Arg.IsBase)
		b.FindTempo()
		b.Div()
		return nil

	case "tempo":
		if fc.Arg.IsBase {
			b.LoadBase(bytecode.VarTempo)
		} else {
			b.LoadRef(fc.Arg.Note, bytecode.VarTempo)
		}
		return nil

	case "measure":
		if fc.Arg.IsBase {
			b.LoadBase(bytecode.VarMeasureLength)
		} else {
			b.LoadRef(fc.Arg.Note, bytecode.VarMeasureLength)
		}
		return nil

	case "findTempo":
		// Legacy-only: module.findTempo(ref) walks the evaluation
		// cache toward BaseNote at run time (FIND_TEMPO), unlike the
		// DSL's tempo() which loads the property directly.
		b.PushNoteRefOperand(fc.Arg.Note, fc.Arg.IsBase)
		b.FindTempo()
		return nil

	case "findMeasureLength":
		b.PushNoteRefOperand(fc.Arg.Note, fc.Arg.IsBase)
		b.FindMeasure()
		return nil

	default:
		return fmt.Errorf("compile: unknown function %q", fc.Fn)
	}
}
