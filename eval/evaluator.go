package eval

import (
	"fmt"

	"noteforge/bytecode"
	"noteforge/rational"

	"github.com/golang/glog"
)

// sixty is the constant in the measureLength derivation formula
// (beatsPerMeasure * 60 / tempo), kept as a package value rather than
// re-materialized at every call site.
var sixty = rational.FromRational(rational.New(60, 1))

// Evaluator executes compiled expressions against a Cache, using a
// Pool to keep steady-state allocation near zero across repeated
// batches (spec §4.4).
type Evaluator struct {
	pool   *Pool
	cache  *Cache
	strict bool
}

func NewEvaluator(pool *Pool, cache *Cache) *Evaluator {
	return &Evaluator{pool: pool, cache: cache}
}

// NewStrictEvaluator is NewEvaluator with module.Strict mode enabled:
// a zero divisor surfaces as a soft fault (§7, §9 "Open question —
// division by zero") instead of silently producing 1.
func NewStrictEvaluator(pool *Pool, cache *Cache) *Evaluator {
	return &Evaluator{pool: pool, cache: cache, strict: true}
}

// Execute runs expr's bytecode and returns its value. target names
// the property being computed, used both to pick the fallback default
// on a soft fault and to select the corruption bit to report.
//
// Execute never panics on malformed input: a stack underflow/overflow,
// unknown opcode, or truncated operand is recorded as a soft fault (§7)
// — logged and reported to the caller as a non-nil error — and the
// caller is expected to substitute target's documented default rather
// than treat this as a hard failure of the batch.
func (e *Evaluator) Execute(expr *bytecode.Expression, target bytecode.Var) (rational.Value, CorruptionMask, error) {
	if expr == nil {
		return Default(target), 0, nil
	}

	s := newStack()
	dec := bytecode.NewDecoder(expr.Bytes())
	for !dec.Done() {
		instr, err := dec.Next()
		if err != nil {
			glog.Infof("eval: malformed bytecode for %s, substituting default: %v", target, err)
			return Default(target), 0, fmt.Errorf("eval: %w", err)
		}
		if err := e.step(s, instr); err != nil {
			glog.Infof("eval: %s evaluation fault, substituting default: %v", target, err)
			return Default(target), 0, err
		}
	}

	v, ok := s.pop()
	if !ok || s.len() != 0 {
		glog.Infof("eval: %s left an unbalanced stack, want exactly 1 value", target)
		return Default(target), 0, fmt.Errorf("eval: stack imbalance for %s", target)
	}

	var corruption CorruptionMask
	if ScanForPow(expr) {
		corruption = bitForVar(target)
	}
	return v, corruption, nil
}

func (e *Evaluator) step(s *stack, instr bytecode.Instr) error {
	switch instr.Op {
	case bytecode.OpLoadConst:
		if instr.Den == 0 {
			return fmt.Errorf("eval: LOAD_CONST with zero denominator")
		}
		s.push(e.pool.Alloc(rational.FromRational(rational.New(int64(instr.Num), int64(instr.Den)))))

	case bytecode.OpLoadConstBig:
		s.push(e.pool.Alloc(rational.FromRational(rational.NewFromBigInt(instr.BigNum, instr.BigDen))))

	case bytecode.OpLoadRef:
		s.push(e.cache.GetVar(instr.Note, instr.Var))

	case bytecode.OpLoadBase:
		s.push(e.cache.GetVar(bytecode.BaseNoteID, instr.Var))

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
		right, okR := s.pop()
		left, okL := s.pop()
		if !okR || !okL {
			return fmt.Errorf("eval: stack underflow for %s", instr.Op)
		}
		if instr.Op == bytecode.OpDiv && e.strict {
			v, err := divChecked(left, right)
			if err != nil {
				return err
			}
			s.push(v)
			return nil
		}
		s.push(binaryOp(instr.Op, left, right))

	case bytecode.OpNeg:
		x, ok := s.pop()
		if !ok {
			return fmt.Errorf("eval: stack underflow for NEG")
		}
		s.push(x.Neg())

	case bytecode.OpPow:
		exp, okE := s.pop()
		base, okB := s.pop()
		if !okE || !okB {
			return fmt.Errorf("eval: stack underflow for POW")
		}
		s.push(base.Pow(exp))

	case bytecode.OpFindTempo:
		ref, ok := s.pop()
		if !ok {
			return fmt.Errorf("eval: stack underflow for FIND_TEMPO")
		}
		s.push(e.findChain(noteRefFromOperand(ref), bytecode.VarTempo))

	case bytecode.OpFindMeasure:
		ref, ok := s.pop()
		if !ok {
			return fmt.Errorf("eval: stack underflow for FIND_MEASURE")
		}
		note := noteRefFromOperand(ref)
		s.push(DeriveMeasureLength(e.findChain(note, bytecode.VarBeatsPerMeasure), e.findChain(note, bytecode.VarTempo)))

	case bytecode.OpDup:
		top, ok := s.top()
		if !ok {
			return fmt.Errorf("eval: stack underflow for DUP")
		}
		s.push(top)

	case bytecode.OpSwap:
		a, okA := s.pop()
		b, okB := s.pop()
		if !okA || !okB {
			return fmt.Errorf("eval: stack underflow for SWAP")
		}
		s.push(a)
		s.push(b)

	default:
		return fmt.Errorf("eval: unknown opcode %s", instr.Op)
	}
	return nil
}

// divChecked implements the DIV opcode under module.Strict: a zero
// divisor is rejected rather than silently folded to 1, whether the
// divisor is an exact Rational or a float Irrational (spec §9).
func divChecked(left, right rational.Value) (rational.Value, error) {
	if right.IsRational() && right.Rational().IsZero() {
		return rational.Value{}, rational.ErrDivByZero
	}
	if !right.IsRational() && right.ToFloat64() == 0 {
		return rational.Value{}, rational.ErrDivByZero
	}
	return left.Div(right), nil
}

func binaryOp(op bytecode.Op, left, right rational.Value) rational.Value {
	switch op {
	case bytecode.OpAdd:
		return left.Add(right)
	case bytecode.OpSub:
		return left.Sub(right)
	case bytecode.OpMul:
		return left.Mul(right)
	case bytecode.OpDiv:
		return left.Div(right)
	default:
		return left
	}
}

// findChain implements the FIND_TEMPO/FIND_MEASURE lookup order of
// spec §4.4: the referenced note's own cached value first, then
// BaseNote's, then the documented default.
func (e *Evaluator) findChain(note bytecode.NoteID, v bytecode.Var) rational.Value {
	if n, ok := e.cache.Get(note); ok {
		if val, has := n.Get(v); has {
			return val
		}
	}
	if note != bytecode.BaseNoteID {
		if n, ok := e.cache.Get(bytecode.BaseNoteID); ok {
			if val, has := n.Get(v); has {
				return val
			}
		}
	}
	return Default(v)
}

// DeriveMeasureLength computes beatsPerMeasure * 60 / tempo, the
// measure-length derivation shared by the FIND_MEASURE opcode and the
// incremental evaluator's per-note measureLength fallback (spec §4.4
// step 4, §8 scenario S6).
func DeriveMeasureLength(beatsPerMeasure, tempo rational.Value) rational.Value {
	return beatsPerMeasure.Mul(sixty).Div(tempo)
}

// noteRefFromOperand decodes the pseudo-operand PushNoteRefOperand
// encodes ahead of FIND_TEMPO/FIND_MEASURE: a plain Rational(note/1).
// Note id 0 names BaseNote whether the source wrote `base` or a
// literal reference to note 0 — the two are indistinguishable on the
// wire and identical in meaning (spec §4.3, §9).
func noteRefFromOperand(v rational.Value) bytecode.NoteID {
	if !v.IsRational() {
		return bytecode.BaseNoteID
	}
	return bytecode.NoteID(v.Rational().Num().Int64())
}

// ScanForPow reports whether expr's bytecode contains any POW
// instruction, the conservative corruption over-approximation of spec
// §4.4/§9: every actually-irrational result comes from some POW, so
// any note whose expression contains one is marked corrupted even
// when that particular evaluation happened to simplify to a rational.
func ScanForPow(expr *bytecode.Expression) bool {
	if expr == nil {
		return false
	}
	dec := bytecode.NewDecoder(expr.Bytes())
	for !dec.Done() {
		instr, err := dec.Next()
		if err != nil {
			return false
		}
		if instr.Op == bytecode.OpPow {
			return true
		}
	}
	return false
}
