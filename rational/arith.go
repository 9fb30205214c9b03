package rational

import "math"

// Add, Sub, Mul, Div, Neg, Pow implement the Value lift rules of spec
// §4.1/§2. Add and Sub stay exact only for two Rational operands; a
// Symbolic or Irrational operand makes them float64. Mul and Div
// combine Rational and pending Symbolic operands algebraically; a plain
// Irrational operand forces them down to float64, since a float has no
// exponent structure left to combine with.

func (v Value) Add(o Value) Value {
	if v.kind == kindRational && o.kind == kindRational {
		return FromRational(v.rat.Add(o.rat))
	}
	return FromFloat(v.ToFloat64() + o.ToFloat64())
}

func (v Value) Sub(o Value) Value {
	if v.kind == kindRational && o.kind == kindRational {
		return FromRational(v.rat.Sub(o.rat))
	}
	return FromFloat(v.ToFloat64() - o.ToFloat64())
}

// Mul combines two Rational/Symbolic operands algebraically: matching
// bases' exponents are summed, and any exponent that lands on an
// integer folds straight back into the coefficient (spec §8 property
// 6, the octave-closure test). Either operand being a plain
// Irrational float forces ordinary float multiplication instead.
func (v Value) Mul(o Value) Value {
	if v.kind == kindRational && o.kind == kindRational {
		return FromRational(v.rat.Mul(o.rat))
	}
	if v.kind == kindIrrational || o.kind == kindIrrational {
		return FromFloat(v.ToFloat64() * o.ToFloat64())
	}
	vCoeff, vTerms := v.asProduct()
	oCoeff, oTerms := o.asProduct()
	coeff := vCoeff.Mul(oCoeff)
	terms := mergeTerms(vTerms, oTerms, &coeff)
	return fromSymbolic(coeff, terms)
}

func (v Value) Div(o Value) Value {
	if v.kind == kindRational && o.kind == kindRational {
		return FromRational(v.rat.Div(o.rat))
	}
	if v.kind == kindIrrational || o.kind == kindIrrational {
		denom := o.ToFloat64()
		if denom == 0 {
			return FromFloat(1.0)
		}
		return FromFloat(v.ToFloat64() / denom)
	}
	oCoeff, oTerms := o.asProduct()
	invCoeff := oCoeff.Inverse()
	invTerms := make([]term, len(oTerms))
	for i, t := range oTerms {
		invTerms[i] = term{base: t.base, exp: t.exp.Neg()}
	}
	vCoeff, vTerms := v.asProduct()
	coeff := vCoeff.Mul(invCoeff)
	terms := mergeTerms(vTerms, invTerms, &coeff)
	return fromSymbolic(coeff, terms)
}

func (v Value) Neg() Value {
	switch v.kind {
	case kindRational:
		return FromRational(v.rat.Neg())
	case kindSymbolic:
		return fromSymbolic(v.coeff.Neg(), v.terms)
	default:
		return FromFloat(-v.irrational)
	}
}

// Pow implements the exact-power test (§4.1) first; on failure, it
// defers rather than demotes immediately, recording base^exp as a
// pending Symbolic term so a later Mul against other powers of the
// same base has a chance to collapse back to an exact Rational. When
// either operand is not a plain Rational (an Irrational float or a
// pending Symbolic product), Pow falls straight back to math.Pow.
func (v Value) Pow(o Value) Value {
	if v.kind == kindRational && o.kind == kindRational {
		if r, ok := ExactPow(v.rat, o.rat); ok {
			return FromRational(r)
		}
		return fromSymbolic(One(), []term{{base: v.rat, exp: o.rat}})
	}
	return FromFloat(math.Pow(v.ToFloat64(), o.ToFloat64()))
}
