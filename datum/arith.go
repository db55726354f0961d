package datum

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sdh517/tikv/errs"
)

// ArithOp selects one of the six arithmetic operators spec §4.3 defines.
type ArithOp int8

const (
	OpPlus ArithOp = iota
	OpMinus
	OpMul
	OpDiv
	OpIntDiv
	OpMod
)

func (op ArithOp) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpIntDiv:
		return "DIV"
	case OpMod:
		return "MOD"
	default:
		return "?"
	}
}

// divPrecision bounds the scale kept by true division (Div), matching the
// evaluator's need for a fixed, generous rounding budget rather than an
// unbounded repeating-decimal expansion.
const divPrecision = 20

// Arith evaluates left `op` right under spec §4.3's arithmetic rules: Null
// on either side yields Null; Time is rejected outright; Duration and
// Bytes are first converted to an arithmetic form (Decimal-of-seconds and
// Float respectively); the remaining numeric pair is coerced under the
// precedence Float > Decimal > U64 > I64, and division/modulo by zero
// yields Null rather than an error.
func Arith(op ArithOp, left, right Datum) (Datum, error) {
	if left.IsNull() || right.IsNull() {
		return Null(), nil
	}
	la, err := toArithForm(left)
	if err != nil {
		return Datum{}, err
	}
	ra, err := toArithForm(right)
	if err != nil {
		return Datum{}, err
	}
	switch op {
	case OpDiv:
		return divOp(la, ra)
	case OpIntDiv:
		return intDivOp(la, ra)
	case OpMod:
		return modOp(la, ra)
	default:
		return addSubMulOp(op, la, ra)
	}
}

func toArithForm(d Datum) (Datum, error) {
	switch d.kind {
	case KindBytes:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(d.bytes)), 64)
		if err != nil {
			return Datum{}, errs.Evalf("cannot use %q in arithmetic: %v", d.bytes, err)
		}
		return NewF64(f), nil
	case KindDuration:
		dec, err := decimal.NewFromString(d.dur.ToSecondsDecimalString())
		if err != nil {
			return Datum{}, errs.Decodef("duration numeric form: %v", err)
		}
		return NewDecimal(dec), nil
	case KindTime:
		return Datum{}, errs.Exprf("time values are not allowed in arithmetic")
	case KindJSON:
		return Datum{}, errs.Exprf("json values are not allowed in arithmetic")
	case KindI64, KindU64, KindF64, KindDecimal:
		return d, nil
	default:
		return Datum{}, errs.Exprf("unsupported arithmetic operand kind %s", d.kind)
	}
}

func isZero(d Datum) bool {
	switch d.kind {
	case KindI64, KindU64:
		return d.i64 == 0
	case KindF64:
		return d.f64 == 0
	case KindDecimal:
		return d.dec.IsZero()
	default:
		return false
	}
}

func toF64General(d Datum) (float64, error) {
	switch d.kind {
	case KindI64:
		return float64(d.i64), nil
	case KindU64:
		return float64(d.U64()), nil
	case KindF64:
		return d.f64, nil
	case KindDecimal:
		f, _ := d.dec.Float64()
		return f, nil
	default:
		return 0, errs.Exprf("kind %s has no numeric form", d.kind)
	}
}

func toDecimalGeneral(d Datum) (decimal.Decimal, error) {
	switch d.kind {
	case KindI64:
		return decimal.NewFromInt(d.i64), nil
	case KindU64:
		dec, err := decimal.NewFromString(strconv.FormatUint(d.U64(), 10))
		if err != nil {
			return decimal.Decimal{}, errs.Decodef("u64 to decimal: %v", err)
		}
		return dec, nil
	case KindF64:
		return decimal.NewFromFloat(d.f64), nil
	case KindDecimal:
		return d.dec, nil
	default:
		return decimal.Decimal{}, errs.Exprf("kind %s has no decimal form", d.kind)
	}
}

// toU64Bits reinterprets an I64's two's-complement bit pattern as a U64,
// the "unsigned wrap is defined" rule spec §4.3 calls for when a negative
// I64 participates in unsigned integer division/modulo.
func toU64Bits(d Datum) uint64 {
	if d.kind == KindU64 {
		return d.U64()
	}
	return uint64(d.i64)
}

func divOp(left, right Datum) (Datum, error) {
	if isZero(right) {
		return Null(), nil
	}
	if left.kind == KindF64 || right.kind == KindF64 {
		lf, err := toF64General(left)
		if err != nil {
			return Datum{}, err
		}
		rf, err := toF64General(right)
		if err != nil {
			return Datum{}, err
		}
		return NewF64(lf / rf), nil
	}
	ld, err := toDecimalGeneral(left)
	if err != nil {
		return Datum{}, err
	}
	rd, err := toDecimalGeneral(right)
	if err != nil {
		return Datum{}, err
	}
	return NewDecimal(ld.DivRound(rd, divPrecision)), nil
}

func decimalToI64(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || d.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, errs.Overflowf("%s overflows a 64-bit integer", d.String())
	}
	return d.IntPart(), nil
}

func intDivOp(left, right Datum) (Datum, error) {
	if isZero(right) {
		return Null(), nil
	}
	if left.kind == KindF64 || right.kind == KindF64 || left.kind == KindDecimal || right.kind == KindDecimal {
		ld, err := toDecimalGeneral(left)
		if err != nil {
			return Datum{}, err
		}
		rd, err := toDecimalGeneral(right)
		if err != nil {
			return Datum{}, err
		}
		q := ld.DivRound(rd, divPrecision).Truncate(0)
		i, err := decimalToI64(q)
		if err != nil {
			return Datum{}, err
		}
		return NewI64(i), nil
	}
	// Pure-integer division keeps unsigned semantics once either side is
	// U64, reinterpreting a negative I64's bits rather than widening.
	if left.kind == KindU64 || right.kind == KindU64 {
		ru := toU64Bits(right)
		return NewU64(toU64Bits(left) / ru), nil
	}
	li, ri := left.i64, right.i64
	if li == math.MinInt64 && ri == -1 {
		return Datum{}, errs.Overflowf("integer division overflow")
	}
	return NewI64(li / ri), nil
}

func modOp(left, right Datum) (Datum, error) {
	if isZero(right) {
		return Null(), nil
	}
	if left.kind == KindF64 || right.kind == KindF64 {
		lf, err := toF64General(left)
		if err != nil {
			return Datum{}, err
		}
		rf, err := toF64General(right)
		if err != nil {
			return Datum{}, err
		}
		return NewF64(math.Mod(lf, rf)), nil
	}
	if left.kind == KindDecimal || right.kind == KindDecimal {
		ld, err := toDecimalGeneral(left)
		if err != nil {
			return Datum{}, err
		}
		rd, err := toDecimalGeneral(right)
		if err != nil {
			return Datum{}, err
		}
		return NewDecimal(ld.Mod(rd)), nil
	}
	// Unlike Div/IntDiv, Mod's result type and sign follow the dividend
	// (left operand) alone, not symmetric U64 coercion: (I64(-1), U64(2))
	// yields I64(-1), not U64(1) (spec §9 open question, evaluator.rs's
	// eval_arith test table).
	if left.kind == KindU64 {
		ru := toU64Bits(right)
		return NewU64(toU64Bits(left) % ru), nil
	}
	// Dividend is I64: reinterpret right's bits as signed rather than
	// widening left to unsigned. Go's % already preserves the dividend's
	// sign, matching "Mod preserves the sign of the dividend" (spec
	// §4.3); MinInt64 % -1 is 0 and does not overflow, unlike MinInt64 / -1.
	ri := int64(toU64Bits(right))
	return NewI64(left.i64 % ri), nil
}

func addSubMulOp(op ArithOp, left, right Datum) (Datum, error) {
	if left.kind == KindF64 || right.kind == KindF64 {
		lf, err := toF64General(left)
		if err != nil {
			return Datum{}, err
		}
		rf, err := toF64General(right)
		if err != nil {
			return Datum{}, err
		}
		return NewF64(applyFloat(op, lf, rf)), nil
	}
	if left.kind == KindDecimal || right.kind == KindDecimal {
		ld, err := toDecimalGeneral(left)
		if err != nil {
			return Datum{}, err
		}
		rd, err := toDecimalGeneral(right)
		if err != nil {
			return Datum{}, err
		}
		return NewDecimal(applyDecimal(op, ld, rd)), nil
	}
	negSide := (left.kind == KindI64 && left.i64 < 0) || (right.kind == KindI64 && right.i64 < 0)
	if (left.kind == KindU64 || right.kind == KindU64) && negSide {
		ld, err := toDecimalGeneral(left)
		if err != nil {
			return Datum{}, err
		}
		rd, err := toDecimalGeneral(right)
		if err != nil {
			return Datum{}, err
		}
		return NewDecimal(applyDecimal(op, ld, rd)), nil
	}
	if left.kind == KindU64 || right.kind == KindU64 {
		lu, ru := toU64Bits(left), toU64Bits(right)
		var r uint64
		switch op {
		case OpPlus:
			r = lu + ru
		case OpMinus:
			r = lu - ru
		case OpMul:
			r = lu * ru
		}
		return NewU64(r), nil
	}
	li, ri := left.i64, right.i64
	var r int64
	var overflow bool
	switch op {
	case OpPlus:
		r, overflow = addOverflow(li, ri)
	case OpMinus:
		r, overflow = subOverflow(li, ri)
	case OpMul:
		r, overflow = mulOverflow(li, ri)
	}
	if overflow {
		return Datum{}, errs.Overflowf("integer overflow in %d %s %d", li, op, ri)
	}
	return NewI64(r), nil
}

func applyFloat(op ArithOp, a, b float64) float64 {
	switch op {
	case OpPlus:
		return a + b
	case OpMinus:
		return a - b
	default:
		return a * b
	}
}

func applyDecimal(op ArithOp, a, b decimal.Decimal) decimal.Decimal {
	switch op {
	case OpPlus:
		return a.Add(b)
	case OpMinus:
		return a.Sub(b)
	default:
		return a.Mul(b)
	}
}

func addOverflow(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, true
	}
	return r, false
}

func subOverflow(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, true
	}
	return r, false
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, true
	}
	return r, false
}
