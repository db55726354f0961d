package datum

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sdh517/tikv/errs"
)

// Compare orders d against other under SQL's coercion rules (spec §4.3
// "Comparison"): Decimal dominates integers, Float dominates Decimal when
// mixed with Float, and Time/Duration cross-compare via a canonical form.
// Callers must rule out Null on either side first (spec's three-valued
// logic turns a Null operand into a Null result, not a call to Compare).
func (d Datum) Compare(tzOffsetSeconds int, other Datum) (int, error) {
	switch {
	case d.kind == KindTime || other.kind == KindTime:
		return compareInvolvingTime(tzOffsetSeconds, d, other)
	case d.kind == KindDuration || other.kind == KindDuration:
		return compareInvolvingDuration(d, other)
	case d.kind == KindBytes && other.kind == KindBytes:
		return sign(bytes.Compare(d.bytes, other.bytes)), nil
	case d.kind == KindJSON || other.kind == KindJSON:
		return 0, errs.Exprf("json values are not directly comparable")
	default:
		return compareNumeric(d, other)
	}
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}

func compareInvolvingTime(tzOffsetSeconds int, a, b Datum) (int, error) {
	aIsTime := a.kind == KindTime
	bIsTime := b.kind == KindTime
	switch {
	case aIsTime && bIsTime:
		return a.tm.Compare(b.tm), nil
	case aIsTime && b.kind == KindDuration:
		// Cross-compare via the Time's own time-of-day, the "canonical
		// form" spec §4.3 calls for rather than anchoring the Duration
		// to an arbitrary absolute calendar date.
		ad, err := a.tm.ToDuration()
		if err != nil {
			return 0, errs.Wrap(errs.KindEval, err)
		}
		return ad.Compare(b.dur), nil
	case bIsTime && a.kind == KindDuration:
		bd, err := b.tm.ToDuration()
		if err != nil {
			return 0, errs.Wrap(errs.KindEval, err)
		}
		return a.dur.Compare(bd), nil
	default:
		// Compare via the canonical numeric-string form (spec §3
		// "Datetime numeric string") against whichever side is Time.
		timeSide, otherSide, flip := a, b, false
		if !aIsTime {
			timeSide, otherSide, flip = b, a, true
		}
		tdec, err := decimal.NewFromString(timeSide.tm.ToDecimalString())
		if err != nil {
			return 0, errs.Decodef("time numeric form: %v", err)
		}
		odec, err := toDecimalGeneral(otherSide)
		if err != nil {
			return 0, err
		}
		cmp := tdec.Cmp(odec)
		if flip {
			cmp = -cmp
		}
		return cmp, nil
	}
}

func compareInvolvingDuration(a, b Datum) (int, error) {
	if a.kind == KindDuration && b.kind == KindDuration {
		return a.dur.Compare(b.dur), nil
	}
	durSide, otherSide, flip := a, b, false
	if a.kind != KindDuration {
		durSide, otherSide, flip = b, a, true
	}
	ddec, err := decimal.NewFromString(durSide.dur.ToSecondsDecimalString())
	if err != nil {
		return 0, errs.Decodef("duration numeric form: %v", err)
	}
	odec, err := toDecimalGeneral(otherSide)
	if err != nil {
		return 0, err
	}
	cmp := ddec.Cmp(odec)
	if flip {
		cmp = -cmp
	}
	return cmp, nil
}

// numericDatum normalizes a Bytes operand to its parsed F64 form; every
// other numeric kind passes through unchanged.
func numericDatum(d Datum) (Datum, error) {
	switch d.kind {
	case KindBytes:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(d.bytes)), 64)
		if err != nil {
			return Datum{}, errs.Evalf("cannot compare %q as a number: %v", d.bytes, err)
		}
		return NewF64(f), nil
	case KindI64, KindU64, KindF64, KindDecimal:
		return d, nil
	default:
		return Datum{}, errs.Exprf("kind %s is not comparable as a number", d.kind)
	}
}

func compareNumeric(a, b Datum) (int, error) {
	pa, err := numericDatum(a)
	if err != nil {
		return 0, err
	}
	pb, err := numericDatum(b)
	if err != nil {
		return 0, err
	}

	switch {
	case pa.kind == KindF64 || pb.kind == KindF64:
		fa, err := toF64General(pa)
		if err != nil {
			return 0, err
		}
		fb, err := toF64General(pb)
		if err != nil {
			return 0, err
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	case pa.kind == KindDecimal || pb.kind == KindDecimal:
		da, err := toDecimalGeneral(pa)
		if err != nil {
			return 0, err
		}
		db, err := toDecimalGeneral(pb)
		if err != nil {
			return 0, err
		}
		return da.Cmp(db), nil
	case pa.kind == KindU64 || pb.kind == KindU64:
		negSide := (pa.kind == KindI64 && pa.i64 < 0) || (pb.kind == KindI64 && pb.i64 < 0)
		if negSide {
			da, err := toDecimalGeneral(pa)
			if err != nil {
				return 0, err
			}
			db, err := toDecimalGeneral(pb)
			if err != nil {
				return 0, err
			}
			return da.Cmp(db), nil
		}
		ua, ub := toU64Bits(pa), toU64Bits(pb)
		switch {
		case ua < ub:
			return -1, nil
		case ua > ub:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		switch {
		case pa.i64 < pb.i64:
			return -1, nil
		case pa.i64 > pb.i64:
			return 1, nil
		default:
			return 0, nil
		}
	}
}
