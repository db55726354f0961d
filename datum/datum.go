// Package datum implements the Datum tagged value (spec §3): the runtime
// value the expression evaluator produces, compares, and computes with,
// plus the SQL coercion rules spec §4.3 prescribes for comparison and
// arithmetic.
//
// Datum follows the teacher's tagged-struct-with-private-fields idiom
// (schema/ast.go's Column/Index/etc., each a struct with unexported
// fields and a handful of exported accessor methods); here the "tag" is a
// Kind and the payload fields vary by Kind instead of by DDL node type.
// Comparison, coercion, and arithmetic are ported from
// _examples/original_source's evaluator.rs call sites into
// Datum::{cmp,coerce,into_arith,into_bool} — none of which survive in the
// retrieval pack's trimmed datum.rs, so their exact behavior is taken from
// spec §4.3 directly (see DESIGN.md).
package datum

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sdh517/tikv/errs"
	"github.com/sdh517/tikv/mjson"
	"github.com/sdh517/tikv/mysqltime"
)

// Kind tags which payload field of a Datum is live.
type Kind int8

const (
	KindNull Kind = iota
	KindI64
	KindU64
	KindF64
	KindBytes
	KindDecimal
	KindDuration
	KindTime
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindI64:
		return "I64"
	case KindU64:
		return "U64"
	case KindF64:
		return "F64"
	case KindBytes:
		return "Bytes"
	case KindDecimal:
		return "Decimal"
	case KindDuration:
		return "Duration"
	case KindTime:
		return "Time"
	case KindJSON:
		return "Json"
	default:
		return "Unknown"
	}
}

// Datum is the tagged value the evaluator manipulates (spec §3). Payloads
// not selected by kind are zero and must not be read.
type Datum struct {
	kind  Kind
	i64   int64 // I64 payload, and the bit pattern of the U64 payload
	f64   float64
	bytes []byte
	dec   decimal.Decimal
	dur   mysqltime.Duration
	tm    mysqltime.Time
	js    mjson.Value
}

// Null is the Datum that participates in three-valued logic.
func Null() Datum { return Datum{kind: KindNull} }

// NewI64 wraps a signed 64-bit integer.
func NewI64(v int64) Datum { return Datum{kind: KindI64, i64: v} }

// NewU64 wraps an unsigned 64-bit integer.
func NewU64(v uint64) Datum { return Datum{kind: KindU64, i64: int64(v)} }

// NewF64 wraps a float64.
func NewF64(v float64) Datum { return Datum{kind: KindF64, f64: v} }

// NewBytes wraps a byte string (also used for SQL strings).
func NewBytes(v []byte) Datum { return Datum{kind: KindBytes, bytes: v} }

// NewDecimal wraps an arbitrary-precision fixed-point value.
func NewDecimal(v decimal.Decimal) Datum { return Datum{kind: KindDecimal, dec: v} }

// NewDuration wraps a signed-nanoseconds-since-midnight value.
func NewDuration(v mysqltime.Duration) Datum { return Datum{kind: KindDuration, dur: v} }

// NewTime wraps a timezone-aware instant.
func NewTime(v mysqltime.Time) Datum { return Datum{kind: KindTime, tm: v} }

// NewJSON wraps an in-memory JSON tree.
func NewJSON(v mjson.Value) Datum { return Datum{kind: KindJSON, js: v} }

// NewBool lifts a Go bool to the I64 0/1 Datum the evaluator's comparison
// and logic operators return (matching Rust's `impl From<bool> for
// Datum`, which produces `Datum::I64`).
func NewBool(b bool) Datum {
	if b {
		return NewI64(1)
	}
	return NewI64(0)
}

// Kind reports which payload is live.
func (d Datum) Kind() Kind { return d.kind }

// IsNull reports whether d is the Null Datum.
func (d Datum) IsNull() bool { return d.kind == KindNull }

// I64 returns the signed-integer payload; only meaningful when Kind() ==
// KindI64.
func (d Datum) I64() int64 { return d.i64 }

// U64 returns the unsigned-integer payload; only meaningful when Kind() ==
// KindU64.
func (d Datum) U64() uint64 { return uint64(d.i64) }

// F64 returns the float payload; only meaningful when Kind() == KindF64.
func (d Datum) F64() float64 { return d.f64 }

// Bytes returns the byte-string payload; only meaningful when Kind() ==
// KindBytes.
func (d Datum) Bytes() []byte { return d.bytes }

// Decimal returns the decimal payload; only meaningful when Kind() ==
// KindDecimal.
func (d Datum) Decimal() decimal.Decimal { return d.dec }

// Duration returns the duration payload; only meaningful when Kind() ==
// KindDuration.
func (d Datum) Duration() mysqltime.Duration { return d.dur }

// Time returns the time payload; only meaningful when Kind() == KindTime.
func (d Datum) Time() mysqltime.Time { return d.tm }

// JSON returns the JSON payload; only meaningful when Kind() == KindJSON.
func (d Datum) JSON() mjson.Value { return d.js }

// Equal reports whether d and other carry the same kind and payload,
// mirroring the Rust `Datum: PartialEq` the null checks throughout
// evaluator.rs rely on (`target == Datum::Null`, etc).
func (d Datum) Equal(other Datum) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case KindNull:
		return true
	case KindI64, KindU64:
		return d.i64 == other.i64
	case KindF64:
		return d.f64 == other.f64
	case KindBytes:
		return bytes.Equal(d.bytes, other.bytes)
	case KindDecimal:
		return d.dec.Equal(other.dec)
	case KindDuration:
		return d.dur.Compare(other.dur) == 0
	case KindTime:
		return d.tm.Equal(other.tm)
	case KindJSON:
		return d.js.Equal(other.js)
	default:
		return false
	}
}

// IntoBool coerces d to SQL's three-valued boolean (spec §4.3's logic
// operators): isNull reports Null, in which case value is meaningless.
// A numeric Datum is true iff it is non-zero; Bytes are true iff they
// parse to a non-zero float; Time/Duration are true iff non-zero/
// non-sentinel; Json is always true, matching `Datum::into_bool`'s call sites in
// evaluator.rs (`eval_not`, `eval_logic`, `eval_case_when`, `eval_if`).
func (d Datum) IntoBool() (value bool, isNull bool, err error) {
	switch d.kind {
	case KindNull:
		return false, true, nil
	case KindI64, KindU64:
		return d.i64 != 0, false, nil
	case KindF64:
		return d.f64 != 0, false, nil
	case KindDecimal:
		return !d.dec.IsZero(), false, nil
	case KindBytes:
		f, perr := strconv.ParseFloat(strings.TrimSpace(string(d.bytes)), 64)
		if perr != nil {
			return false, false, errs.Evalf("cannot coerce %q to bool: %v", d.bytes, perr)
		}
		return f != 0, false, nil
	case KindDuration:
		return d.dur.ToNanos() != 0, false, nil
	case KindTime:
		return !d.tm.IsZero(), false, nil
	case KindJSON:
		return true, false, nil
	default:
		return false, false, errs.Evalf("cannot coerce kind %s to bool", d.kind)
	}
}
