package expression

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/pingcap/tipb/go-tipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/tablecodec"
)

func i64Bytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func u64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func f64Bytes(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func intExpr(v int64) *tipb.Expr { return &tipb.Expr{Tp: tipb.ExprType_Int64, Val: i64Bytes(v)} }
func uintExpr(v uint64) *tipb.Expr {
	return &tipb.Expr{Tp: tipb.ExprType_Uint64, Val: u64Bytes(v)}
}
func floatExpr(v float64) *tipb.Expr {
	return &tipb.Expr{Tp: tipb.ExprType_Float64, Val: f64Bytes(v)}
}
func bytesExpr(v string) *tipb.Expr { return &tipb.Expr{Tp: tipb.ExprType_Bytes, Val: []byte(v)} }
func nullExpr() *tipb.Expr          { return &tipb.Expr{Tp: tipb.ExprType_Null} }
func colExpr(id int64) *tipb.Expr {
	return &tipb.Expr{Tp: tipb.ExprType_ColumnRef, Val: i64Bytes(id)}
}

func binExpr(tp tipb.ExprType, left, right *tipb.Expr) *tipb.Expr {
	return &tipb.Expr{Tp: tp, Children: []*tipb.Expr{left, right}}
}

func evalOne(t *testing.T, ctx *EvalContext, expr *tipb.Expr) datum.Datum {
	t.Helper()
	ev := NewEvaluator(map[int64]datum.Datum{})
	d, err := ev.Eval(ctx, expr)
	require.NoError(t, err)
	return d
}

func newCtx(t *testing.T) *EvalContext {
	t.Helper()
	ctx, err := NewEvalContext(0, 0)
	require.NoError(t, err)
	return ctx
}

func TestEvalLeafLiterals(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, int64(42), evalOne(t, ctx, intExpr(42)).I64())
	assert.Equal(t, uint64(7), evalOne(t, ctx, uintExpr(7)).U64())
	assert.Equal(t, 1.5, evalOne(t, ctx, floatExpr(1.5)).F64())
	assert.Equal(t, "hi", string(evalOne(t, ctx, bytesExpr("hi")).Bytes()))
	assert.True(t, evalOne(t, ctx, nullExpr()).IsNull())
}

func TestEvalColumnRef(t *testing.T) {
	ctx := newCtx(t)
	ev := NewEvaluator(map[int64]datum.Datum{1: datum.NewI64(99)})
	d, err := ev.Eval(ctx, colExpr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(99), d.I64())

	_, err = ev.Eval(ctx, colExpr(2))
	assert.Error(t, err)
}

func TestEvalComparisonOperators(t *testing.T) {
	ctx := newCtx(t)
	lt := binExpr(tipb.ExprType_LT, intExpr(1), intExpr(2))
	assert.Equal(t, int64(1), evalOne(t, ctx, lt).I64())

	eq := binExpr(tipb.ExprType_EQ, intExpr(3), intExpr(3))
	assert.Equal(t, int64(1), evalOne(t, ctx, eq).I64())

	neNull := binExpr(tipb.ExprType_NE, intExpr(1), nullExpr())
	assert.True(t, evalOne(t, ctx, neNull).IsNull())
}

func TestEvalNullEQTreatsNullAsComparable(t *testing.T) {
	ctx := newCtx(t)
	bothNull := binExpr(tipb.ExprType_NullEQ, nullExpr(), nullExpr())
	assert.Equal(t, int64(1), evalOne(t, ctx, bothNull).I64())

	oneNull := binExpr(tipb.ExprType_NullEQ, nullExpr(), intExpr(1))
	assert.Equal(t, int64(0), evalOne(t, ctx, oneNull).I64())
}

// AND/OR short-circuit: a False AND anything is False even when the
// other side would error or be Null, and symmetrically for OR/True.
func TestEvalAndOrShortCircuit(t *testing.T) {
	ctx := newCtx(t)
	falseAndNull := binExpr(tipb.ExprType_And, intExpr(0), nullExpr())
	assert.Equal(t, int64(0), evalOne(t, ctx, falseAndNull).I64())

	trueOrNull := binExpr(tipb.ExprType_Or, intExpr(1), nullExpr())
	assert.Equal(t, int64(1), evalOne(t, ctx, trueOrNull).I64())

	nullAndTrue := binExpr(tipb.ExprType_And, nullExpr(), intExpr(1))
	assert.True(t, evalOne(t, ctx, nullAndTrue).IsNull())

	trueAndTrue := binExpr(tipb.ExprType_And, intExpr(1), intExpr(1))
	assert.Equal(t, int64(1), evalOne(t, ctx, trueAndTrue).I64())
}

func TestEvalNot(t *testing.T) {
	ctx := newCtx(t)
	notTrue := &tipb.Expr{Tp: tipb.ExprType_Not, Children: []*tipb.Expr{intExpr(1)}}
	assert.Equal(t, int64(0), evalOne(t, ctx, notTrue).I64())

	notNull := &tipb.Expr{Tp: tipb.ExprType_Not, Children: []*tipb.Expr{nullExpr()}}
	assert.True(t, evalOne(t, ctx, notNull).IsNull())
}

func TestEvalArithMixedSignUnsigned(t *testing.T) {
	ctx := newCtx(t)
	plus := binExpr(tipb.ExprType_Plus, uintExpr(10), intExpr(-3))
	d := evalOne(t, ctx, plus)
	assert.Equal(t, datum.KindDecimal, d.Kind())

	mod := binExpr(tipb.ExprType_Mod, intExpr(-7), intExpr(3))
	assert.Equal(t, int64(-1), evalOne(t, ctx, mod).I64())

	divByZero := binExpr(tipb.ExprType_Div, intExpr(1), intExpr(0))
	assert.True(t, evalOne(t, ctx, divByZero).IsNull())
}

func TestEvalLikePattern(t *testing.T) {
	ctx := newCtx(t)
	contains := binExpr(tipb.ExprType_Like, bytesExpr("hello world"), bytesExpr("%lo wo%"))
	assert.Equal(t, int64(1), evalOne(t, ctx, contains).I64())

	prefix := binExpr(tipb.ExprType_Like, bytesExpr("hello"), bytesExpr("hel%"))
	assert.Equal(t, int64(1), evalOne(t, ctx, prefix).I64())

	suffix := binExpr(tipb.ExprType_Like, bytesExpr("hello"), bytesExpr("%llo"))
	assert.Equal(t, int64(1), evalOne(t, ctx, suffix).I64())

	exact := binExpr(tipb.ExprType_Like, bytesExpr("Hello"), bytesExpr("hello"))
	assert.Equal(t, int64(1), evalOne(t, ctx, exact).I64(), "alphabetic pattern forces case-insensitive compare")

	noMatch := binExpr(tipb.ExprType_Like, bytesExpr("hello"), bytesExpr("world"))
	assert.Equal(t, int64(0), evalOne(t, ctx, noMatch).I64())
}

func encodedValueList(t *testing.T, values ...datum.Datum) []byte {
	t.Helper()
	var buf []byte
	for _, v := range values {
		enc, err := tablecodec.EncodeDatum(v)
		require.NoError(t, err)
		buf = append(buf, enc...)
	}
	return buf
}

func TestEvalInFindsSortedMember(t *testing.T) {
	ctx := newCtx(t)
	list := &tipb.Expr{Tp: tipb.ExprType_ValueList, Val: encodedValueList(t, datum.NewI64(1), datum.NewI64(2), datum.NewI64(3))}
	in := binExpr(tipb.ExprType_In, intExpr(2), list)
	assert.Equal(t, int64(1), evalOne(t, ctx, in).I64())

	notIn := binExpr(tipb.ExprType_In, intExpr(9), list)
	assert.Equal(t, int64(0), evalOne(t, ctx, notIn).I64())
}

func TestEvalInNullTarget(t *testing.T) {
	ctx := newCtx(t)
	list := &tipb.Expr{Tp: tipb.ExprType_ValueList, Val: encodedValueList(t, datum.NewI64(1))}
	in := binExpr(tipb.ExprType_In, nullExpr(), list)
	assert.True(t, evalOne(t, ctx, in).IsNull())
}

func TestEvalCaseWhenAndIf(t *testing.T) {
	ctx := newCtx(t)
	caseExpr := &tipb.Expr{
		Tp: tipb.ExprType_Case,
		Children: []*tipb.Expr{
			intExpr(0), bytesExpr("first"),
			intExpr(1), bytesExpr("second"),
			bytesExpr("else"),
		},
	}
	assert.Equal(t, "second", string(evalOne(t, ctx, caseExpr).Bytes()))

	ifExpr := &tipb.Expr{Tp: tipb.ExprType_If, Children: []*tipb.Expr{intExpr(0), intExpr(10), intExpr(20)}}
	assert.Equal(t, int64(20), evalOne(t, ctx, ifExpr).I64())
}

func TestEvalCoalesceIfNullIsNullNullIf(t *testing.T) {
	ctx := newCtx(t)
	coalesce := &tipb.Expr{Tp: tipb.ExprType_Coalesce, Children: []*tipb.Expr{nullExpr(), nullExpr(), intExpr(5)}}
	assert.Equal(t, int64(5), evalOne(t, ctx, coalesce).I64())

	ifNull := binExpr(tipb.ExprType_IfNull, nullExpr(), intExpr(9))
	assert.Equal(t, int64(9), evalOne(t, ctx, ifNull).I64())

	isNull := &tipb.Expr{Tp: tipb.ExprType_IsNull, Children: []*tipb.Expr{nullExpr()}}
	assert.Equal(t, int64(1), evalOne(t, ctx, isNull).I64())

	nullIfEqual := binExpr(tipb.ExprType_NullIf, intExpr(3), intExpr(3))
	assert.True(t, evalOne(t, ctx, nullIfEqual).IsNull())

	nullIfDiffer := binExpr(tipb.ExprType_NullIf, intExpr(3), intExpr(4))
	assert.Equal(t, int64(3), evalOne(t, ctx, nullIfDiffer).I64())
}

func TestEvalScalarFuncBuiltins(t *testing.T) {
	ctx := newCtx(t)
	absInt := &tipb.Expr{Tp: tipb.ExprType_ScalarFunc, Sig: tipb.ScalarFuncSig_AbsInt, Children: []*tipb.Expr{intExpr(-5)}}
	assert.Equal(t, int64(5), evalOne(t, ctx, absInt).I64())

	absReal := &tipb.Expr{Tp: tipb.ExprType_ScalarFunc, Sig: tipb.ScalarFuncSig_AbsReal, Children: []*tipb.Expr{floatExpr(-2.5)}}
	assert.Equal(t, 2.5, evalOne(t, ctx, absReal).F64())

	ceilReal := &tipb.Expr{Tp: tipb.ExprType_ScalarFunc, Sig: tipb.ScalarFuncSig_CeilReal, Children: []*tipb.Expr{floatExpr(2.1)}}
	assert.Equal(t, 3.0, evalOne(t, ctx, ceilReal).F64())
}

func TestEvalContextRejectsOutOfRangeTz(t *testing.T) {
	_, err := NewEvalContext(86400, 0)
	assert.Error(t, err)
	_, err = NewEvalContext(-86400, 0)
	assert.Error(t, err)
	_, err = NewEvalContext(86399, 0)
	assert.NoError(t, err)
}
