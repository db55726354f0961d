package expression

import (
	"github.com/pingcap/tipb/go-tipb"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
	"github.com/sdh517/tikv/mjson"
	"github.com/sdh517/tikv/mysqltime"
)

// Evaluator walks *tipb.Expr trees against one decoded row. It caches
// decoded IN value-lists by expression pointer identity, mirroring the
// Rust Evaluator's `cached_value_list: HashMap<isize, Vec<Datum>>` (spec
// §4.3 "IN: cached/sorted value-list binary search").
type Evaluator struct {
	// Row maps column_id -> its already-decoded Datum value.
	Row map[int64]datum.Datum

	cachedValueList map[*tipb.Expr][]datum.Datum
}

// NewEvaluator builds an Evaluator bound to one decoded row.
func NewEvaluator(row map[int64]datum.Datum) *Evaluator {
	return &Evaluator{Row: row, cachedValueList: make(map[*tipb.Expr][]datum.Datum)}
}

// BatchEval evaluates every expr in exprs against the same row.
func (e *Evaluator) BatchEval(ctx *EvalContext, exprs []*tipb.Expr) ([]datum.Datum, error) {
	out := make([]datum.Datum, 0, len(exprs))
	for _, expr := range exprs {
		d, err := e.Eval(ctx, expr)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Eval evaluates expr to a Datum (spec §4.3's per-ExprType dispatch).
func (e *Evaluator) Eval(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	switch expr.GetTp() {
	case tipb.ExprType_Null:
		return datum.Null(), nil
	case tipb.ExprType_Int64:
		i, err := decodeI64(expr.GetVal())
		if err != nil {
			return datum.Datum{}, err
		}
		return datum.NewI64(i), nil
	case tipb.ExprType_Uint64:
		u, err := decodeU64(expr.GetVal())
		if err != nil {
			return datum.Datum{}, err
		}
		return datum.NewU64(u), nil
	case tipb.ExprType_String, tipb.ExprType_Bytes:
		return datum.NewBytes(append([]byte{}, expr.GetVal()...)), nil
	case tipb.ExprType_Float32, tipb.ExprType_Float64:
		f, err := decodeF64(expr.GetVal())
		if err != nil {
			return datum.Datum{}, err
		}
		return datum.NewF64(f), nil
	case tipb.ExprType_MysqlDuration:
		n, err := decodeI64(expr.GetVal())
		if err != nil {
			return datum.Datum{}, err
		}
		dur, err := mysqltime.FromNanos(n, mysqltime.MaxFsp)
		if err != nil {
			return datum.Datum{}, errs.Wrap(errs.KindEval, err)
		}
		return datum.NewDuration(dur), nil
	case tipb.ExprType_MysqlDecimal:
		dec, err := decodeDecimal(expr.GetVal())
		if err != nil {
			return datum.Datum{}, err
		}
		return datum.NewDecimal(dec), nil
	case tipb.ExprType_MysqlTime:
		return e.evalTime(ctx, expr)
	case tipb.ExprType_MysqlJson:
		jv, err := mjson.Parse(string(expr.GetVal()))
		if err != nil {
			return datum.Datum{}, err
		}
		return datum.NewJSON(jv), nil
	case tipb.ExprType_ColumnRef:
		return e.evalColumnRef(expr)
	case tipb.ExprType_LT:
		return e.evalCmp(ctx, expr, func(c int) bool { return c < 0 })
	case tipb.ExprType_LE:
		return e.evalCmp(ctx, expr, func(c int) bool { return c <= 0 })
	case tipb.ExprType_EQ:
		return e.evalCmp(ctx, expr, func(c int) bool { return c == 0 })
	case tipb.ExprType_NE:
		return e.evalCmp(ctx, expr, func(c int) bool { return c != 0 })
	case tipb.ExprType_GE:
		return e.evalCmp(ctx, expr, func(c int) bool { return c >= 0 })
	case tipb.ExprType_GT:
		return e.evalCmp(ctx, expr, func(c int) bool { return c > 0 })
	case tipb.ExprType_NullEQ:
		return e.evalNullEQ(ctx, expr)
	case tipb.ExprType_And:
		return e.evalLogic(ctx, expr, boolPtr(false), evalAnd)
	case tipb.ExprType_Or:
		return e.evalLogic(ctx, expr, boolPtr(true), evalOr)
	case tipb.ExprType_Not:
		return e.evalNot(ctx, expr)
	case tipb.ExprType_Like:
		return e.evalLike(ctx, expr)
	case tipb.ExprType_In:
		return e.evalIn(ctx, expr)
	case tipb.ExprType_Plus:
		return e.evalArith(ctx, expr, datum.OpPlus)
	case tipb.ExprType_Minus:
		return e.evalArith(ctx, expr, datum.OpMinus)
	case tipb.ExprType_Mul:
		return e.evalArith(ctx, expr, datum.OpMul)
	case tipb.ExprType_Div:
		return e.evalArith(ctx, expr, datum.OpDiv)
	case tipb.ExprType_IntDiv:
		return e.evalArith(ctx, expr, datum.OpIntDiv)
	case tipb.ExprType_Mod:
		return e.evalArith(ctx, expr, datum.OpMod)
	case tipb.ExprType_Case:
		return e.evalCaseWhen(ctx, expr)
	case tipb.ExprType_If:
		return e.evalIf(ctx, expr)
	case tipb.ExprType_Coalesce:
		return e.evalCoalesce(ctx, expr)
	case tipb.ExprType_IfNull:
		return e.evalIfNull(ctx, expr)
	case tipb.ExprType_IsNull:
		return e.evalIsNull(ctx, expr)
	case tipb.ExprType_NullIf:
		return e.evalNullIf(ctx, expr)
	case tipb.ExprType_JsonSet:
		return e.evalJSONModify(ctx, expr, mjson.ModifySet)
	case tipb.ExprType_JsonInsert:
		return e.evalJSONModify(ctx, expr, mjson.ModifyInsert)
	case tipb.ExprType_JsonReplace:
		return e.evalJSONModify(ctx, expr, mjson.ModifyReplace)
	case tipb.ExprType_JsonRemove:
		return e.evalJSONRemove(ctx, expr)
	case tipb.ExprType_JsonUnquote:
		return e.evalJSONUnquote(ctx, expr)
	case tipb.ExprType_JsonExtract:
		return e.evalJSONExtract(ctx, expr)
	case tipb.ExprType_JsonType:
		return e.evalJSONType(ctx, expr)
	case tipb.ExprType_JsonMerge:
		return e.evalJSONMerge(ctx, expr)
	case tipb.ExprType_JsonObject:
		return e.evalJSONObject(ctx, expr)
	case tipb.ExprType_JsonArray:
		return e.evalJSONArray(ctx, expr)
	case tipb.ExprType_ScalarFunc:
		return e.evalScalarFunc(ctx, expr)
	default:
		return datum.Null(), nil
	}
}

func (e *Evaluator) evalTime(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	u, err := decodeU64(expr.GetVal())
	if err != nil {
		return datum.Datum{}, err
	}
	ft := expr.GetFieldType()
	tm, err := mysqltime.FromPackedU64(u, mysqltime.Type(ft.GetTp()), int8(ft.GetDecimal()), ctx.TzOffsetSeconds)
	if err != nil {
		return datum.Datum{}, errs.Wrap(errs.KindEval, err)
	}
	return datum.NewTime(tm), nil
}

func (e *Evaluator) evalColumnRef(expr *tipb.Expr) (datum.Datum, error) {
	i, err := decodeI64(expr.GetVal())
	if err != nil {
		return datum.Datum{}, err
	}
	d, ok := e.Row[i]
	if !ok {
		return datum.Datum{}, errs.Evalf("column %d not found", i)
	}
	return d, nil
}

func oneChild(expr *tipb.Expr) (*tipb.Expr, error) {
	children := expr.GetChildren()
	if len(children) != 1 {
		return nil, errs.Exprf("%v needs 1 operand but got %d", expr.GetTp(), len(children))
	}
	return children[0], nil
}

func twoChildren(expr *tipb.Expr) (*tipb.Expr, *tipb.Expr, error) {
	children := expr.GetChildren()
	if len(children) != 2 {
		return nil, nil, errs.Exprf("%v needs 2 operands but got %d", expr.GetTp(), len(children))
	}
	return children[0], children[1], nil
}

func (e *Evaluator) evalOneChild(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	child, err := oneChild(expr)
	if err != nil {
		return datum.Datum{}, err
	}
	return e.Eval(ctx, child)
}

func (e *Evaluator) evalTwoChildren(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, datum.Datum, error) {
	left, right, err := twoChildren(expr)
	if err != nil {
		return datum.Datum{}, datum.Datum{}, err
	}
	ld, err := e.Eval(ctx, left)
	if err != nil {
		return datum.Datum{}, datum.Datum{}, err
	}
	rd, err := e.Eval(ctx, right)
	if err != nil {
		return datum.Datum{}, datum.Datum{}, err
	}
	return ld, rd, nil
}

func (e *Evaluator) evalMoreChildren(ctx *EvalContext, expr *tipb.Expr, min int) ([]datum.Datum, error) {
	children := expr.GetChildren()
	if len(children) < min {
		return nil, errs.Exprf("expect at least %d operands, got %d", min, len(children))
	}
	out := make([]datum.Datum, 0, len(children))
	for _, c := range children {
		d, err := e.Eval(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (e *Evaluator) evalCmp(ctx *EvalContext, expr *tipb.Expr, pred func(int) bool) (datum.Datum, error) {
	left, right, err := e.evalTwoChildren(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() || right.IsNull() {
		return datum.Null(), nil
	}
	cmp, err := left.Compare(ctx.TzOffsetSeconds, right)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBool(pred(cmp)), nil
}

func (e *Evaluator) evalNullEQ(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	left, right, err := e.evalTwoChildren(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() && right.IsNull() {
		return datum.NewBool(true), nil
	}
	if left.IsNull() || right.IsNull() {
		return datum.NewBool(false), nil
	}
	cmp, err := left.Compare(ctx.TzOffsetSeconds, right)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBool(cmp == 0), nil
}

func boolPtr(b bool) *bool { return &b }

func sameBool(a *bool, b bool) bool { return a != nil && *a == b }

// evalLogic implements AND/OR's short circuit (spec §4.3 "Short-circuit
// evaluation"): breakRes is the value ("false" for AND, "true" for OR)
// that short-circuits the whole expression to that same boolean the
// moment either side produces it, matching eval_and/eval_or's
// break-value semantics. Anything else that isn't a full true/true (AND)
// or false/false (OR) pair collapses to Null.
func (e *Evaluator) evalLogic(ctx *EvalContext, expr *tipb.Expr, breakRes *bool, combine func(l, r *bool) datum.Datum) (datum.Datum, error) {
	left, right, err := twoChildren(expr)
	if err != nil {
		return datum.Datum{}, err
	}
	leftDatum, err := e.Eval(ctx, left)
	if err != nil {
		return datum.Datum{}, err
	}
	lb, lIsNull, err := intoBoolPtr(leftDatum)
	if err != nil {
		return datum.Datum{}, err
	}
	if !lIsNull && sameBool(breakRes, *lb) {
		return boolDatum(lb), nil
	}
	rightDatum, err := e.Eval(ctx, right)
	if err != nil {
		return datum.Datum{}, err
	}
	rb, rIsNull, err := intoBoolPtr(rightDatum)
	if err != nil {
		return datum.Datum{}, err
	}
	if !rIsNull && sameBool(breakRes, *rb) {
		return boolDatum(rb), nil
	}
	var lv, rv *bool
	if !lIsNull {
		lv = lb
	}
	if !rIsNull {
		rv = rb
	}
	return combine(lv, rv), nil
}

func intoBoolPtr(d datum.Datum) (*bool, bool, error) {
	v, isNull, err := d.IntoBool()
	if err != nil {
		return nil, false, err
	}
	if isNull {
		return nil, true, nil
	}
	return &v, false, nil
}

func boolDatum(b *bool) datum.Datum {
	if b == nil {
		return datum.Null()
	}
	return datum.NewBool(*b)
}

func evalAnd(l, r *bool) datum.Datum {
	if l != nil && r != nil && *l && *r {
		return datum.NewBool(true)
	}
	return datum.Null()
}

func evalOr(l, r *bool) datum.Datum {
	if l != nil && r != nil && !*l && !*r {
		return datum.NewBool(false)
	}
	return datum.Null()
}

func (e *Evaluator) evalNot(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	d, err := e.evalOneChild(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if d.IsNull() {
		return datum.Null(), nil
	}
	b, isNull, err := d.IntoBool()
	if err != nil {
		return datum.Datum{}, err
	}
	if isNull {
		return datum.Null(), nil
	}
	return datum.NewBool(!b), nil
}

func (e *Evaluator) evalArith(ctx *EvalContext, expr *tipb.Expr, op datum.ArithOp) (datum.Datum, error) {
	left, right, err := e.evalTwoChildren(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.Arith(op, left, right)
}

func (e *Evaluator) evalCaseWhen(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children := expr.GetChildren()
	for i := 0; i < len(children); i += 2 {
		if i+1 >= len(children) {
			// trailing unpaired child is the ELSE branch.
			return e.Eval(ctx, children[i])
		}
		cond, err := e.Eval(ctx, children[i])
		if err != nil {
			return datum.Datum{}, err
		}
		b, isNull, err := cond.IntoBool()
		if err != nil {
			return datum.Datum{}, err
		}
		if isNull || !b {
			continue
		}
		return e.Eval(ctx, children[i+1])
	}
	return datum.Null(), nil
}

func (e *Evaluator) evalIf(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children := expr.GetChildren()
	if len(children) != 3 {
		return datum.Datum{}, errs.Exprf("IF expects 3 operands, got %d", len(children))
	}
	cond, err := e.Eval(ctx, children[0])
	if err != nil {
		return datum.Datum{}, err
	}
	b, isNull, err := cond.IntoBool()
	if err != nil {
		return datum.Datum{}, err
	}
	if !isNull && b {
		return e.Eval(ctx, children[1])
	}
	return e.Eval(ctx, children[2])
}

func (e *Evaluator) evalCoalesce(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	for _, child := range expr.GetChildren() {
		d, err := e.Eval(ctx, child)
		if err != nil {
			return datum.Datum{}, err
		}
		if !d.IsNull() {
			return d, nil
		}
	}
	return datum.Null(), nil
}

func (e *Evaluator) evalIfNull(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	left, right, err := twoChildren(expr)
	if err != nil {
		return datum.Datum{}, err
	}
	ld, err := e.Eval(ctx, left)
	if err != nil {
		return datum.Datum{}, err
	}
	if !ld.IsNull() {
		return ld, nil
	}
	return e.Eval(ctx, right)
}

func (e *Evaluator) evalIsNull(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	d, err := e.evalOneChild(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBool(d.IsNull()), nil
}

func (e *Evaluator) evalNullIf(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	left, right, err := e.evalTwoChildren(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if left.IsNull() || right.IsNull() {
		return left, nil
	}
	cmp, err := left.Compare(ctx.TzOffsetSeconds, right)
	if err != nil {
		return datum.Datum{}, err
	}
	if cmp == 0 {
		return datum.Null(), nil
	}
	return left, nil
}
