package expression

import (
	"github.com/pingcap/tipb/go-tipb"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
	"github.com/sdh517/tikv/mjson"
)

// castAsJSON coerces d to a JSON value the way MySQL's implicit
// JSON-function argument cast does: a JSON Datum passes through, a Bytes
// Datum is parsed as JSON text, Null becomes JSON null, and an integer or
// float Datum is wrapped as a JSON number; any other kind is an error
// (spec §4.3 "JSON functions implicitly cast their document argument").
func castAsJSON(d datum.Datum) (mjson.Value, error) {
	switch d.Kind() {
	case datum.KindNull:
		return mjson.Null(), nil
	case datum.KindJSON:
		return d.JSON(), nil
	case datum.KindBytes:
		return mjson.Parse(string(d.Bytes()))
	case datum.KindI64:
		return mjson.Number(float64(d.I64())), nil
	case datum.KindU64:
		return mjson.Number(float64(d.U64())), nil
	case datum.KindF64:
		return mjson.Number(d.F64()), nil
	default:
		return mjson.Value{}, errs.Exprf("cannot cast kind %s to json", d.Kind())
	}
}

// intoJSON coerces a JSON-function value operand to a JSON value
// without the document-argument's implicit Bytes-as-text parse: a
// Bytes operand becomes a JSON string scalar, matching the Rust source's
// split between `cast_as_json` (document arg) and `into_json` (value
// arg).
func intoJSON(d datum.Datum) (mjson.Value, error) {
	if d.Kind() == datum.KindBytes {
		return mjson.String(string(d.Bytes())), nil
	}
	return castAsJSON(d)
}

func toJSONPathExpr(d datum.Datum) (mjson.Path, error) {
	s, err := intoString(d)
	if err != nil {
		return mjson.Path{}, err
	}
	return mjson.CompilePath(s)
}

func toJSONRemovePathExpr(d datum.Datum) (mjson.Path, error) {
	s, err := intoString(d)
	if err != nil {
		return mjson.Path{}, err
	}
	return mjson.CompileRemovePath(s)
}

func anyNull(ds []datum.Datum) bool {
	for _, d := range ds {
		if d.IsNull() {
			return true
		}
	}
	return false
}

// evalJSONModify implements JSON_SET/INSERT/REPLACE (spec §4.3): an odd
// number of operands (document, then path/value pairs), where a Null
// document or a Null occupying a path position collapses the whole call
// to Null, but a Null occupying a value position does not (matching
// `eval_json_modify`'s parity-based Null check).
func (e *Evaluator) evalJSONModify(ctx *EvalContext, expr *tipb.Expr, mt mjson.ModifyType) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 3)
	if err != nil {
		return datum.Datum{}, err
	}
	if len(children)%2 == 0 {
		return datum.Datum{}, errs.Exprf("json modify expects an odd number of operands, got %d", len(children))
	}
	for i, d := range children {
		if d.IsNull() && (i == 0 || i%2 == 1) {
			return datum.Null(), nil
		}
	}

	doc, err := castAsJSON(children[0])
	if err != nil {
		return datum.Datum{}, err
	}
	kvLen := (len(children) - 1) / 2
	paths := make([]mjson.Path, 0, kvLen)
	values := make([]mjson.Value, 0, kvLen)
	for i := 1; i < len(children); i += 2 {
		p, err := toJSONPathExpr(children[i])
		if err != nil {
			return datum.Datum{}, err
		}
		v, err := intoJSON(children[i+1])
		if err != nil {
			return datum.Datum{}, err
		}
		paths = append(paths, p)
		values = append(values, v)
	}
	result, err := mjson.Modify(doc, paths, values, mt)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewJSON(result), nil
}

func (e *Evaluator) evalJSONRemove(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 2)
	if err != nil {
		return datum.Datum{}, err
	}
	if anyNull(children) {
		return datum.Null(), nil
	}
	doc, err := castAsJSON(children[0])
	if err != nil {
		return datum.Datum{}, err
	}
	paths := make([]mjson.Path, 0, len(children)-1)
	for _, d := range children[1:] {
		p, err := toJSONRemovePathExpr(d)
		if err != nil {
			return datum.Datum{}, err
		}
		paths = append(paths, p)
	}
	result, err := mjson.Remove(doc, paths)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewJSON(result), nil
}

func (e *Evaluator) evalJSONUnquote(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	d, err := e.evalOneChild(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if d.IsNull() {
		return datum.Null(), nil
	}
	jv, err := intoJSON(d)
	if err != nil {
		return datum.Datum{}, err
	}
	s, err := jv.Unquote()
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBytes([]byte(s)), nil
}

func (e *Evaluator) evalJSONExtract(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 2)
	if err != nil {
		return datum.Datum{}, err
	}
	if anyNull(children) {
		return datum.Null(), nil
	}
	doc, err := castAsJSON(children[0])
	if err != nil {
		return datum.Datum{}, err
	}
	paths := make([]mjson.Path, 0, len(children)-1)
	for _, d := range children[1:] {
		p, err := toJSONPathExpr(d)
		if err != nil {
			return datum.Datum{}, err
		}
		paths = append(paths, p)
	}
	result, ok := mjson.Extract(doc, paths)
	if !ok {
		return datum.Null(), nil
	}
	return datum.NewJSON(result), nil
}

func (e *Evaluator) evalJSONType(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	d, err := e.evalOneChild(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if d.IsNull() {
		return datum.Null(), nil
	}
	jv, err := castAsJSON(d)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewBytes([]byte(jv.JSONType())), nil
}

func (e *Evaluator) evalJSONMerge(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 2)
	if err != nil {
		return datum.Datum{}, err
	}
	if anyNull(children) {
		return datum.Null(), nil
	}
	res, err := castAsJSON(children[0])
	if err != nil {
		return datum.Datum{}, err
	}
	for _, d := range children[1:] {
		jv, err := castAsJSON(d)
		if err != nil {
			return datum.Datum{}, err
		}
		res = mjson.Merge(res, jv)
	}
	return datum.NewJSON(res), nil
}

func (e *Evaluator) evalJSONObject(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 0)
	if err != nil {
		return datum.Datum{}, err
	}
	if len(children)%2 != 0 {
		return datum.Datum{}, errs.Exprf("JSON_OBJECT expects an even number of operands, got %d", len(children))
	}
	keys := make([]string, 0, len(children)/2)
	values := make([]mjson.Value, 0, len(children)/2)
	for i := 0; i < len(children); i += 2 {
		if children[i].IsNull() {
			return datum.Datum{}, errs.Exprf("JSON_OBJECT keys must not be NULL")
		}
		key, err := intoString(children[i])
		if err != nil {
			return datum.Datum{}, err
		}
		val, err := intoJSON(children[i+1])
		if err != nil {
			return datum.Datum{}, err
		}
		keys = append(keys, key)
		values = append(values, val)
	}
	obj, err := mjson.Object(keys, values)
	if err != nil {
		return datum.Datum{}, err
	}
	return datum.NewJSON(obj), nil
}

func (e *Evaluator) evalJSONArray(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	children, err := e.evalMoreChildren(ctx, expr, 0)
	if err != nil {
		return datum.Datum{}, err
	}
	values := make([]mjson.Value, 0, len(children))
	for _, d := range children {
		v, err := intoJSON(d)
		if err != nil {
			return datum.Datum{}, err
		}
		values = append(values, v)
	}
	return datum.NewJSON(mjson.Array(values...)), nil
}
