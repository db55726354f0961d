package expression

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pingcap/tipb/go-tipb"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/errs"
)

// evalLike implements LIKE against the constrained pattern grammar this
// core actually receives (spec §4.3 "LIKE: the planner only pushes down
// `^%?[^\_%]*%?$`-shaped patterns"): an optional leading %, a run of
// characters containing neither _ nor interior %, and an optional
// trailing %. No backslash-escaping or interior wildcard handling is
// needed because the planner guarantees the shape.
func (e *Evaluator) evalLike(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	target, pattern, err := e.evalTwoChildren(ctx, expr)
	if err != nil {
		return datum.Datum{}, err
	}
	if target.IsNull() || pattern.IsNull() {
		return datum.Null(), nil
	}
	targetStr, err := intoString(target)
	if err != nil {
		return datum.Datum{}, err
	}
	patternStr, err := intoString(pattern)
	if err != nil {
		return datum.Datum{}, err
	}

	if hasASCIILetter(patternStr) {
		targetStr = strings.ToLower(targetStr)
		patternStr = strings.ToLower(patternStr)
	}

	n := len(patternStr)
	switch {
	case strings.HasPrefix(patternStr, "%") && strings.HasSuffix(patternStr, "%") && n >= 2:
		return datum.NewBool(strings.Contains(targetStr, patternStr[1:n-1])), nil
	case strings.HasPrefix(patternStr, "%"):
		return datum.NewBool(strings.HasSuffix(targetStr, patternStr[1:])), nil
	case strings.HasSuffix(patternStr, "%"):
		return datum.NewBool(strings.HasPrefix(targetStr, patternStr[:n-1])), nil
	default:
		return datum.NewBool(targetStr == patternStr), nil
	}
}

func hasASCIILetter(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func intoString(d datum.Datum) (string, error) {
	switch d.Kind() {
	case datum.KindBytes:
		return string(d.Bytes()), nil
	case datum.KindI64:
		return strconv.FormatInt(d.I64(), 10), nil
	case datum.KindU64:
		return strconv.FormatUint(d.U64(), 10), nil
	case datum.KindF64:
		return strconv.FormatFloat(d.F64(), 'g', -1, 64), nil
	case datum.KindDecimal:
		return d.Decimal().String(), nil
	default:
		return "", errs.Exprf("cannot coerce kind %s to string", d.Kind())
	}
}

// evalIn implements IN against a pre-sorted value list: the target is
// looked up with a binary search over the ValueList child, mirroring
// check_in's "value_list.binary_search_by" (spec §4.3 "IN: cached/sorted
// value-list binary search").
func (e *Evaluator) evalIn(ctx *EvalContext, expr *tipb.Expr) (datum.Datum, error) {
	left, right, err := twoChildren(expr)
	if err != nil {
		return datum.Datum{}, err
	}
	target, err := e.Eval(ctx, left)
	if err != nil {
		return datum.Datum{}, err
	}
	if target.IsNull() {
		return datum.Null(), nil
	}
	if right.GetTp() != tipb.ExprType_ValueList {
		return datum.Datum{}, errs.Exprf("IN's second child must be a value list")
	}
	values, err := e.decodeValueList(ctx, right)
	if err != nil {
		return datum.Datum{}, err
	}

	found, err := checkIn(ctx, target, values)
	if err != nil {
		return datum.Datum{}, err
	}
	if found {
		return datum.NewBool(true), nil
	}
	if len(values) > 0 && values[0].IsNull() {
		return datum.Null(), nil
	}
	return datum.NewBool(false), nil
}

func (e *Evaluator) decodeValueList(ctx *EvalContext, expr *tipb.Expr) ([]datum.Datum, error) {
	if cached, ok := e.cachedValueList[expr]; ok {
		return cached, nil
	}
	raw, err := decodeDatumList(expr.GetVal(), ctx.TzOffsetSeconds)
	if err != nil {
		return nil, err
	}
	e.cachedValueList[expr] = raw
	return raw, nil
}

// checkIn binary-searches values (assumed sorted ascending, Nulls first)
// for target, surfacing the first comparison error instead of silently
// treating it as "not found" (matching check_in's explicit
// err-propagation). Leading Null entries are skipped, since Compare is
// not defined on Null.
func checkIn(ctx *EvalContext, target datum.Datum, values []datum.Datum) (bool, error) {
	for len(values) > 0 && values[0].IsNull() {
		values = values[1:]
	}
	var cmpErr error
	i := sort.Search(len(values), func(i int) bool {
		if cmpErr != nil {
			return true
		}
		c, err := values[i].Compare(ctx.TzOffsetSeconds, target)
		if err != nil {
			cmpErr = err
			return true
		}
		return c >= 0
	})
	if cmpErr != nil {
		return false, cmpErr
	}
	if i >= len(values) {
		return false, nil
	}
	c, err := values[i].Compare(ctx.TzOffsetSeconds, target)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
