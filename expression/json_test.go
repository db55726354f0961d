package expression

import (
	"testing"

	"github.com/pingcap/tipb/go-tipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdh517/tikv/datum"
	"github.com/sdh517/tikv/mjson"
)

func jsonExpr(t *testing.T, text string) *tipb.Expr {
	t.Helper()
	return &tipb.Expr{Tp: tipb.ExprType_MysqlJson, Val: []byte(text)}
}

func TestEvalJSONSet(t *testing.T) {
	ctx := newCtx(t)
	expr := &tipb.Expr{
		Tp: tipb.ExprType_JsonSet,
		Children: []*tipb.Expr{
			jsonExpr(t, `{"a": 1}`),
			bytesExpr("$.b"),
			intExpr(2),
		},
	}
	d := evalOne(t, ctx, expr)
	require.Equal(t, datum.KindJSON, d.Kind())
	assert.Equal(t, `{"a":1,"b":2}`, d.JSON().String())
}

func TestEvalJSONSetNullDocumentIsNull(t *testing.T) {
	ctx := newCtx(t)
	expr := &tipb.Expr{
		Tp: tipb.ExprType_JsonSet,
		Children: []*tipb.Expr{
			nullExpr(),
			bytesExpr("$.b"),
			intExpr(2),
		},
	}
	assert.True(t, evalOne(t, ctx, expr).IsNull())
}

func TestEvalJSONExtract(t *testing.T) {
	ctx := newCtx(t)
	expr := &tipb.Expr{
		Tp: tipb.ExprType_JsonExtract,
		Children: []*tipb.Expr{
			jsonExpr(t, `{"a": {"b": 5}}`),
			bytesExpr("$.a.b"),
		},
	}
	d := evalOne(t, ctx, expr)
	require.Equal(t, datum.KindJSON, d.Kind())
	assert.Equal(t, mjson.KindNumber, d.JSON().Kind())
}

func TestEvalJSONTypeAndUnquote(t *testing.T) {
	ctx := newCtx(t)
	typeExpr := &tipb.Expr{Tp: tipb.ExprType_JsonType, Children: []*tipb.Expr{jsonExpr(t, `[1,2]`)}}
	assert.Equal(t, "ARRAY", string(evalOne(t, ctx, typeExpr).Bytes()))

	unquoteExpr := &tipb.Expr{Tp: tipb.ExprType_JsonUnquote, Children: []*tipb.Expr{jsonExpr(t, `"hi"`)}}
	assert.Equal(t, "hi", string(evalOne(t, ctx, unquoteExpr).Bytes()))
}

func TestEvalJSONMerge(t *testing.T) {
	ctx := newCtx(t)
	expr := &tipb.Expr{
		Tp: tipb.ExprType_JsonMerge,
		Children: []*tipb.Expr{
			jsonExpr(t, `{"a": 1}`),
			jsonExpr(t, `{"b": 2}`),
		},
	}
	d := evalOne(t, ctx, expr)
	assert.Equal(t, mjson.KindObject, d.JSON().Kind())
}

func TestEvalJSONRemove(t *testing.T) {
	ctx := newCtx(t)
	expr := &tipb.Expr{
		Tp: tipb.ExprType_JsonRemove,
		Children: []*tipb.Expr{
			jsonExpr(t, `{"a": 1, "b": 2}`),
			bytesExpr("$.a"),
		},
	}
	d := evalOne(t, ctx, expr)
	assert.Equal(t, `{"b":2}`, d.JSON().String())
}

func TestEvalJSONObjectAndArray(t *testing.T) {
	ctx := newCtx(t)
	obj := &tipb.Expr{
		Tp:       tipb.ExprType_JsonObject,
		Children: []*tipb.Expr{bytesExpr("k"), intExpr(1)},
	}
	assert.Equal(t, mjson.KindObject, evalOne(t, ctx, obj).JSON().Kind())

	arr := &tipb.Expr{
		Tp:       tipb.ExprType_JsonArray,
		Children: []*tipb.Expr{intExpr(1), intExpr(2)},
	}
	assert.Equal(t, mjson.KindArray, evalOne(t, ctx, arr).JSON().Kind())
}
