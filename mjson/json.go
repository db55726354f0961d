// Package mjson implements the Json Datum payload: an in-memory JSON tree,
// dotted/bracketed path expressions, and the JSON_* operators the evaluator
// dispatches to (spec §4.3 "JSON operators").
//
// Ported from tikv's coprocessor/codec/mysql/json (see
// _examples/original_source's evaluator.rs call sites into
// Json::{modify,remove,extract,unquote,json_type}); that package isn't
// itself part of the retrieval pack, so the tree representation below is
// built directly on encoding/json rather than transliterated line-by-line.
package mjson

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/sdh517/tikv/errs"
)

// Kind tags the shape of a Value, mirroring MySQL's JSON_TYPE() vocabulary.
type Kind int8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is an immutable-by-convention JSON tree node. Mutating operators
// (Set/Insert/Replace/Remove/Merge) return a new Value rather than editing
// in place, matching the Datum lifecycle rule that payloads aren't shared
// across rows (spec §3 "Lifecycles").
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
	// keys preserves object insertion order for deterministic MarshalJSON
	// and JSON_OBJECT output.
	keys []string
}

// Null is the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Number wraps a float64.
func Number(v float64) Value { return Value{kind: KindNumber, n: v} }

// String wraps a string.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Array builds a JSON array from elements, in order.
func Array(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindArray, arr: cp}
}

// Object builds a JSON object from the given keys (in order) and values.
// len(keys) must equal len(values); a repeated key keeps its first
// position but takes the later value, matching JSON_OBJECT's semantics.
func Object(keys []string, values []Value) (Value, error) {
	if len(keys) != len(values) {
		return Value{}, errs.Evalf("json_object: %d keys but %d values", len(keys), len(values))
	}
	obj := make(map[string]Value, len(keys))
	order := make([]string, 0, len(keys))
	for i, k := range keys {
		if _, ok := obj[k]; !ok {
			order = append(order, k)
		}
		obj[k] = values[i]
	}
	return Value{kind: KindObject, obj: obj, keys: order}, nil
}

// Kind reports the value's shape.
func (v Value) Kind() Kind { return v.kind }

// JSONType renders MySQL's JSON_TYPE() string for v.
func (v Value) JSONType() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOLEAN"
	case KindNumber:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindArray:
		return "ARRAY"
	case KindObject:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// Parse decodes a JSON text into a Value, matching Json::from_str.
func Parse(text string) (Value, error) {
	var raw any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Value{}, errs.Decodef("invalid json %q: %v", text, err)
	}
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, errs.Decodef("invalid json number %q: %v", x, err)
		}
		return Number(f), nil
	case string:
		return String(x), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := fromAny(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Array(elems...), nil
	case map[string]any:
		// encoding/json discards key order in map[string]any; MySQL's
		// JSON object display order isn't semantically meaningful for
		// parsed (as opposed to JSON_OBJECT-built) documents, so a
		// deterministic sort keeps String()/MarshalJSON stable.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]Value, len(keys))
		for i, k := range keys {
			v, err := fromAny(x[k])
			if err != nil {
				return Value{}, err
			}
			vals[i] = v
		}
		obj, _ := Object(keys, vals)
		return obj, nil
	default:
		return Value{}, errs.Decodef("unsupported json value %#v", raw)
	}
}

// String renders v as compact JSON text.
func (v Value) String() string {
	b, _ := json.Marshal(v)
	return string(b)
}

// MarshalJSON implements json.Marshaler, used by String and by callers that
// embed a Value inside a larger document.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindNumber:
		return []byte(strconv.FormatFloat(v.n, 'g', -1, 64)), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			sb.Write(vb)
		}
		sb.WriteByte('}')
		return []byte(sb.String()), nil
	default:
		return nil, errs.Evalf("unknown json kind %d", v.kind)
	}
}

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.keys) != len(other.keys) {
			return false
		}
		for _, k := range v.keys {
			ov, ok := other.obj[k]
			if !ok || !v.obj[k].Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Unquote implements JSON_UNQUOTE: a JSON string value is unescaped to its
// raw text; any other kind round-trips through its JSON text form.
func (v Value) Unquote() (string, error) {
	if v.kind == KindString {
		return v.s, nil
	}
	return v.String(), nil
}

