package mjson

import (
	"strconv"
	"strings"

	"github.com/sdh517/tikv/errs"
)

// pathLegKind distinguishes the two addressable leg shapes this subset of
// JSON path syntax supports.
type pathLegKind int8

const (
	legKey pathLegKind = iota
	legIndex
)

type pathLeg struct {
	kind  pathLegKind
	key   string
	index int
}

// Path is a compiled JSON path expression, e.g. "$.a.b[0]". Only a strict
// subset of MySQL's path grammar is supported: a leading "$", dotted
// object-member legs, and bracketed array-index legs. Wildcards ("*", "**")
// and the bare "$" root-only path are rejected for JSON_REMOVE per spec
// §4.3's JSON operator notes (a remove target must name a concrete leaf).
type Path struct {
	legs []pathLeg
}

// CompilePath parses a path expression for JSON_EXTRACT/SET/INSERT/
// REPLACE; use CompileRemovePath for JSON_REMOVE's stricter grammar. A
// ".*" member leg and a "[*]" index leg are accepted here but not
// expanded: ".*" addresses only a member literally named "*", and "[*]"
// addresses nothing. "**" is rejected.
func CompilePath(expr string) (Path, error) {
	return compilePath(expr, false)
}

// CompileRemovePath parses a path expression for JSON_REMOVE, rejecting the
// root path "$" and any wildcard leg.
func CompileRemovePath(expr string) (Path, error) {
	return compilePath(expr, true)
}

func compilePath(expr string, forRemove bool) (Path, error) {
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return Path{}, errs.Evalf("invalid json path %q: must start with $", expr)
	}
	s = s[1:]
	if s == "" {
		if forRemove {
			return Path{}, errs.Evalf("invalid json path %q: cannot remove the root document", expr)
		}
		return Path{}, nil
	}
	var legs []pathLeg
	for len(s) > 0 {
		switch s[0] {
		case '.':
			s = s[1:]
			end := strings.IndexAny(s, ".[")
			if end == -1 {
				end = len(s)
			}
			key := s[:end]
			if key == "" {
				return Path{}, errs.Evalf("invalid json path %q: empty member name", expr)
			}
			if key == "*" {
				if forRemove {
					return Path{}, errs.Evalf("invalid json path %q: wildcard not allowed in JSON_REMOVE", expr)
				}
			}
			legs = append(legs, pathLeg{kind: legKey, key: key})
			s = s[end:]
		case '[':
			end := strings.IndexByte(s, ']')
			if end == -1 {
				return Path{}, errs.Evalf("invalid json path %q: unterminated [", expr)
			}
			inner := strings.TrimSpace(s[1:end])
			if inner == "*" {
				if forRemove {
					return Path{}, errs.Evalf("invalid json path %q: wildcard not allowed in JSON_REMOVE", expr)
				}
				legs = append(legs, pathLeg{kind: legIndex, index: -1})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return Path{}, errs.Evalf("invalid json path %q: bad array index %q", expr, inner)
				}
				legs = append(legs, pathLeg{kind: legIndex, index: idx})
			}
			s = s[end+1:]
		default:
			return Path{}, errs.Evalf("invalid json path %q: unexpected %q", expr, s[0])
		}
	}
	return Path{legs: legs}, nil
}

// IsRoot reports whether the path addresses the document root.
func (p Path) IsRoot() bool { return len(p.legs) == 0 }

// get navigates to the Value at p within v, returning ok=false if any leg
// doesn't resolve (missing key, out-of-range index, or indexing a scalar).
func get(v Value, legs []pathLeg) (Value, bool) {
	if len(legs) == 0 {
		return v, true
	}
	leg := legs[0]
	switch leg.kind {
	case legKey:
		if v.kind != KindObject {
			return Value{}, false
		}
		child, ok := v.obj[leg.key]
		if !ok {
			return Value{}, false
		}
		return get(child, legs[1:])
	case legIndex:
		if v.kind != KindArray {
			// A non-array scalar at index 0 is addressable as itself,
			// matching MySQL's implicit single-element-array behavior.
			if leg.index == 0 {
				return get(v, legs[1:])
			}
			return Value{}, false
		}
		if leg.index < 0 || leg.index >= len(v.arr) {
			return Value{}, false
		}
		return get(v.arr[leg.index], legs[1:])
	default:
		return Value{}, false
	}
}

// Extract resolves paths against doc, returning every match in order. A
// path that doesn't resolve contributes nothing (not an error), matching
// Json::extract's Option-returning per-path behavior composed across
// multiple paths.
func Extract(doc Value, paths []Path) (Value, bool) {
	var matches []Value
	for _, p := range paths {
		if v, ok := get(doc, p.legs); ok {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return Value{}, false
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return Array(matches...), true
}

// ModifyType selects JSON_SET/INSERT/REPLACE's differing overwrite rules.
type ModifyType int8

const (
	ModifySet ModifyType = iota
	ModifyInsert
	ModifyReplace
)

// Modify applies (path, value) pairs to doc in order, per mt, and returns
// the resulting document. len(paths) must equal len(values).
func Modify(doc Value, paths []Path, values []Value, mt ModifyType) (Value, error) {
	if len(paths) != len(values) {
		return Value{}, errs.Evalf("json modify: %d paths but %d values", len(paths), len(values))
	}
	for i, p := range paths {
		var err error
		doc, err = modifyOne(doc, p.legs, values[i], mt)
		if err != nil {
			return Value{}, err
		}
	}
	return doc, nil
}

func modifyOne(v Value, legs []pathLeg, newVal Value, mt ModifyType) (Value, error) {
	if len(legs) == 0 {
		if mt == ModifyInsert {
			return v, nil // a path that already resolves is left untouched by INSERT
		}
		return newVal, nil
	}
	leg := legs[0]
	switch leg.kind {
	case legKey:
		if v.kind == KindNull && len(legs) >= 1 {
			v = Value{kind: KindObject, obj: map[string]Value{}}
		}
		if v.kind != KindObject {
			return v, nil // can't descend into a non-object; leave untouched
		}
		obj := cloneObj(v)
		child, exists := obj.obj[leg.key]
		if !exists {
			if len(legs) == 1 {
				if mt == ModifyReplace {
					return v, nil // REPLACE never creates
				}
				obj.obj[leg.key] = newVal
				obj.keys = append(obj.keys, leg.key)
				return obj, nil
			}
			return v, nil // can't create intermediate containers implicitly
		}
		newChild, err := modifyOne(child, legs[1:], newVal, mt)
		if err != nil {
			return Value{}, err
		}
		obj.obj[leg.key] = newChild
		return obj, nil
	case legIndex:
		if v.kind != KindArray {
			return v, nil
		}
		arr := cloneArr(v)
		if leg.index < 0 || leg.index >= len(arr.arr) {
			if len(legs) == 1 && leg.index == len(arr.arr) {
				if mt == ModifyReplace {
					return v, nil
				}
				arr.arr = append(arr.arr, newVal)
				return arr, nil
			}
			return v, nil
		}
		newChild, err := modifyOne(arr.arr[leg.index], legs[1:], newVal, mt)
		if err != nil {
			return Value{}, err
		}
		arr.arr[leg.index] = newChild
		return arr, nil
	default:
		return v, nil
	}
}

func cloneObj(v Value) Value {
	obj := make(map[string]Value, len(v.obj))
	for k, val := range v.obj {
		obj[k] = val
	}
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)
	return Value{kind: KindObject, obj: obj, keys: keys}
}

func cloneArr(v Value) Value {
	arr := make([]Value, len(v.arr))
	copy(arr, v.arr)
	return Value{kind: KindArray, arr: arr}
}

// Remove deletes the leaves addressed by paths, in order, from doc.
func Remove(doc Value, paths []Path) (Value, error) {
	for _, p := range paths {
		if p.IsRoot() {
			return Value{}, errs.Evalf("json_remove: cannot remove the root document")
		}
		doc = removeOne(doc, p.legs)
	}
	return doc, nil
}

func removeOne(v Value, legs []pathLeg) Value {
	if len(legs) == 0 {
		return v
	}
	leg := legs[0]
	switch leg.kind {
	case legKey:
		if v.kind != KindObject {
			return v
		}
		obj := cloneObj(v)
		if len(legs) == 1 {
			if _, ok := obj.obj[leg.key]; ok {
				delete(obj.obj, leg.key)
				for i, k := range obj.keys {
					if k == leg.key {
						obj.keys = append(obj.keys[:i], obj.keys[i+1:]...)
						break
					}
				}
			}
			return obj
		}
		if child, ok := obj.obj[leg.key]; ok {
			obj.obj[leg.key] = removeOne(child, legs[1:])
		}
		return obj
	case legIndex:
		if v.kind != KindArray {
			return v
		}
		arr := cloneArr(v)
		if leg.index < 0 || leg.index >= len(arr.arr) {
			return arr
		}
		if len(legs) == 1 {
			arr.arr = append(arr.arr[:leg.index], arr.arr[leg.index+1:]...)
			return arr
		}
		arr.arr[leg.index] = removeOne(arr.arr[leg.index], legs[1:])
		return arr
	default:
		return v
	}
}

// Merge implements JSON_MERGE: objects merge key-wise (a key present on
// both sides has its two values merged recursively, so colliding scalars
// become an array of both), arrays/scalars concatenate into a single
// array, matching Json::merge's "auto-wrap the non-array side" behavior.
func Merge(a, b Value) Value {
	if a.kind == KindObject && b.kind == KindObject {
		result := cloneObj(a)
		for _, k := range b.keys {
			bv := b.obj[k]
			if av, ok := result.obj[k]; ok {
				result.obj[k] = Merge(av, bv)
			} else {
				result.obj[k] = bv
				result.keys = append(result.keys, k)
			}
		}
		return result
	}
	return Array(append(toSlice(a), toSlice(b)...)...)
}

func toSlice(v Value) []Value {
	if v.kind == KindArray {
		return v.arr
	}
	return []Value{v}
}
