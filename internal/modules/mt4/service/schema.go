package service

import (
	"fmt"
	"math"
	"time"
)

// The wire protocol declares a shape for every reply and event payload: a
// recursive model of required and optional typed fields with defaults. One
// generic conformer interprets the declared shape against the decoded JSON
// tree, so message decoding stays declarative instead of hand-written per
// message.

type kind uint8

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindTime // integer Unix seconds on the wire
	kindObject
	kindArray
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindInt:
		return "int"
	case kindFloat:
		return "float"
	case kindBool:
		return "bool"
	case kindTime:
		return "time"
	case kindObject:
		return "object"
	case kindArray:
		return "array"
	}
	return "kind(?)"
}

type field struct {
	kind     kind
	required bool
	def      interface{}      // replaces a missing optional value
	fields   map[string]field // kindObject
	elem     *field           // kindArray, homogeneous element type
	tuple    []field          // kindArray, fixed arity
}

func req(k kind) field { return field{kind: k, required: true} }

func opt(k kind, def interface{}) field { return field{kind: k, def: def} }

func reqObj(fields map[string]field) field {
	return field{kind: kindObject, required: true, fields: fields}
}

func optObj(fields map[string]field) field {
	return field{kind: kindObject, fields: fields}
}

func reqArr(elem field) field {
	return field{kind: kindArray, required: true, elem: &elem}
}

func optArr(elem field) field {
	return field{kind: kindArray, elem: &elem}
}

func reqTuple(elems ...field) field {
	return field{kind: kindArray, required: true, tuple: elems}
}

type shapeError struct {
	path string
	msg  string
}

func (e *shapeError) Error() string {
	if e.path == "" {
		return "malformed payload: " + e.msg
	}
	return fmt.Sprintf("malformed payload at '%s': %s", e.path, e.msg)
}

// conform validates v against f and returns the normalized value: missing
// optionals replaced by their defaults, ints as int64, epoch seconds as
// time.Time, objects and arrays rebuilt with every declared member present.
func conform(f field, v interface{}, path string) (interface{}, error) {
	switch f.kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return f.fallback(v, path)
		}
		return s, nil

	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return f.fallback(v, path)
		}
		return b, nil

	case kindFloat:
		n, ok := v.(float64)
		if !ok {
			return f.fallback(v, path)
		}
		return n, nil

	case kindInt:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return f.fallback(v, path)
		}
		return int64(n), nil

	case kindTime:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return f.fallback(v, path)
		}
		return time.Unix(int64(n), 0).UTC(), nil

	case kindObject:
		obj, ok := v.(map[string]interface{})
		if !ok {
			return f.fallback(v, path)
		}
		out := make(map[string]interface{}, len(f.fields))
		for name, sub := range f.fields {
			child, present := obj[name]
			if !present {
				child = nil
			}
			norm, err := conform(sub, child, joinPath(path, name))
			if err != nil {
				return nil, err
			}
			out[name] = norm
		}
		return out, nil

	case kindArray:
		arr, ok := v.([]interface{})
		if !ok {
			return f.fallback(v, path)
		}
		if f.tuple != nil {
			if len(arr) != len(f.tuple) {
				return nil, &shapeError{path: path, msg: fmt.Sprintf("expected %d elements, got %d", len(f.tuple), len(arr))}
			}
			out := make([]interface{}, len(arr))
			for i, sub := range f.tuple {
				norm, err := conform(sub, arr[i], indexPath(path, i))
				if err != nil {
					return nil, err
				}
				out[i] = norm
			}
			return out, nil
		}
		out := make([]interface{}, len(arr))
		for i, el := range arr {
			norm, err := conform(*f.elem, el, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	}

	return nil, &shapeError{path: path, msg: "unknown shape kind"}
}

// fallback resolves a missing or mistyped value: required fields fail,
// optional fields yield their declared default or the kind's zero value.
func (f field) fallback(v interface{}, path string) (interface{}, error) {
	if f.required {
		if v == nil {
			return nil, &shapeError{path: path, msg: "required value is missing"}
		}
		return nil, &shapeError{path: path, msg: fmt.Sprintf("expected %s, got %T", f.kind, v)}
	}
	if f.def != nil {
		return f.def, nil
	}
	switch f.kind {
	case kindString:
		return "", nil
	case kindBool:
		return false, nil
	case kindFloat:
		return float64(0), nil
	case kindInt:
		return int64(0), nil
	case kindTime:
		return time.Time{}, nil
	case kindObject:
		out := make(map[string]interface{}, len(f.fields))
		for name, sub := range f.fields {
			norm, err := conform(sub, nil, joinPath(path, name))
			if err != nil {
				return nil, err
			}
			out[name] = norm
		}
		return out, nil
	case kindArray:
		return []interface{}{}, nil
	}
	return nil, &shapeError{path: path, msg: "unknown shape kind"}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// hasKey reports whether the raw (pre-conform) payload carries a key; the
// normalized tree cannot tell a default from a present value.
func hasKey(payload interface{}, key string) bool {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return false
	}
	_, present := obj[key]
	return present
}

// Typed accessors over a conformed tree. They are only safe on values that
// passed conform with the matching shape.

func docObj(v interface{}) map[string]interface{} { m, _ := v.(map[string]interface{}); return m }

func docArr(v interface{}) []interface{} { a, _ := v.([]interface{}); return a }

func docStr(v interface{}) string { s, _ := v.(string); return s }

func docBool(v interface{}) bool { b, _ := v.(bool); return b }

func docF64(v interface{}) float64 { n, _ := v.(float64); return n }

func docI64(v interface{}) int64 { n, _ := v.(int64); return n }

func docInt(v interface{}) int { n, _ := v.(int64); return int(n) }

func docTime(v interface{}) time.Time { t, _ := v.(time.Time); return t }
