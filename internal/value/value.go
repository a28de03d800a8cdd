package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a dynamically typed variable binding: null, bool, int, float, string,
// list or map. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    map[string]Value
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// List copies items into a new list value.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Map copies entries into a new map value.
func Map(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the numeric value of an int or float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		cp[k] = e
	}
	return cp, true
}

// Any converts v into plain Go values: nil, bool, int64, float64, string,
// []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Any()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts a native Go value into a Value. All signed and unsigned
// integer types become KindInt; json.Number becomes KindInt when integral.
// Non-finite floats are rejected.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("%w: %q", ErrUnsupportedType, t.String())
		}
		return fromFloat(f)
	case string:
		return String(t), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			items[i] = ev
		}
		return Value{kind: KindList, list: items}, nil
	case []string:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = String(e)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]Value:
		return Map(t), nil
	case map[string]any:
		entries := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			entries[k] = ev
		}
		return Value{kind: KindMap, m: entries}, nil
	default:
		return Null(), fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Null(), fmt.Errorf("%w: %d overflows int64", ErrUnsupportedType, u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null(), fmt.Errorf("%w: %v", ErrNonFinite, f)
	}
	return Float(f), nil
}

// Equal reports deep equality. Ints and floats are never equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for use as an entity id or in logs. Strings are returned
// without quotes.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
