// Package anyjson provides Value, a recursive tagged union for arbitrary JSON
// documents such as user and app metadata.
//
// Numbers keep their literal text so a decode followed by an encode never
// loses precision.
package anyjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

// NullValue returns the JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// IntValue wraps an integer.
func IntValue(n int64) Value {
	return Value{kind: Number, num: json.Number(strconv.FormatInt(n, 10))}
}

// FloatValue wraps a float.
func FloatValue(f float64) Value {
	return Value{kind: Number, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// NumberValue wraps a literal JSON number. It returns an error if n is not a
// valid JSON number.
func NumberValue(n json.Number) (Value, error) {
	var parsed any
	if err := json.Unmarshal([]byte(n), &parsed); err != nil {
		return Value{}, fmt.Errorf("anyjson: invalid number %q", string(n))
	}
	if _, ok := parsed.(float64); !ok {
		return Value{}, fmt.Errorf("anyjson: invalid number %q", string(n))
	}
	return Value{kind: Number, num: n}, nil
}

// ArrayValue wraps a list of values.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ObjectValue wraps a map of values.
func ObjectValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: Object, obj: m}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean and whether v holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == Bool }

// Text returns the string and whether v holds one.
func (v Value) Text() (string, bool) { return v.str, v.kind == String }

// Number returns the literal number and whether v holds one.
func (v Value) Number() (json.Number, bool) { return v.num, v.kind == Number }

// Float returns the number as a float64.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Int returns the number as an int64 when it is integral.
func (v Value) Int() (int64, bool) {
	if v.kind != Number {
		return 0, false
	}
	n, err := v.num.Int64()
	return n, err == nil
}

// Array returns the elements and whether v holds an array.
func (v Value) Array() ([]Value, bool) { return v.arr, v.kind == Array }

// Object returns the members and whether v holds an object.
func (v Value) Object() (map[string]Value, bool) { return v.obj, v.kind == Object }

// Get returns the member named key when v is an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Clone returns a deep copy of v. Arrays and objects share no storage with v.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		v.arr = cloneSlice(v.arr)
	case Object:
		v.obj = CloneMap(v.obj)
	}
	return v
}

// CloneMap deep-copies a metadata map. A nil map stays nil.
func CloneMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, item := range m {
		out[k] = item.Clone()
	}
	return out
}

func cloneSlice(items []Value) []Value {
	if items == nil {
		return nil
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// Equal reports whether a and b hold the same JSON value. Numbers compare by
// numeric value and object key order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case String:
		return a.str == b.str
	case Number:
		if a.num == b.num {
			return true
		}
		fa, errA := a.num.Float64()
		fb, errB := b.num.Float64()
		return errA == nil && errB == nil && fa == fb
	case Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(v.b)
	case Number:
		return []byte(v.num), nil
	case String:
		return json.Marshal(v.str)
	case Array:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case Object:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("anyjson: unknown kind %s", v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("anyjson: %w", err)
	}

	out, err := fromRaw(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// FromAny converts a value produced by encoding/json (or built by hand from
// the same Go types) into a Value.
func FromAny(x any) (Value, error) {
	return fromRaw(x)
}

func fromRaw(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return Value{kind: Number, num: t}, nil
	case float64:
		return FloatValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case string:
		return StringValue(t), nil
	case []any:
		arr := make([]Value, len(t))
		for i, item := range t {
			el, err := fromRaw(item)
			if err != nil {
				return Value{}, err
			}
			arr[i] = el
		}
		return ArrayValue(arr...), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			el, err := fromRaw(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = el
		}
		return ObjectValue(obj), nil
	default:
		return Value{}, fmt.Errorf("anyjson: unsupported type %T", raw)
	}
}

// Any converts v back into plain Go values: nil, bool, json.Number, string,
// []any and map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.num
	case String:
		return v.str
	case Array:
		out := make([]any, len(v.arr))
		for i, el := range v.arr {
			out[i] = el.Any()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.obj))
		for k, el := range v.obj {
			out[k] = el.Any()
		}
		return out
	default:
		return nil
	}
}
