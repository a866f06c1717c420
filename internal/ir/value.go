package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the JSON shapes a snapshot payload may
// hold. Floats have no representation; numbers reach payloads already
// rendered as strings.
type Value interface {
	irValue()
}

// Null is JSON null. Unset record columns serialize as Null.
type Null struct{}

func (Null) irValue() {}

// String is a JSON string.
type String string

func (String) irValue() {}

// Int is a JSON integer. Always int64.
type Int int64

func (Int) irValue() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps string keys to values. Iterate with SortedKeys.
type Object map[string]Value

func (Object) irValue() {}

// OptionalString converts a nullable string to String or Null.
func OptionalString(s *string) Value {
	if s == nil {
		return Null{}
	}
	return String(*s)
}

// StringMap converts a flat string map into an Object.
func StringMap(m map[string]string) Object {
	obj := make(Object, len(m))
	for k, v := range m {
		obj[k] = String(v)
	}
	return obj
}

// FromAny converts plain Go values into a Value tree. Accepted inputs are
// nil, Value, string, *string, bool, int, int64, []any, []string,
// map[string]any and map[string]string.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case *string:
		return OptionalString(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not representable: %v", val)
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]string:
		return StringMap(val), nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
// Plain string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
