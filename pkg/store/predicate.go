package store

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// StrictEqual compares like the == operator where Go allows it. Slices,
// maps, pointers, channels and funcs compare by identity, so a newly
// allocated slice is never equal to the previous one. Structs, arrays and
// interfaces compare element by element under the same rules.
func StrictEqual[R any](next, prev R) bool {
	return strictEqual(reflect.ValueOf(&next).Elem(), reflect.ValueOf(&prev).Elem())
}

func strictEqual(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a.Kind() {
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return strictEqual(a.Elem(), b.Elem())

	case reflect.Slice:
		return a.Pointer() == b.Pointer() && a.Len() == b.Len() && a.IsNil() == b.IsNil()

	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()

	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !strictEqual(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !strictEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	default:
		return a.Equal(b)
	}
}

// DeepEqual compares structurally with reflect.DeepEqual.
func DeepEqual[R any](next, prev R) bool {
	return reflect.DeepEqual(next, prev)
}

// JSONEqual reports whether both values have the same JSON encoding. Values
// that cannot be encoded, such as NaN, channels or funcs, are never equal, so
// a binding using JSONEqual surfaces a new value on every notification while
// its selection holds one.
func JSONEqual[R any](next, prev R) bool {
	a, err := json.Marshal(next)
	if err != nil {
		return false
	}
	b, err := json.Marshal(prev)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
