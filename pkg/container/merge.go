package container

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// MergeFunc applies p to current and returns the merged state. It must not
// modify current; the container deep-copies the result afterwards.
type MergeFunc[T any] func(current T, p Partial) (T, error)

// Merge shallow-merges p into current and returns the result together with
// the keys that matched no field of a struct state.
//
// Struct and pointer-to-struct states match keys against the `store` tag,
// then the `json` tag, then the field name, the last case-insensitively.
// Fields tagged `store:"-"` are never patched. Map states with string keys
// take every key, adding the ones they did not have. A nil value resets the
// target to its zero value. Numeric values are converted when the conversion
// is lossless, so a float64 decoded from JSON can patch an int field.
func Merge[T any](current T, p Partial) (T, []string, error) {
	var zero T
	src := reflect.ValueOf(&current).Elem()
	out, ignored, err := mergeValue(src, p)
	if err != nil {
		return zero, nil, err
	}
	if out.Kind() == reflect.Interface && out.IsNil() {
		return zero, ignored, nil
	}
	return out.Interface().(T), ignored, nil
}

func mergeValue(v reflect.Value, p Partial) (reflect.Value, []string, error) {
	switch v.Kind() {
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		ignored, err := mergeStruct(out, p)
		return out, ignored, err

	case reflect.Pointer:
		if v.Type().Elem().Kind() != reflect.Struct {
			break
		}
		out := reflect.New(v.Type().Elem())
		if !v.IsNil() {
			out.Elem().Set(v.Elem())
		}
		ignored, err := mergeStruct(out.Elem(), p)
		return out, ignored, err

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len()+len(p))
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		for _, key := range sortedKeys(p) {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := assign(elem, key, p[key]); err != nil {
				return reflect.Value{}, nil, err
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), elem)
		}
		return out, nil, nil

	case reflect.Interface:
		if v.IsNil() {
			if len(p) == 0 {
				return v, nil, nil
			}
			break
		}
		merged, ignored, err := mergeValue(v.Elem(), p)
		if err != nil {
			return reflect.Value{}, nil, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(merged)
		return out, ignored, nil
	}

	if len(p) == 0 {
		return v, nil, nil
	}
	return reflect.Value{}, nil, &PatchError{
		Reason: fmt.Sprintf("state of type %s does not accept partial records", v.Type()),
	}
}

func mergeStruct(dst reflect.Value, p Partial) ([]string, error) {
	fields := structFields(dst.Type())
	var ignored []string
	for _, key := range sortedKeys(p) {
		f, ok := fields.lookup(key)
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		if err := assign(dst.Field(f.index), key, p[key]); err != nil {
			return nil, err
		}
	}
	return ignored, nil
}

// assign stores val into dst, converting where that loses nothing.
func assign(dst reflect.Value, key string, val any) error {
	if val == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(val)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if isNumber(src.Kind()) && isNumber(dst.Kind()) {
		conv, ok := convertNumber(src, dst.Type())
		if !ok {
			return &PatchError{Key: key, Reason: fmt.Sprintf("%v does not fit in %s", val, dst.Type())}
		}
		dst.Set(conv)
		return nil
	}
	if src.Kind() == dst.Kind() && src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return &PatchError{Key: key, Reason: fmt.Sprintf("cannot assign %s to %s", src.Type(), dst.Type())}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// convertNumber converts src to t when the value survives the round trip and
// keeps its sign.
func convertNumber(src reflect.Value, t reflect.Type) (reflect.Value, bool) {
	switch {
	case isFloat(src.Kind()):
		x := src.Float()
		if isFloat(t.Kind()) {
			break
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return reflect.Value{}, false
		}
		if isUnsigned(t.Kind()) && (x < 0 || x >= 1<<64) {
			return reflect.Value{}, false
		}
		if isSigned(t.Kind()) && (x < math.MinInt64 || x >= 1<<63) {
			return reflect.Value{}, false
		}
	case isSigned(src.Kind()):
		if isUnsigned(t.Kind()) && src.Int() < 0 {
			return reflect.Value{}, false
		}
	case isUnsigned(src.Kind()):
		if isSigned(t.Kind()) && src.Uint() > math.MaxInt64 {
			return reflect.Value{}, false
		}
	}
	conv := src.Convert(t)
	back := conv.Convert(src.Type())
	if back.Interface() != src.Interface() {
		return reflect.Value{}, false
	}
	return conv, true
}

// Fields returns the top-level keys of a struct or string-keyed map state
// with their values, skipping function values and `store:"-"` fields.
// Pointers and interfaces are followed. Any other value yields an empty map.
func Fields(v any) map[string]any {
	out := make(map[string]any)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return out
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		for _, f := range structFields(rv.Type()).list {
			fv := rv.Field(f.index)
			if fv.Kind() == reflect.Func {
				continue
			}
			out[f.key] = fv.Interface()
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return out
		}
		iter := rv.MapRange()
		for iter.Next() {
			val := iter.Value()
			if val.Kind() == reflect.Func || (val.Kind() == reflect.Interface && !val.IsNil() && val.Elem().Kind() == reflect.Func) {
				continue
			}
			out[iter.Key().String()] = val.Interface()
		}
	}
	return out
}

type fieldKey struct {
	key   string
	name  string
	index int
}

type fieldSet struct {
	list []fieldKey
}

func (s fieldSet) lookup(key string) (fieldKey, bool) {
	for _, f := range s.list {
		if f.key == key {
			return f, true
		}
	}
	for _, f := range s.list {
		if strings.EqualFold(f.key, key) || strings.EqualFold(f.name, key) {
			return f, true
		}
	}
	return fieldKey{}, false
}

var fieldCache sync.Map // map[reflect.Type]fieldSet

func structFields(t reflect.Type) fieldSet {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(fieldSet)
	}
	var set fieldSet
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		key, ok := keyOf(sf)
		if !ok {
			continue
		}
		set.list = append(set.list, fieldKey{key: key, name: sf.Name, index: i})
	}
	actual, _ := fieldCache.LoadOrStore(t, set)
	return actual.(fieldSet)
}

func keyOf(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	if tag, ok := sf.Tag.Lookup("store"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name, true
		}
	}
	return sf.Name, true
}

func sortedKeys(p Partial) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
