package container

import (
	"fmt"
	"reflect"
	"strconv"
)

// CloneFunc returns a deep copy of v.
type CloneFunc[T any] func(v T) (T, error)

// Cloner is implemented by states that know how to copy themselves.
// The returned value must share no mutable memory with the receiver.
type Cloner[T any] interface {
	Clone() T
}

// DeepCopy returns a copy of v that shares no mutable memory with it.
//
// Exported struct fields, pointers, maps, slices, arrays and interfaces are
// copied recursively. Function values are shared, since they cannot be
// mutated. Unexported struct fields are copied shallowly. Non-nil channels
// and unsafe pointers fail with ErrUncopyable, pointer, map or slice cycles
// with ErrCyclic; both are wrapped in a *CloneError.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	src := reflect.ValueOf(&v).Elem()
	c := copier{visiting: make(map[visit]struct{})}
	out, err := c.copy(src, src.Type().String())
	if err != nil {
		return zero, err
	}
	if out.Kind() == reflect.Interface && out.IsNil() {
		return zero, nil
	}
	return out.Interface().(T), nil
}

// visit identifies a reference currently on the copy path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

type copier struct {
	visiting map[visit]struct{}
}

func (c *copier) enter(v reflect.Value, path string) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if _, ok := c.visiting[key]; ok {
		return nil, &CloneError{Path: path, Err: ErrCyclic}
	}
	c.visiting[key] = struct{}{}
	return func() { delete(c.visiting, key) }, nil
}

func (c *copier) copy(v reflect.Value, path string) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Invalid:
		return v, nil

	case reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		return reflect.Value{}, &CloneError{Path: path, Err: ErrUncopyable}

	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		leave, err := c.enter(v, path)
		if err != nil {
			return reflect.Value{}, err
		}
		defer leave()
		elem, err := c.copy(v.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(elem)
		return out, nil

	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		elem, err := c.copy(v.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out, nil

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			field, err := c.copy(v.Field(i), path+"."+sf.Name)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Field(i).Set(field)
		}
		return out, nil

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		if v.Len() > 0 {
			leave, err := c.enter(v, path)
			if err != nil {
				return reflect.Value{}, err
			}
			defer leave()
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := c.copy(v.Index(i), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			elem, err := c.copy(v.Index(i), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type()), nil
		}
		leave, err := c.enter(v, path)
		if err != nil {
			return reflect.Value{}, err
		}
		defer leave()
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			keyPath := path + "[" + formatKey(iter.Key()) + "]"
			key, err := c.copy(iter.Key(), keyPath)
			if err != nil {
				return reflect.Value{}, err
			}
			val, err := c.copy(iter.Value(), keyPath)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(key, val)
		}
		return out, nil

	default:
		// Scalars and funcs are immutable.
		return v, nil
	}
}

func formatKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return strconv.Quote(k.String())
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.Type().String()
}
