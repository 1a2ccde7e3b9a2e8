package scope

// Key is a typed handle for values stored on a scope. Each Key is distinct,
// even when two keys share a name and type.
type Key[T any] struct {
	name string
}

// NewKey returns a new key. The name is only used for debugging.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// Name returns the name given to NewKey.
func (k *Key[T]) Name() string {
	return k.name
}

// Set binds v to k on s.
func (k *Key[T]) Set(s *Scope, v T) {
	s.Set(k, v)
}

// Get returns the value bound to k on the nearest scope from s upwards.
func (k *Key[T]) Get(s *Scope) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	val, ok := s.Lookup(k)
	if !ok {
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}
