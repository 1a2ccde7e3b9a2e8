package store

import "errors"

// ErrMissingScope is returned when a selection or update finds no enclosing
// scope that carries the store, or when an update runs before the scope's
// container exists.
var ErrMissingScope = errors.New("scopestore: no enclosing scope for store")

// ErrSelectorType is returned by Select when no selector is given and the
// state type cannot be assigned to the selection type.
var ErrSelectorType = errors.New("scopestore: state type is not assignable to selection type")

// ErrNoBuilder is returned by Scope when neither the store nor the call
// supplies a builder.
var ErrNoBuilder = errors.New("scopestore: store has no builder")
