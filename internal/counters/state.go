package counters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/store"
)

// StoreName is the name the counters store reports to observers.
const StoreName = "counters"

// ErrUnknownKey is returned for a counter name other than x, y or z.
var ErrUnknownKey = errors.New("counters: unknown key")

// Key names one counter.
type Key string

const (
	X Key = "x"
	Y Key = "y"
	Z Key = "z"
)

// Keys lists every counter in display order.
var Keys = []Key{X, Y, Z}

// ParseKey returns the key named s.
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return k, nil
}

// Valid reports whether k is one of x, y or z.
func (k Key) Valid() bool {
	return k == X || k == Y || k == Z
}

// State is the counters state. The action fields are bound to the container
// that owns the state.
type State struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`

	Increment func(k Key) error        `json:"-" store:"-"`
	Decrement func(k Key) error        `json:"-" store:"-"`
	Set       func(k Key, v int) error `json:"-" store:"-"`
}

// Get returns the value of counter k, or zero for an unknown key.
func (s State) Get(k Key) int {
	switch k {
	case X:
		return s.X
	case Y:
		return s.Y
	case Z:
		return s.Z
	}
	return 0
}

// Builder builds a state with every counter at zero.
func Builder(update store.Update[State]) State {
	return build(update, 0, 0, 0)
}

// WithInitial returns a builder that starts the counters at x, y and z.
// It is used as a scope override to shadow an outer store.
func WithInitial(x, y, z int) store.Builder[State] {
	return func(update store.Update[State]) State {
		return build(update, x, y, z)
	}
}

func build(update store.Update[State], x, y, z int) State {
	add := func(k Key, delta int) error {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
		return update(container.Compute(func(s State) container.Partial {
			return container.Partial{string(k): s.Get(k) + delta}
		}))
	}
	return State{
		X: x,
		Y: y,
		Z: z,
		Increment: func(k Key) error {
			return add(k, 1)
		},
		Decrement: func(k Key) error {
			return add(k, -1)
		},
		Set: func(k Key, v int) error {
			if !k.Valid() {
				return fmt.Errorf("%w: %q", ErrUnknownKey, k)
			}
			return update(container.Replace[State](container.Partial{string(k): v}))
		},
	}
}

// NewStore creates the counters store. StoreName is applied before opts.
func NewStore(opts ...store.Option[State]) *store.Store[State] {
	all := append([]store.Option[State]{store.WithName[State](StoreName)}, opts...)
	return store.Create(Builder, all...)
}
