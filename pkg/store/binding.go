package store

import (
	"reflect"
	"sync"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/observe"
	"github.com/vango-dev/scopestore/pkg/scope"
)

// Selector derives the value a consumer cares about from the state.
type Selector[T, R any] func(state T) R

// Predicate reports whether next and prev are equivalent. An equivalent
// value is not surfaced to the consumer.
type Predicate[R any] func(next, prev R) bool

// BindingState is the lifecycle state of a Binding.
type BindingState uint8

const (
	// Unbound is the state before the first evaluation.
	Unbound BindingState = iota

	// Bound is the state while the binding is subscribed.
	Bound

	// Detached is terminal. No notification is delivered afterwards.
	Detached
)

// String returns a human-readable name for the binding state.
func (s BindingState) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

type selectConfig[R any] struct {
	predicate Predicate[R]
	onChange  func(R)
}

// SelectOption configures a Binding.
type SelectOption[R any] func(*selectConfig[R])

// WithPredicate replaces the default StrictEqual predicate.
func WithPredicate[R any](p Predicate[R]) SelectOption[R] {
	return func(c *selectConfig[R]) {
		if p != nil {
			c.predicate = p
		}
	}
}

// OnChange registers fn to run with the new value each time the binding
// surfaces one. fn runs outside every store lock and may update the store.
func OnChange[R any](fn func(R)) SelectOption[R] {
	return func(c *selectConfig[R]) {
		c.onChange = fn
	}
}

// Binding is one consumer's view of a container: a selector, a predicate and
// the last value that was surfaced.
type Binding[R any] struct {
	id uint64

	mu      sync.Mutex
	state   BindingState
	value   R
	changes int

	eval        func() R
	predicate   Predicate[R]
	onChange    func(R)
	unsubscribe func()

	// release unregisters Detach from the consumer region.
	release func()

	observer  observe.Observer
	store     string
	container uint64
}

// Select binds selector to the innermost container of s at or above region.
// A nil selector selects the whole state. The binding detaches when region
// is disposed.
func Select[T, R any](s *Store[T], region *scope.Scope, selector Selector[T, R], opts ...SelectOption[R]) (*Binding[R], error) {
	c, err := s.Container(region)
	if err != nil {
		return nil, err
	}
	if selector == nil {
		selector, err = identity[T, R]()
		if err != nil {
			return nil, err
		}
	}

	cfg := selectConfig[R]{predicate: StrictEqual[R]}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	b := &Binding[R]{
		id:        container.NextID(),
		eval:      func() R { return selector(c.GetState()) },
		predicate: cfg.predicate,
		onChange:  cfg.onChange,
		observer:  s.observer,
		store:     s.name,
		container: c.ID(),
	}

	b.mu.Lock()
	b.unsubscribe = c.Subscribe(b)
	b.value = b.eval()
	b.state = Bound
	b.mu.Unlock()

	release := region.OnDispose(b.Detach)
	b.mu.Lock()
	if b.state == Detached {
		b.mu.Unlock()
		release()
		return b, nil
	}
	b.release = release
	b.mu.Unlock()
	return b, nil
}

// Use binds to the whole state of the innermost container.
func Use[T any](s *Store[T], region *scope.Scope, opts ...SelectOption[T]) (*Binding[T], error) {
	return Select[T, T](s, region, nil, opts...)
}

func identity[T, R any]() (Selector[T, R], error) {
	from := reflect.TypeOf((*T)(nil)).Elem()
	to := reflect.TypeOf((*R)(nil)).Elem()
	if !from.AssignableTo(to) {
		return nil, ErrSelectorType
	}
	return func(state T) R {
		r, _ := any(state).(R)
		return r
	}, nil
}

// ID identifies the binding's subscription.
func (b *Binding[R]) ID() uint64 {
	return b.id
}

// Value returns the last surfaced value.
func (b *Binding[R]) Value() R {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// State returns the lifecycle state of the binding.
func (b *Binding[R]) State() BindingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Changes returns how many new values were surfaced after the initial one.
func (b *Binding[R]) Changes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes
}

// Notify re-evaluates the selector and surfaces the result when the
// predicate reports a difference. It is called by the container.
func (b *Binding[R]) Notify() {
	b.mu.Lock()
	if b.state != Bound {
		b.mu.Unlock()
		return
	}
	next := b.eval()
	changed := !b.predicate(next, b.value)
	if changed {
		b.value = next
		b.changes++
	}
	onChange := b.onChange
	b.mu.Unlock()

	b.observer.SelectionEvaluated(observe.SelectionInfo{
		Store:     b.store,
		Container: b.container,
		Binding:   b.id,
		Changed:   changed,
	})
	if changed && onChange != nil {
		onChange(next)
	}
}

// Detach unsubscribes the binding. It is idempotent and the value stays at
// the last surfaced one.
func (b *Binding[R]) Detach() {
	b.mu.Lock()
	if b.state == Detached {
		b.mu.Unlock()
		return
	}
	b.state = Detached
	unsubscribe := b.unsubscribe
	release := b.release
	b.unsubscribe, b.release = nil, nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if release != nil {
		release()
	}
}
