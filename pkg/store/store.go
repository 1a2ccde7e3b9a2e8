package store

import (
	"context"
	"sync/atomic"

	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/observe"
	"github.com/vango-dev/scopestore/pkg/scope"
)

// Update applies a patch to the container of the scope it was created for.
type Update[T any] func(p container.Patch[T]) error

// Builder returns the initial state of a new scope. The update function it
// receives targets that scope's container and may be captured by actions
// stored in the state. Calling it before the builder returns fails with
// ErrMissingScope.
type Builder[T any] func(update Update[T]) T

// Store creates one container per scope from a builder.
type Store[T any] struct {
	name          string
	builder       Builder[T]
	observer      observe.Observer
	containerOpts []container.Option[T]
	key           *scope.Key[*container.Container[T]]
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithName sets the store name reported to observers.
func WithName[T any](name string) Option[T] {
	return func(s *Store[T]) {
		s.name = name
	}
}

// WithObserver sets the observer of every container created by the store.
func WithObserver[T any](o observe.Observer) Option[T] {
	return func(s *Store[T]) {
		s.observer = observe.OrNop(o)
	}
}

// WithContainerOptions appends options passed to every container.New call.
func WithContainerOptions[T any](opts ...container.Option[T]) Option[T] {
	return func(s *Store[T]) {
		s.containerOpts = append(s.containerOpts, opts...)
	}
}

// Create returns a store that builds scope state with builder.
func Create[T any](builder Builder[T], opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:     "store",
		builder:  builder,
		observer: observe.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.key = scope.NewKey[*container.Container[T]](s.name)
	return s
}

// Name returns the store name.
func (s *Store[T]) Name() string {
	return s.name
}

// Scope opens a child region of parent, or a new root when parent is nil,
// with a fresh container built by the store's builder. When override is
// given its first element replaces the builder for this scope only.
// Disposing the returned scope disposes the container and detaches every
// binding selected under it.
func (s *Store[T]) Scope(parent *scope.Scope, override ...Builder[T]) (*scope.Scope, error) {
	build := s.builder
	if len(override) > 0 && override[0] != nil {
		build = override[0]
	}
	if build == nil {
		return nil, ErrNoBuilder
	}

	if parent != nil && parent.IsDisposed() {
		return nil, container.ErrDisposed
	}

	var target atomic.Pointer[container.Container[T]]
	update := func(p container.Patch[T]) error {
		c := target.Load()
		if c == nil {
			return ErrMissingScope
		}
		return c.SetState(p)
	}

	initial := build(update)

	region := scope.New(parent)
	if region.IsDisposed() {
		return nil, container.ErrDisposed
	}

	opts := make([]container.Option[T], 0, len(s.containerOpts)+2)
	opts = append(opts, container.WithName[T](s.name), container.WithObserver[T](s.observer))
	opts = append(opts, s.containerOpts...)

	c, err := container.New(initial, opts...)
	if err != nil {
		region.Dispose()
		return nil, err
	}
	target.Store(c)
	s.key.Set(region, c)

	info := observe.ScopeInfo{
		Store:     s.name,
		Container: c.ID(),
		Scope:     region.ID(),
		Opened:    true,
	}
	s.observer.ScopeChanged(info)

	region.OnDispose(func() {
		c.Dispose()
		info.Opened = false
		s.observer.ScopeChanged(info)
	})
	return region, nil
}

// Container returns the container of the innermost scope at or above region
// that carries this store.
func (s *Store[T]) Container(region *scope.Scope) (*container.Container[T], error) {
	c, ok := s.key.Get(region)
	if !ok {
		return nil, ErrMissingScope
	}
	return c, nil
}

// GetState returns the current state of the innermost container.
func (s *Store[T]) GetState(region *scope.Scope) (T, error) {
	c, err := s.Container(region)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.GetState(), nil
}

// SetState applies p to the innermost container.
func (s *Store[T]) SetState(region *scope.Scope, p container.Patch[T]) error {
	return s.SetStateContext(context.Background(), region, p)
}

// SetStateContext applies p to the innermost container, passing ctx to the
// observer.
func (s *Store[T]) SetStateContext(ctx context.Context, region *scope.Scope, p container.Patch[T]) error {
	c, err := s.Container(region)
	if err != nil {
		return err
	}
	return c.SetStateContext(ctx, p)
}
