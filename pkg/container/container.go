package container

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/scopestore/pkg/observe"
)

// subscription is one registration in a container's subscriber list.
type subscription struct {
	listener Listener

	// active is cleared on removal so an in-flight notification pass skips it.
	active atomic.Bool
}

// Container owns one state value of type T and the set of subscribers that
// are notified whenever it changes.
type Container[T any] struct {
	id   uint64
	name string

	// writeMu serializes writers across resolve, merge, copy and swap.
	writeMu sync.Mutex

	// mu protects state and version.
	mu      sync.RWMutex
	state   T
	version uint64

	// subMu protects subs and byID. subs is kept in registration order.
	subMu sync.Mutex
	subs  []*subscription
	byID  map[uint64]*subscription

	clone    CloneFunc[T]
	merge    func(T, Partial) (T, []string, error)
	observer observe.Observer

	disposed atomic.Bool
}

// Option configures a Container.
type Option[T any] func(*Container[T])

// WithName sets the name reported to observers.
func WithName[T any](name string) Option[T] {
	return func(c *Container[T]) {
		c.name = name
	}
}

// WithClone replaces the deep-copy strategy.
func WithClone[T any](fn CloneFunc[T]) Option[T] {
	return func(c *Container[T]) {
		c.clone = fn
	}
}

// WithMerge replaces the default shallow merge. fn must not modify current.
func WithMerge[T any](fn MergeFunc[T]) Option[T] {
	return func(c *Container[T]) {
		if fn == nil {
			return
		}
		c.merge = func(current T, p Partial) (T, []string, error) {
			merged, err := fn(current, p)
			return merged, nil, err
		}
	}
}

// WithObserver sets the observer notified of updates and subscriptions.
func WithObserver[T any](o observe.Observer) Option[T] {
	return func(c *Container[T]) {
		c.observer = observe.OrNop(o)
	}
}

// New creates a container holding a deep copy of initial.
func New[T any](initial T, opts ...Option[T]) (*Container[T], error) {
	c := &Container[T]{
		id:       NextID(),
		byID:     make(map[uint64]*subscription),
		observer: observe.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.clone == nil {
		c.clone = defaultClone[T]
	}
	if c.merge == nil {
		c.merge = Merge[T]
	}

	state, err := c.clone(initial)
	if err != nil {
		return nil, err
	}
	c.state = state
	return c, nil
}

// ID returns the unique identifier of this container.
func (c *Container[T]) ID() uint64 {
	return c.id
}

// Name returns the name given with WithName.
func (c *Container[T]) Name() string {
	return c.name
}

// GetState returns the current snapshot. The snapshot is never modified by
// later updates.
func (c *Container[T]) GetState() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Version returns the number of successful updates applied so far.
func (c *Container[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Len returns the number of registered subscribers.
func (c *Container[T]) Len() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// IsDisposed reports whether Dispose has been called.
func (c *Container[T]) IsDisposed() bool {
	return c.disposed.Load()
}

// Subscribe registers l and returns a function that removes exactly this
// registration. Calling the remover more than once is a no-op.
// Subscribing a listener whose ID is already registered returns a remover for
// the existing registration.
func (c *Container[T]) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	c.subMu.Lock()
	if c.disposed.Load() {
		c.subMu.Unlock()
		return func() {}
	}
	sub, exists := c.byID[l.ID()]
	if !exists {
		sub = &subscription{listener: l}
		sub.active.Store(true)
		c.subs = append(c.subs, sub)
		c.byID[l.ID()] = sub
	}
	n := len(c.subs)
	c.subMu.Unlock()

	if !exists {
		c.observer.SubscriptionChanged(observe.SubscriptionInfo{
			Store:       c.name,
			Container:   c.id,
			Subscribers: n,
			Added:       true,
		})
	}

	return func() {
		c.unsubscribe(sub)
	}
}

// SubscribeFunc registers fn under a fresh identity.
func (c *Container[T]) SubscribeFunc(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return c.Subscribe(ListenerFunc(fn))
}

func (c *Container[T]) unsubscribe(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	c.subMu.Lock()
	for i, s := range c.subs {
		if s == sub {
			last := len(c.subs) - 1
			copy(c.subs[i:], c.subs[i+1:])
			c.subs[last] = nil
			c.subs = c.subs[:last]
			break
		}
	}
	id := sub.listener.ID()
	if c.byID[id] == sub {
		delete(c.byID, id)
	}
	n := len(c.subs)
	c.subMu.Unlock()

	c.observer.SubscriptionChanged(observe.SubscriptionInfo{
		Store:       c.name,
		Container:   c.id,
		Subscribers: n,
		Added:       false,
	})
}

// SetState applies p and notifies every registered subscriber before
// returning. On error the state is unchanged and nobody is notified.
func (c *Container[T]) SetState(p Patch[T]) error {
	return c.SetStateContext(context.Background(), p)
}

// SetStateContext is SetState with a context that is handed to the observer.
func (c *Container[T]) SetStateContext(ctx context.Context, p Patch[T]) error {
	start := time.Now()
	info := observe.UpdateInfo{
		Store:     c.name,
		Container: c.id,
		Kind:      p.Kind().String(),
	}
	ctx = c.observer.UpdateStarted(ctx, info)

	version, keys, ignored, err := c.apply(p)
	if err != nil {
		info.Duration = time.Since(start)
		c.observer.UpdateFinished(ctx, info, err)
		return err
	}

	info.Version = version
	info.Keys = keys
	info.Ignored = ignored
	info.Notified = c.notify()
	info.Duration = time.Since(start)
	c.observer.UpdateFinished(ctx, info, nil)
	return nil
}

// apply resolves, merges, copies and swaps in the new state.
func (c *Container[T]) apply(p Patch[T]) (version uint64, keys int, ignored []string, err error) {
	if c.disposed.Load() {
		return 0, 0, nil, ErrDisposed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.disposed.Load() {
		return 0, 0, nil, ErrDisposed
	}

	current := c.GetState()
	partial, err := p.resolve(current)
	if err != nil {
		return 0, 0, nil, err
	}
	merged, ignored, err := c.merge(current, partial)
	if err != nil {
		return 0, 0, nil, err
	}
	next, err := c.clone(merged)
	if err != nil {
		return 0, 0, nil, err
	}

	c.mu.Lock()
	c.state = next
	c.version++
	version = c.version
	c.mu.Unlock()

	return version, len(partial), ignored, nil
}

// notify invokes every subscriber registered when the pass starts.
// Subscribers removed during the pass are skipped once removed.
func (c *Container[T]) notify() int {
	c.subMu.Lock()
	subs := make([]*subscription, len(c.subs))
	copy(subs, c.subs)
	c.subMu.Unlock()

	n := 0
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		sub.listener.Notify()
		n++
	}
	return n
}

// Dispose releases every subscriber. Later updates fail with ErrDisposed and
// later subscriptions are no-ops. GetState keeps returning the last snapshot.
func (c *Container[T]) Dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}

	c.subMu.Lock()
	subs := c.subs
	c.subs = nil
	c.byID = make(map[uint64]*subscription)
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.active.Store(false)
	}
	if len(subs) > 0 {
		c.observer.SubscriptionChanged(observe.SubscriptionInfo{
			Store:     c.name,
			Container: c.id,
		})
	}
}

func defaultClone[T any](v T) (T, error) {
	if cl, ok := any(v).(Cloner[T]); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return v, nil
		}
		return cl.Clone(), nil
	}
	return DeepCopy(v)
}
