package scope

import (
	"sync"
	"sync/atomic"
)

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// Scope is one region of the tree. All methods are safe for concurrent use.
type Scope struct {
	id uint64

	// parent is nil for a root scope.
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	// cleanups run in reverse order on Dispose.
	cleanups   []*cleanup
	cleanupsMu sync.Mutex

	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool
}

// New creates a scope under parent, or a root scope when parent is nil.
// A scope created under a disposed parent starts out disposed.
func New(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}
	if parent != nil && !parent.addChild(s) {
		s.disposed.Store(true)
	}
	return s
}

// ID returns the unique identifier of the scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether Dispose has been called on this scope or one of
// its ancestors.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// Depth returns the number of ancestors of s.
func (s *Scope) Depth() int {
	n := 0
	for p := s.parent; p != nil; p = p.parent {
		n++
	}
	return n
}

// Children returns the number of live child scopes.
func (s *Scope) Children() int {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	return len(s.children)
}

// Cleanups returns the number of registered dispose callbacks.
func (s *Scope) Cleanups() int {
	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	return len(s.cleanups)
}

func (s *Scope) addChild(child *Scope) bool {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	if s.disposed.Load() {
		return false
	}
	s.children = append(s.children, child)
	return true
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			last := len(s.children) - 1
			copy(s.children[i:], s.children[i+1:])
			s.children[last] = nil
			s.children = s.children[:last]
			return
		}
	}
}

// Set binds key to value on this scope, shadowing any binding of the same key
// on an ancestor.
func (s *Scope) Set(key, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()

	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Lookup returns the value bound to key on the nearest scope, starting at s
// and walking towards the root. A disposed scope finds nothing.
func (s *Scope) Lookup(key any) (any, bool) {
	if s.disposed.Load() {
		return nil, false
	}
	for cur := s; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		val, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return val, true
		}
	}
	return nil, false
}

type cleanup struct {
	fn func()
}

// OnDispose registers fn to run when the scope is disposed. If the scope is
// already disposed fn runs immediately. The returned function unregisters fn
// and is a no-op once the scope is disposed.
func (s *Scope) OnDispose(fn func()) (remove func()) {
	if fn == nil {
		return func() {}
	}
	s.cleanupsMu.Lock()
	if s.disposed.Load() {
		s.cleanupsMu.Unlock()
		fn()
		return func() {}
	}
	c := &cleanup{fn: fn}
	s.cleanups = append(s.cleanups, c)
	s.cleanupsMu.Unlock()

	return func() {
		s.removeCleanup(c)
	}
}

func (s *Scope) removeCleanup(c *cleanup) {
	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()

	for i, cur := range s.cleanups {
		if cur == c {
			last := len(s.cleanups) - 1
			copy(s.cleanups[i:], s.cleanups[i+1:])
			s.cleanups[last] = nil
			s.cleanups = s.cleanups[:last]
			return
		}
	}
}

// Dispose tears the scope down: children are disposed last-created first,
// then cleanups run in reverse order, and the scope is detached from its
// parent. Dispose is idempotent.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := s.children
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i].fn()
	}

	s.valuesMu.Lock()
	s.values = nil
	s.valuesMu.Unlock()
}
