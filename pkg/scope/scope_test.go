package scope

import (
	"reflect"
	"sync"
	"testing"
)

func TestScopeBasic(t *testing.T) {
	s := New(nil)

	if s.ID() == 0 {
		t.Error("scope should have non-zero ID")
	}
	if s.Parent() != nil {
		t.Error("root scope should have nil parent")
	}
	if s.IsDisposed() {
		t.Error("new scope should not be disposed")
	}
	if s.Depth() != 0 {
		t.Errorf("expected depth 0, got %d", s.Depth())
	}

	grandchild := New(New(s))
	if grandchild.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", grandchild.Depth())
	}
}

func TestLookupInnermostWins(t *testing.T) {
	root := New(nil)
	middle := New(root)
	leaf := New(middle)

	root.Set("k", "root")
	root.Set("only-root", 1)
	middle.Set("k", "middle")

	if v, _ := leaf.Lookup("k"); v != "middle" {
		t.Errorf("expected middle, got %v", v)
	}
	if v, _ := root.Lookup("k"); v != "root" {
		t.Errorf("expected root, got %v", v)
	}
	if v, ok := leaf.Lookup("only-root"); !ok || v != 1 {
		t.Errorf("expected inherited value 1, got %v", v)
	}
	if _, ok := leaf.Lookup("missing"); ok {
		t.Error("expected missing key not to be found")
	}
}

func TestSiblingsAreIsolated(t *testing.T) {
	root := New(nil)
	a := New(root)
	b := New(root)

	a.Set("k", "a")
	if _, ok := b.Lookup("k"); ok {
		t.Error("sibling value leaked")
	}
}

func TestDisposeOrder(t *testing.T) {
	root := New(nil)
	child1 := New(root)
	child2 := New(root)
	grandchild := New(child1)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	root.OnDispose(record("root-1"))
	root.OnDispose(record("root-2"))
	child1.OnDispose(record("child1"))
	child2.OnDispose(record("child2"))
	grandchild.OnDispose(record("grandchild"))

	root.Dispose()

	want := []string{"child2", "grandchild", "child1", "root-2", "root-1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
	for _, s := range []*Scope{root, child1, child2, grandchild} {
		if !s.IsDisposed() {
			t.Errorf("scope %d should be disposed", s.ID())
		}
	}
}

func TestDisposeIdempotentAndDetaches(t *testing.T) {
	root := New(nil)
	child := New(root)

	calls := 0
	child.OnDispose(func() { calls++ })

	child.Dispose()
	child.Dispose()
	root.Dispose()

	if calls != 1 {
		t.Errorf("expected cleanup to run once, got %d", calls)
	}
	if len(root.children) != 0 {
		t.Errorf("expected child to be detached from parent")
	}
}

func TestDisposedScope(t *testing.T) {
	s := New(nil)
	s.Set("k", 1)
	s.Dispose()

	if _, ok := s.Lookup("k"); ok {
		t.Error("disposed scope should not resolve values")
	}

	ran := false
	s.OnDispose(func() { ran = true })
	if !ran {
		t.Error("OnDispose on a disposed scope should run immediately")
	}

	child := New(s)
	if !child.IsDisposed() {
		t.Error("child of a disposed scope should start disposed")
	}
}

func TestKey(t *testing.T) {
	counter := NewKey[int]("counter")
	other := NewKey[int]("counter")

	root := New(nil)
	child := New(root)
	counter.Set(root, 3)

	if v, ok := counter.Get(child); !ok || v != 3 {
		t.Errorf("expected 3, got %d (%v)", v, ok)
	}
	if _, ok := other.Get(child); ok {
		t.Error("keys with the same name must be distinct")
	}
	if _, ok := counter.Get(nil); ok {
		t.Error("nil scope should find nothing")
	}
	if counter.Name() != "counter" {
		t.Errorf("unexpected name %q", counter.Name())
	}

	counter.Set(child, 4)
	if v, _ := counter.Get(child); v != 4 {
		t.Errorf("expected shadowed value 4, got %d", v)
	}
	if v, _ := counter.Get(root); v != 3 {
		t.Errorf("expected outer value 3, got %d", v)
	}
}

func TestConcurrentChildren(t *testing.T) {
	root := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := New(root)
			c.Set("k", c.ID())
			c.Dispose()
		}()
	}
	wg.Wait()
	root.Dispose()
}

func TestOnDisposeRemove(t *testing.T) {
	s := New(nil)

	var order []string
	s.OnDispose(func() { order = append(order, "a") })
	removeB := s.OnDispose(func() { order = append(order, "b") })
	s.OnDispose(func() { order = append(order, "c") })

	if n := s.Cleanups(); n != 3 {
		t.Fatalf("expected 3 cleanups, got %d", n)
	}

	removeB()
	removeB()
	if n := s.Cleanups(); n != 2 {
		t.Errorf("expected 2 cleanups after remove, got %d", n)
	}

	s.Dispose()
	if !reflect.DeepEqual(order, []string{"c", "a"}) {
		t.Errorf("unexpected cleanup order %v", order)
	}

	// Removing after dispose is a no-op, as is the remover of a cleanup
	// that ran immediately.
	removeB()
	ran := false
	s.OnDispose(func() { ran = true })()
	if !ran {
		t.Error("cleanup on a disposed scope should still run")
	}
}

func TestChildrenCount(t *testing.T) {
	root := New(nil)
	a := New(root)
	New(root)

	if n := root.Children(); n != 2 {
		t.Fatalf("expected 2 children, got %d", n)
	}
	a.Dispose()
	if n := root.Children(); n != 1 {
		t.Errorf("expected 1 child after dispose, got %d", n)
	}
}
