// Package scope implements the region tree that store instances are bound to.
//
// A Scope is a node in a tree of regions. Values set on a scope are visible
// to every descendant unless a nearer scope sets the same key, so the
// innermost scope wins. Disposing a scope disposes its descendants first and
// then runs its own cleanups in reverse registration order.
//
//	root := scope.New(nil)
//	defer root.Dispose()
//
//	child := scope.New(root)
//	child.OnDispose(func() { fmt.Println("child gone") })
package scope
