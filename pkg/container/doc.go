// Package container provides the state container at the heart of scopestore.
//
// A Container owns exactly one state value of a caller-defined type, applies
// patches to it and notifies its subscribers synchronously after every change.
// It knows nothing about what its subscribers care about: deciding whether a
// change is meaningful to a consumer is the job of store.Binding.
//
// # Patches
//
// A Patch is either a partial record or a function that computes one from the
// current state:
//
//	c.SetState(container.Replace[Counter](container.Partial{"count": 5}))
//	c.SetState(container.Compute(func(s Counter) container.Partial {
//	    return container.Partial{"count": s.Count + 1}
//	}))
//
// The merge is shallow: top-level keys present in the partial overwrite,
// everything else is preserved.
//
// # Copies
//
// Every state transition produces a new deep copy, so a value obtained from
// GetState is never mutated afterwards. States may implement Cloner to supply
// their own copy; otherwise DeepCopy derives one by reflection. Function
// values are shared, channels and cyclic pointer graphs are rejected.
//
// # Concurrency
//
// Writers are serialized by a mutex covering resolve, merge, copy and swap.
// Subscribers are invoked after that mutex is released, in registration
// order, on the goroutine that called SetState.
package container
