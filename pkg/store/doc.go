// Package store is the scoped façade over package container.
//
// A Store is created from a Builder. Each call to Scope opens a region of the
// scope tree with its own container built from that builder, so independent
// regions never share state. Consumers bind to the innermost container above
// them with Select and are told about a new value only when their selected
// slice changed according to a predicate.
//
//	type Counter struct {
//		Count int    `store:"count"`
//		Inc   func() `store:"-"`
//	}
//
//	counters := store.Create(func(update store.Update[Counter]) Counter {
//		return Counter{Inc: func() {
//			_ = update(container.Compute(func(s Counter) container.Partial {
//				return container.Partial{"count": s.Count + 1}
//			}))
//		}}
//	})
//
//	region, err := counters.Scope(nil)
//	if err != nil {
//		return err
//	}
//	defer region.Dispose()
//
//	count, err := store.Select(counters, region, func(s Counter) int { return s.Count },
//		store.OnChange(func(n int) { fmt.Println("count:", n) }),
//	)
//
// Bindings are detached automatically when the region passed to Select is
// disposed.
package store
