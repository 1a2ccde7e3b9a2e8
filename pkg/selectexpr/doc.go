// Package selectexpr builds store selectors from expressions.
//
// Three engines are supported: expr (github.com/expr-lang/expr, the
// default), CEL (github.com/google/cel-go) and JavaScript
// (github.com/dop251/goja). Every top-level key of the state is a variable,
// and the whole state is also available as state:
//
//	p, err := selectexpr.Compile(selectexpr.EngineExpr, "x * y")
//	if err != nil {
//		return err
//	}
//	b, err := store.Select(s, region, selectexpr.Selector[counters.State](p),
//		store.WithPredicate(selectexpr.Equal))
package selectexpr
