// Package observe defines the hooks through which containers, scopes and
// bindings report what they do.
//
// Observers never influence the outcome of an operation: they receive a
// description of an update, a subscription change, a scope lifecycle event or
// a selection evaluation, and any error they would like to report is theirs to
// handle. The zero value of every hook set is [Nop].
//
// Usage:
//
//	obs := observe.Multi(
//	    observe.Logger(slog.Default()),
//	    storemetrics.New(storemetrics.WithNamespace("myapp")),
//	)
//	s := store.Create(builder, store.WithObserver[State](obs))
package observe
