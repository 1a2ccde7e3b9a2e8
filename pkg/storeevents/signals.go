package storeevents

import "github.com/zoobzio/capitan"

// Update signals.
var (
	// UpdateApplied is emitted after a state update was applied and every
	// subscriber was notified.
	UpdateApplied = capitan.NewSignal(
		"scopestore.update.applied",
		"State update applied",
	)

	// UpdateFailed is emitted when SetState returns an error.
	UpdateFailed = capitan.NewSignal(
		"scopestore.update.failed",
		"State update failed",
	)
)

// Subscription and scope signals.
var (
	// SubscriptionChanged is emitted when a subscriber is added or removed.
	SubscriptionChanged = capitan.NewSignal(
		"scopestore.subscription.changed",
		"Subscriber added or removed",
	)

	// ScopeOpened is emitted when a scope gets its container.
	ScopeOpened = capitan.NewSignal(
		"scopestore.scope.opened",
		"Scope opened with a new container",
	)

	// ScopeDisposed is emitted when a scope and its container are torn down.
	ScopeDisposed = capitan.NewSignal(
		"scopestore.scope.disposed",
		"Scope disposed",
	)
)

// Selection signals.
var (
	// SelectionChanged is emitted when a binding surfaces a new value.
	SelectionChanged = capitan.NewSignal(
		"scopestore.selection.changed",
		"Binding surfaced a new value",
	)

	// SelectionSuppressed is emitted when a binding's predicate judged the
	// new value equivalent to the previous one.
	SelectionSuppressed = capitan.NewSignal(
		"scopestore.selection.suppressed",
		"Binding suppressed an equivalent value",
	)
)
