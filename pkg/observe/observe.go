package observe

import (
	"context"
	"time"
)

// UpdateInfo describes one SetState call on a container.
type UpdateInfo struct {
	// Store is the name of the store that owns the container.
	Store string

	// Container is the unique identifier of the container instance.
	Container uint64

	// Kind is the patch variant ("replace" or "compute").
	Kind string

	// Keys is the number of top-level keys in the applied partial.
	Keys int

	// Ignored lists patch keys that matched no field of a struct state.
	Ignored []string

	// Version is the container version after the update.
	// Zero when the update failed.
	Version uint64

	// Notified is the number of subscribers invoked.
	Notified int

	// Duration covers resolve, merge, copy and notification.
	Duration time.Duration
}

// SubscriptionInfo describes a subscriber being added or removed.
type SubscriptionInfo struct {
	Store       string
	Container   uint64
	Subscribers int
	Added       bool
}

// ScopeInfo describes a container being bound to, or released from, a scope.
type ScopeInfo struct {
	Store     string
	Container uint64
	Scope     uint64
	Opened    bool
}

// SelectionInfo describes one binding re-evaluation after a notification.
type SelectionInfo struct {
	Store     string
	Container uint64
	Binding   uint64

	// Changed is false when the predicate suppressed the new value.
	Changed bool
}

// Observer receives lifecycle callbacks. Implementations must be safe for
// concurrent use because independent containers may update in parallel.
type Observer interface {
	// UpdateStarted is called before a patch is resolved. The returned context
	// is passed to UpdateFinished, which lets tracers carry a span across.
	UpdateStarted(ctx context.Context, info UpdateInfo) context.Context

	// UpdateFinished is called after notification, or after a failure with
	// the error that SetState returns.
	UpdateFinished(ctx context.Context, info UpdateInfo, err error)

	SubscriptionChanged(info SubscriptionInfo)
	ScopeChanged(info ScopeInfo)
	SelectionEvaluated(info SelectionInfo)
}

// Nop is an Observer that does nothing.
type Nop struct{}

func (Nop) UpdateStarted(ctx context.Context, _ UpdateInfo) context.Context { return ctx }
func (Nop) UpdateFinished(context.Context, UpdateInfo, error)               {}
func (Nop) SubscriptionChanged(SubscriptionInfo)                            {}
func (Nop) ScopeChanged(ScopeInfo)                                          {}
func (Nop) SelectionEvaluated(SelectionInfo)                                {}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

type multi []Observer

// Multi fans every callback out to each non-nil observer in order.
func Multi(observers ...Observer) Observer {
	out := make(multi, 0, len(observers))
	for _, o := range observers {
		if o == nil {
			continue
		}
		if m, ok := o.(multi); ok {
			out = append(out, m...)
			continue
		}
		out = append(out, o)
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	}
	return out
}

func (m multi) UpdateStarted(ctx context.Context, info UpdateInfo) context.Context {
	for _, o := range m {
		ctx = o.UpdateStarted(ctx, info)
	}
	return ctx
}

func (m multi) UpdateFinished(ctx context.Context, info UpdateInfo, err error) {
	for _, o := range m {
		o.UpdateFinished(ctx, info, err)
	}
}

func (m multi) SubscriptionChanged(info SubscriptionInfo) {
	for _, o := range m {
		o.SubscriptionChanged(info)
	}
}

func (m multi) ScopeChanged(info ScopeInfo) {
	for _, o := range m {
		o.ScopeChanged(info)
	}
}

func (m multi) SelectionEvaluated(info SelectionInfo) {
	for _, o := range m {
		o.SelectionEvaluated(info)
	}
}
