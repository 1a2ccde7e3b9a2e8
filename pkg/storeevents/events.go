// Package storeevents publishes container activity as capitan signals.
//
// Hook the signals to build audit trails or debugging tools:
//
//	capitan.Hook(storeevents.UpdateFailed, func(_ context.Context, e *capitan.Event) {
//		msg, _ := storeevents.KeyError.From(e)
//		log.Printf("update rejected: %s", msg)
//	})
//
//	s := store.Create(builder, store.WithObserver[State](storeevents.New()))
package storeevents

import (
	"context"
	"strings"

	"github.com/zoobzio/capitan"

	"github.com/vango-dev/scopestore/pkg/observe"
)

// Observer emits capitan signals. It implements observe.Observer.
type Observer struct {
	selections bool
}

var _ observe.Observer = (*Observer)(nil)

// Option configures the events observer.
type Option func(*Observer)

// WithoutSelections stops SelectionChanged and SelectionSuppressed from
// being emitted. Those fire once per binding per update.
func WithoutSelections() Option {
	return func(o *Observer) {
		o.selections = false
	}
}

// New returns an events observer.
func New(opts ...Option) *Observer {
	o := &Observer{selections: true}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// UpdateStarted implements observe.Observer.
func (o *Observer) UpdateStarted(ctx context.Context, _ observe.UpdateInfo) context.Context {
	return ctx
}

// UpdateFinished implements observe.Observer.
func (o *Observer) UpdateFinished(ctx context.Context, info observe.UpdateInfo, err error) {
	if err != nil {
		capitan.Emit(ctx, UpdateFailed,
			KeyStore.Field(info.Store),
			KeyContainer.Field(int(info.Container)),
			KeyKind.Field(info.Kind),
			KeyError.Field(err.Error()),
		)
		return
	}
	capitan.Emit(ctx, UpdateApplied,
		KeyStore.Field(info.Store),
		KeyContainer.Field(int(info.Container)),
		KeyKind.Field(info.Kind),
		KeyKeys.Field(info.Keys),
		KeyIgnored.Field(strings.Join(info.Ignored, ",")),
		KeyVersion.Field(int(info.Version)),
		KeyNotified.Field(info.Notified),
		KeyDuration.Field(info.Duration),
	)
}

// SubscriptionChanged implements observe.Observer.
func (o *Observer) SubscriptionChanged(info observe.SubscriptionInfo) {
	capitan.Emit(context.Background(), SubscriptionChanged,
		KeyStore.Field(info.Store),
		KeyContainer.Field(int(info.Container)),
		KeySubscribers.Field(info.Subscribers),
	)
}

// ScopeChanged implements observe.Observer.
func (o *Observer) ScopeChanged(info observe.ScopeInfo) {
	signal := ScopeDisposed
	if info.Opened {
		signal = ScopeOpened
	}
	capitan.Emit(context.Background(), signal,
		KeyStore.Field(info.Store),
		KeyContainer.Field(int(info.Container)),
		KeyScope.Field(int(info.Scope)),
	)
}

// SelectionEvaluated implements observe.Observer.
func (o *Observer) SelectionEvaluated(info observe.SelectionInfo) {
	if !o.selections {
		return
	}
	signal := SelectionSuppressed
	if info.Changed {
		signal = SelectionChanged
	}
	capitan.Emit(context.Background(), signal,
		KeyStore.Field(info.Store),
		KeyContainer.Field(int(info.Container)),
		KeyBinding.Field(int(info.Binding)),
	)
}
