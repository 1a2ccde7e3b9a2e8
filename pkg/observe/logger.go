package observe

import (
	"context"
	"log/slog"
)

type logObserver struct {
	logger *slog.Logger
}

// Logger returns an Observer that writes structured records to l.
// Successful updates and selections are logged at debug level, failed updates
// at warn. A nil logger uses slog.Default().
func Logger(l *slog.Logger) Observer {
	if l == nil {
		l = slog.Default()
	}
	return &logObserver{logger: l}
}

func (o *logObserver) UpdateStarted(ctx context.Context, _ UpdateInfo) context.Context {
	return ctx
}

func (o *logObserver) UpdateFinished(ctx context.Context, info UpdateInfo, err error) {
	if err != nil {
		o.logger.WarnContext(ctx, "store update failed",
			"store", info.Store,
			"container", info.Container,
			"kind", info.Kind,
			"error", err,
		)
		return
	}
	if len(info.Ignored) > 0 {
		o.logger.DebugContext(ctx, "store update ignored unknown keys",
			"store", info.Store,
			"container", info.Container,
			"keys", info.Ignored,
		)
	}
	o.logger.DebugContext(ctx, "store updated",
		"store", info.Store,
		"container", info.Container,
		"kind", info.Kind,
		"keys", info.Keys,
		"version", info.Version,
		"notified", info.Notified,
		"duration", info.Duration,
	)
}

func (o *logObserver) SubscriptionChanged(info SubscriptionInfo) {
	o.logger.Debug("store subscription changed",
		"store", info.Store,
		"container", info.Container,
		"subscribers", info.Subscribers,
		"added", info.Added,
	)
}

func (o *logObserver) ScopeChanged(info ScopeInfo) {
	msg := "store scope disposed"
	if info.Opened {
		msg = "store scope opened"
	}
	o.logger.Debug(msg,
		"store", info.Store,
		"container", info.Container,
		"scope", info.Scope,
	)
}

func (o *logObserver) SelectionEvaluated(info SelectionInfo) {
	if !info.Changed {
		return
	}
	o.logger.Debug("store selection changed",
		"store", info.Store,
		"binding", info.Binding,
	)
}
