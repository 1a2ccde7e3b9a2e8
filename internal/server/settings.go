package server

import (
	"context"
	"log/slog"

	"github.com/vango-dev/scopestore/internal/config"
	"github.com/vango-dev/scopestore/internal/counters"
	"github.com/vango-dev/scopestore/pkg/container"
	"github.com/vango-dev/scopestore/pkg/observe"
	"github.com/vango-dev/scopestore/pkg/scope"
	"github.com/vango-dev/scopestore/pkg/store"
)

// SettingsStoreName is the name the settings store reports to observers.
const SettingsStoreName = "settings"

// Settings holds the server configuration in a store so that reloads reach
// every binding on it.
type Settings struct {
	store  *store.Store[config.Config]
	region *scope.Scope
	level  *slog.LevelVar

	logLevel *store.Binding[string]
	initial  *store.Binding[config.CountersConfig]
}

// NewSettings opens a settings scope holding cfg. The returned LevelVar
// follows cfg.LogLevel and every later change to it.
func NewSettings(cfg *config.Config, observer observe.Observer) (*Settings, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	initial := *cfg

	s := &Settings{
		store: store.Create(func(store.Update[config.Config]) config.Config {
			return initial
		}, store.WithName[config.Config](SettingsStoreName), store.WithObserver[config.Config](observer)),
		level: new(slog.LevelVar),
	}

	region, err := s.store.Scope(nil)
	if err != nil {
		return nil, err
	}
	s.region = region

	s.logLevel, err = store.Select(s.store, region,
		func(c config.Config) string { return c.LogLevel },
		store.OnChange(s.setLevel),
	)
	if err != nil {
		region.Dispose()
		return nil, err
	}
	s.setLevel(s.logLevel.Value())

	s.initial, err = store.Select(s.store, region,
		func(c config.Config) config.CountersConfig { return c.Counters },
	)
	if err != nil {
		region.Dispose()
		return nil, err
	}
	return s, nil
}

func (s *Settings) setLevel(name string) {
	c := config.Config{LogLevel: name}
	if level, err := c.Level(); err == nil {
		s.level.Set(level)
	}
}

// Level returns the level var driven by the logLevel setting.
func (s *Settings) Level() *slog.LevelVar {
	return s.level
}

// Current returns a snapshot of the settings.
func (s *Settings) Current() config.Config {
	cfg, err := s.store.GetState(s.region)
	if err != nil {
		return *config.Default()
	}
	return cfg
}

// Initial returns a builder that starts new counters scopes at the
// configured values.
func (s *Settings) Initial() store.Builder[counters.State] {
	c := s.initial.Value()
	return counters.WithInitial(c.X, c.Y, c.Z)
}

// Apply replaces every setting with the values of cfg.
func (s *Settings) Apply(ctx context.Context, cfg *config.Config) error {
	return s.store.SetStateContext(ctx, s.region, container.Replace[config.Config](container.Fields(cfg)))
}

// Watch applies every successful reload of the file at path until ctx is
// done. Reload failures are logged and the previous settings kept.
func (s *Settings) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	reloads, err := config.Watch(ctx, path)
	if err != nil {
		return err
	}

	go func() {
		for r := range reloads {
			if r.Err != nil {
				logger.Warn("settings reload failed", "path", path, "error", r.Err)
				continue
			}
			if err := s.Apply(ctx, r.Config); err != nil {
				logger.Warn("settings apply failed", "path", path, "error", err)
				continue
			}
			logger.Info("settings reloaded", "path", path)
		}
	}()
	return nil
}

// Close disposes the settings scope.
func (s *Settings) Close() {
	s.region.Dispose()
}
