package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/scopestore/internal/config"
	"github.com/vango-dev/scopestore/internal/server"
	"github.com/vango-dev/scopestore/pkg/observe"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve counters sessions over WebSocket",
		Long: `Serve the counters demo.

Each WebSocket connection to /ws gets its own counters scope. Metrics are
served on the configured path and health on /healthz.

With --watch the config file is reloaded on change. The log level and the
initial counters of new sessions follow the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			logLevel := new(slog.LevelVar)
			level, _ := cfg.Level()
			logLevel.Set(level)
			bootLogger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, logLevel)

			settings, err := server.NewSettings(cfg, observe.Logger(bootLogger))
			if err != nil {
				return err
			}
			defer settings.Close()

			logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, settings.Level())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				if cfg.Path() == "" {
					logger.Warn("no config file to watch")
				} else if err := settings.Watch(ctx, cfg.Path(), logger); err != nil {
					return err
				}
			}

			srv := server.New(settings, server.WithLogger(logger))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Config file (JSON or YAML)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the config file on change")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides the config file)")

	return cmd
}

// loadConfig loads path. A missing default file yields the defaults; a
// missing file named on the command line is an error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}
