package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cerrors "github.com/vango-dev/scopestore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		cerrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "counters",
		Short: "Scoped store demo",
		Long: `counters drives three counters held in a scoped store.

Views select slices of the state and re-render only when their slice
changes. Run scripted operations locally or serve sessions over
WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// newLogger returns a text or JSON logger writing to w at level.
func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
