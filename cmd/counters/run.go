package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/scopestore/internal/counters"
	cerrors "github.com/vango-dev/scopestore/internal/errors"
	"github.com/vango-dev/scopestore/pkg/observe"
	"github.com/vango-dev/scopestore/pkg/selectexpr"
	"github.com/vango-dev/scopestore/pkg/store"
)

const defaultScript = "inc:x inc:y set:z=4 dec:x set:z=4"

func runCmd() *cobra.Command {
	var (
		script  string
		nested  bool
		selects []string
		engine  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply scripted operations and show which views re-render",
		Long: `Apply scripted operations to a counters scope and print every render.

Operations are inc:<key>, dec:<key> and set:<key>=<value> for the keys
x, y and z, separated by spaces or commas.

Examples:
  counters run
  counters run --script "inc:x set:y=3"
  counters run --nested
  counters run --select "sum=x + y + z" --engine cel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := counters.ParseScript(script)
			if err != nil {
				return cerrors.Newf(cerrors.CategoryCLI, "invalid script").
					WithDetail(err.Error()).
					WithExample(`counters run --script "inc:x dec:y set:z=4"`)
			}

			programs, err := compileSelects(selects, engine)
			if err != nil {
				return err
			}

			var opts []store.Option[counters.State]
			if verbose {
				level := new(slog.LevelVar)
				level.Set(slog.LevelDebug)
				logger := newLogger(cmd.ErrOrStderr(), "text", level)
				opts = append(opts, store.WithObserver[counters.State](observe.Logger(logger)))
			}

			demo := counters.Demo{
				Out:         cmd.OutOrStdout(),
				Store:       counters.NewStore(opts...),
				Expressions: programs,
			}
			if nested {
				return demo.Nested(ops)
			}
			return demo.Run(ops)
		},
	}

	cmd.Flags().StringVar(&script, "script", defaultScript, "Operations to apply")
	cmd.Flags().BoolVar(&nested, "nested", false, "Run the nested scope demo")
	cmd.Flags().StringArrayVar(&selects, "select", nil, "Extra view as name=expression (repeatable)")
	cmd.Flags().StringVar(&engine, "engine", "expr", "Expression engine: expr, cel or js")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every store update to stderr")

	return cmd
}

func compileSelects(selects []string, engine string) (map[string]*selectexpr.Program, error) {
	eng, err := selectexpr.ParseEngine(engine)
	if err != nil {
		return nil, err
	}
	programs := make(map[string]*selectexpr.Program, len(selects))
	for _, s := range selects {
		name, source, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, cerrors.Newf(cerrors.CategoryCLI, "invalid --select %q", s).
				WithSuggestion("Use name=expression").
				WithExample(`counters run --select "sum=x + y + z"`)
		}
		p, err := selectexpr.Compile(eng, source)
		if err != nil {
			return nil, err
		}
		programs[name] = p
	}
	return programs, nil
}
