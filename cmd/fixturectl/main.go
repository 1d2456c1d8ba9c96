// Command fixturectl manages fixture bundles for the editor test harness: it
// lists and imports bundles, prints a loaded fixture's hierarchy, and diffs two
// bundle documents the way a scenario run does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"editfixture/internal/config"
	"editfixture/internal/fixture"
	"editfixture/internal/observability"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv))
}

type app struct {
	lookup     func(string) (string, bool)
	source     string
	sqlitePath string
	cfg        config.Config
	log        zerolog.Logger
}

func cli(args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) int {
	cmd := newRootCmd(lookup)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	a := &app{lookup: lookup}
	cmd := &cobra.Command{
		Use:           "fixturectl",
		Short:         "Inspect, import and diff editor fixture bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromLookup(a.lookup)
			if err != nil {
				return err
			}
			if a.source != "" {
				cfg.SourceDriver = config.SourceDriver(a.source)
			}
			if a.sqlitePath != "" {
				cfg.SQLitePath = a.sqlitePath
			}
			a.cfg = cfg
			a.log = observability.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.source, "source", "", "Fixture source driver (sqlite|postgres|blob); overrides EDITFIXTURE_SOURCE_DRIVER")
	cmd.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite fixture database; overrides EDITFIXTURE_SQLITE_PATH")

	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newInspectCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newDiffCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	return cmd
}

func (a *app) openSource(ctx context.Context) (fixture.Store, error) {
	src, err := fixture.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("driver", string(a.cfg.SourceDriver)).Msg("fixture source opened")
	return src, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
