package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"budgie/internal/cli"
	"budgie/internal/config"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

type rootOptions struct {
	user    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "budgiectl",
		Short:        "Budget ledger and receipt scanner",
		Long:         "Scan receipts into the category ledger and inspect budgets from the terminal.",
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(*cobra.Command, []string) {
		cli.LoadEnvFile()
		if opts.user == "" {
			opts.user = os.Getenv("BUDGIE_USER")
		}
	}

	root.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "User id (default $BUDGIE_USER)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr")

	root.AddCommand(
		newScanCmd(opts),
		newCategoriesCmd(opts),
		newBudgetsCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// openApp wires the configured backend. Only scan needs the gateways, so
// the full config validation runs only when receipts are requested.
func (o *rootOptions) openApp(ctx context.Context, cmd *cobra.Command, receipts bool) (*cli.App, error) {
	if o.user == "" {
		return nil, errors.New("no user: pass --user or set BUDGIE_USER")
	}

	cfg := loadConfig()
	if receipts {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := "error"
	if o.verbose {
		level = "debug"
	}
	logger := cli.SetupLogger(level, cmd.ErrOrStderr())

	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{
		WithoutReceipts: !receipts,
		SeedUser:        o.user,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.DataBackend, err)
	}
	return app, nil
}

func closeApp(app *cli.App, w io.Writer) {
	if err := app.Close(); err != nil {
		fmt.Fprintln(w, "warning: backend cleanup failed:", err)
	}
}
