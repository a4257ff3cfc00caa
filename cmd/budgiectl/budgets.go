package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"budgie/internal/cli"
	"budgie/internal/core"
)

func newBudgetsCmd(opts *rootOptions) *cobra.Command {
	var alertsOnly bool

	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Show budget progress for the current period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			progress := app.Budgets.Progress
			if alertsOnly {
				progress = app.Budgets.Alerts
			}
			rows, err := progress(cmd.Context(), opts.user)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No active budgets.")
				return nil
			}
			fmt.Fprintln(out, cli.RenderTitle("BUDGETS  "+opts.user))
			fmt.Fprint(out, renderProgress(rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&alertsOnly, "alerts", false, "Only show budgets at warning or critical")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <category-id> <amount>",
		Short: "Create a monthly budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			cents, err := core.ParseNonNegativeCents(args[1])
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			b, err := app.Ledger.CreateBudget(cmd.Context(), opts.user, categoryID, core.Money{Cents: cents})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s budget %d of %s\n", b.Period, b.ID, b.Amount)
			return nil
		},
	})

	return cmd
}

func renderProgress(rows []core.BudgetProgress) string {
	table := cli.Table{Headers: []string{"Category", "Budget", "Spent", "Remaining", "Used", "Level"}}
	for _, p := range rows {
		table.Rows = append(table.Rows, []string{
			p.CategoryName,
			p.Budget.String(),
			p.Spent.String(),
			p.Remaining.String(),
			cli.FormatPercent(p.Percentage),
			cli.RenderAlert(p.AlertLevel),
		})
	}
	return cli.RenderTable(table)
}
