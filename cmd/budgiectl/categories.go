package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"budgie/internal/cli"
	"budgie/internal/core"
)

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List categories with their running totals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			cats, total, err := app.Ledger.Categories(cmd.Context(), opts.user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, "No categories yet. Add one with: budgiectl categories add <name>")
				return nil
			}
			fmt.Fprintln(out, cli.RenderTitle("CATEGORIES  "+opts.user))
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Headers: []string{"ID", "Name", "Spent"},
				Rows:    categoryRows(cats),
			}))
			fmt.Fprintf(out, "Total spent: %s\n", total)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			c, err := app.Ledger.CreateCategory(cmd.Context(), opts.user, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %q (id %d)\n", c.Name, c.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "adjust <id> <delta>",
		Short: "Add a signed amount to a category total",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}
			cents, err := core.ParseSignedCents(args[1])
			if err != nil {
				return err
			}

			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			c, err := app.Ledger.AdjustTotal(cmd.Context(), opts.user, id, core.Money{Cents: cents})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s total is now %s\n", c.Name, c.TotalSpent)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Zero every category total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			if err := app.Ledger.ResetTotals(cmd.Context(), opts.user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All category totals reset to 0.00")
			return nil
		},
	})

	return cmd
}

func categoryRows(cats []core.Category) [][]string {
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.TotalSpent.String()})
	}
	return rows
}
