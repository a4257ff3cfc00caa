package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"budgie/internal/cli"
	"budgie/internal/services"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <image>",
		Short: "Scan a receipt image and apply its items to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(image) == 0 {
				return fmt.Errorf("%s is empty", args[0])
			}

			app, err := opts.openApp(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(app, cmd.ErrOrStderr())

			res, err := app.Receipts.Scan(cmd.Context(), opts.user, image)
			if err != nil {
				// Recovered text is still useful for manual entry.
				if res != nil && res.Result != nil && res.OCRText != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "Recognized text:")
					fmt.Fprintln(cmd.OutOrStdout(), res.OCRText)
				}
				return err
			}
			printScan(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func printScan(out io.Writer, res *services.ScanResult) {
	title := "RECEIPT"
	if res.Receipt != nil && res.Receipt.StoreName.Text != "" {
		title += "  " + res.Receipt.StoreName.Text
	}
	fmt.Fprintln(out, cli.RenderTitle(title))

	if res.Duplicate {
		fmt.Fprintln(out, "Already scanned recently; nothing was applied again.")
	}

	if len(res.Applied) > 0 {
		applied := cli.Table{Headers: []string{"#", "Item", "Category", "Amount"}}
		for _, a := range res.Applied {
			applied.Rows = append(applied.Rows, []string{
				strconv.Itoa(a.Index + 1),
				a.Item.ItemName,
				a.Item.CategoryName,
				a.Item.Amount.String(),
			})
		}
		fmt.Fprint(out, cli.RenderTable(applied))
	}

	if len(res.Skipped) > 0 {
		skipped := cli.Table{Headers: []string{"#", "Skipped", "Detail"}}
		for _, s := range res.Skipped {
			skipped.Rows = append(skipped.Rows, []string{
				strconv.Itoa(s.Index + 1),
				string(s.Reason),
				s.Detail,
			})
		}
		fmt.Fprint(out, cli.RenderTable(skipped))
	}

	fmt.Fprintf(out, "Applied %d item(s), %s total\n", len(res.Applied), res.AppliedTotal())

	if len(res.Budgets) > 0 {
		fmt.Fprint(out, renderProgress(res.Budgets))
	}
}
