package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute the active flag of every sprint from its dates.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.board.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sprint(s) updated\n", n)
			return nil
		},
	}
}

func newBurndownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burndown <sprint-id>",
		Short: "Print the burndown chart of a sprint.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprintID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sprint id %q", args[0])
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			points, err := a.board.Burndown(cmd.Context(), sprintID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tIDEAL\tACTUAL")
			for _, p := range points {
				actual := "-"
				if p.Actual != nil {
					actual = strconv.FormatFloat(*p.Actual, 'f', 1, 64)
				}
				fmt.Fprintf(w, "%s\t%.1f\t%s\n", p.Date, p.Ideal, actual)
			}
			return w.Flush()
		},
	}
}
