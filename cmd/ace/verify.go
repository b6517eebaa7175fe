package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Re-check active issues for a file against fresh signals",
	Long: `Re-gathers signals for the file's focus cluster and verifies every
active issue registered against it. Each issue is classified as
RESOLVED, REGRESSION or INCOMPLETE; resolutions are written to the
ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		results, err := rt.engine.VerifyAfterFix(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no active issues for %s\n", args[0])
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-11s %s\n", r.Status, r.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
