package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List currently active (unresolved) issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		issues := rt.engine.Director().ActiveIssues()
		if len(issues) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no active issues")
			return nil
		}
		for _, issue := range issues {
			created := time.Unix(int64(issue.CreatedAt), 0).UTC().Format(time.RFC3339)
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  attempts=%d  created=%s\n",
				issue.Fingerprint, issue.FocusFile, issue.FixAttempts, created)
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show recent resolution events for this project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		entries, err := rt.ledger.Recent(rt.manifest.ID, 20)
		if err != nil {
			return err
		}
		total, err := rt.ledger.TotalValueSaved(rt.manifest.ID)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no resolutions recorded")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  value=%d  %s\n",
				e.CreatedAt.Format(time.RFC3339), e.ValueSaved, e.Reason)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total value saved: %d\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(ledgerCmd)
}
