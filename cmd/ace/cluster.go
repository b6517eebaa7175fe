package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ace/internal/cluster"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <file>",
	Short: "Print the focus cluster for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		paths := cluster.Paths(rt.engine.FocusCluster(args[0]))
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
}
