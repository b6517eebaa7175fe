package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ace/internal/allocator"
	"ace/internal/config"
	"ace/internal/export"
)

var (
	symbolsFlag []string
	exportFlag  bool
)

var focusCmd = &cobra.Command{
	Use:   "focus <file>",
	Short: "Process a focus event and print the context packet",
	Long: `Builds the focus cluster for the given file, gathers and scores
candidate signals, and prints the budget-bounded context packet.
Error-severity signals in the packet register an active issue for
later verification.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup()
		if err != nil {
			return err
		}
		defer rt.close()

		packet, err := rt.engine.ProcessFocusEvent(cmd.Context(), args[0], symbolsFlag)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), allocator.FormatForLLM(packet))

		if exportFlag {
			exporter := export.NewExporter(filepath.Join(config.StateDir(projectRootFlag), "packets"))
			path, err := exporter.WritePacket(packet)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nexported: %s\n", path)
		}
		return nil
	},
}

func init() {
	focusCmd.Flags().StringSliceVar(&symbolsFlag, "symbols", nil, "Symbols near the cursor")
	focusCmd.Flags().BoolVar(&exportFlag, "export", false, "Export the packet to .ace/packets")
	rootCmd.AddCommand(focusCmd)
}
