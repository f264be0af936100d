package main

import (
	"fmt"

	"github.com/anggasct/statechart/yamlchart"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <chart.yaml>",
	Short: "Check a chart for consistency",
	Long:  `Parses the chart, resolves every state reference and reports the problems found.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := yamlchart.Load(args[0])
		if err != nil {
			return err
		}
		chart, err := doc.Chart()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chart is valid: %d states, %d transitions\n",
			len(chart.States()), len(chart.Transitions()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
