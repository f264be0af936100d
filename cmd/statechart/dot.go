package main

import (
	"fmt"

	"github.com/anggasct/statechart/visualization"
	"github.com/anggasct/statechart/yamlchart"
	"github.com/spf13/cobra"
)

var dotCmd = &cobra.Command{
	Use:   "dot <chart.yaml>",
	Short: "Export the chart as a Graphviz DOT graph",
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

		options := visualization.DefaultDOTOptions()
		options.RankDirection, _ = cmd.Flags().GetString("rankdir")
		options.CompactMode, _ = cmd.Flags().GetBool("compact")
		output, err := visualization.NewDOTGenerator(chart, options).Generate()
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("output"); path != "" {
			return visualization.NewDOTGenerator(chart, options).GenerateToFile(path)
		}
		fmt.Fprint(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	dotCmd.Flags().String("rankdir", "TB", "Graph direction (TB, LR, BT, RL)")
	dotCmd.Flags().Bool("compact", false, "Draw nested states without clusters")
	dotCmd.Flags().StringP("output", "o", "", "Write the graph to a file instead of stdout")
	rootCmd.AddCommand(dotCmd)
}
