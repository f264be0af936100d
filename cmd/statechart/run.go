package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anggasct/statechart"
	"github.com/anggasct/statechart/yamlchart"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <chart.yaml> [event|+duration]...",
	Short: "Run a chart against a list of events",
	Long: `Starts the chart and posts the events in order, printing the configuration
after each one. An argument of the form +1s advances the clock instead, which
delivers delayed events.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		doc, err := yamlchart.Load(args[0])
		if err != nil {
			return err
		}

		dispatcher := statechart.NewManualDispatcher()
		invariants := statechart.NewInvariantObserver()
		result := &outcome{}
		opts := []statechart.Option{
			statechart.WithObserver(result),
			statechart.WithDispatcher(dispatcher),
			statechart.WithLogger(logger),
			statechart.WithObserver(statechart.NewLoggingObserver(logger, statechart.LogDebug)),
			statechart.WithObserver(invariants),
		}
		var registry *prometheus.Registry
		if withMetrics, _ := cmd.Flags().GetBool("metrics"); withMetrics {
			registry = prometheus.NewRegistry()
			opts = append(opts, statechart.WithObserver(statechart.NewMetricsObserver(registry)))
		}

		m, err := doc.Compile(opts...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := m.Start(); err != nil {
			return err
		}
		dispatcher.Drain()
		printStep(out, "start", m)

		for _, arg := range args[1:] {
			if !m.IsRunning() {
				break
			}
			if strings.HasPrefix(arg, "+") {
				d, err := time.ParseDuration(arg[1:])
				if err != nil {
					return fmt.Errorf("invalid clock advance '%s': %w", arg, err)
				}
				dispatcher.Advance(d)
			} else {
				if err := m.Send(arg, nil); err != nil {
					return err
				}
				dispatcher.Drain()
			}
			printStep(out, arg, m)
		}

		switch {
		case m.IsRunning():
			fmt.Fprintln(out, "status: running")
		case result.finished:
			fmt.Fprintln(out, "status: finished")
		default:
			fmt.Fprintf(out, "status: stopped (%s)\n", m.ErrorCode())
		}
		for _, v := range invariants.GetViolations() {
			fmt.Fprintf(out, "violation: %s\n", v)
		}
		if registry != nil {
			return printMetrics(out, registry)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("metrics", false, "Print the collected metrics after the run")
	rootCmd.AddCommand(runCmd)
}

// outcome remembers whether the machine finished or was stopped
type outcome struct {
	statechart.BaseObserver
	finished bool
}

func (o *outcome) OnMachineFinished(m *statechart.Machine) {
	o.finished = true
}

func printStep(out io.Writer, label string, m *statechart.Machine) {
	fmt.Fprintf(out, "%-12s %s\n", label, strings.Join(m.ActiveStateNames(), " "))
}

func printMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var labels []string
			for _, l := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
