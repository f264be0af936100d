package visualization_test

import (
	"strings"
	"testing"

	"github.com/anggasct/statechart"
	"github.com/anggasct/statechart/visualization"
)

func buildChart(t *testing.T, mb *statechart.MachineBuilder) *statechart.Chart {
	t.Helper()
	chart, err := mb.Chart()
	if err != nil {
		t.Fatalf("Failed to build chart: %v", err)
	}
	return chart
}

func TestDOTGeneration(t *testing.T) {
	mb := statechart.NewBuilder()
	mb.State("idle").Initial().
		To("running").On("start").
		State("running").
		To("stopped").On("stop").
		State("stopped").
		To("idle").On("reset")

	generator := visualization.NewDOTGenerator(buildChart(t, mb))

	dotContent, err := generator.Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "digraph StateChart") {
		t.Error("DOT content should contain graph declaration")
	}

	if !strings.Contains(dotContent, "\"idle\"") {
		t.Error("DOT content should contain idle state")
	}

	if !strings.Contains(dotContent, "\"running\"") {
		t.Error("DOT content should contain running state")
	}

	if !strings.Contains(dotContent, "\"idle\" -> \"running\" [label=\"start\"") {
		t.Error("DOT content should contain transition from idle to running")
	}

	if !strings.Contains(dotContent, "\"__start\" -> \"idle\"") {
		t.Error("DOT content should point at the initial state")
	}
}

func TestDOTGenerationWithHierarchy(t *testing.T) {
	mb := statechart.NewBuilder()
	player := mb.State("player").Initial()
	player.State("stopped").Initial().To("playing").On("play")
	player.State("playing").To("stopped").On("stop")
	player.History("h").Default("stopped")
	modes := mb.ParallelState("modes")
	modes.State("audio")
	modes.State("video")
	mb.FinalState("off")
	player.To("off").On("power")

	dotContent, err := visualization.NewDOTGenerator(buildChart(t, mb)).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "subgraph \"cluster_player\"") {
		t.Error("compound state should be rendered as a cluster")
	}

	if !strings.Contains(dotContent, "label=\"modes [parallel]\"") {
		t.Error("parallel state should be labelled")
	}

	if !strings.Contains(dotContent, "doublecircle") {
		t.Error("final state should be drawn as a double circle")
	}

	if !strings.Contains(dotContent, "label=\"H\"") {
		t.Error("history state should be rendered")
	}

	if !strings.Contains(dotContent, "\"h\" -> \"stopped\" [style=dotted]") {
		t.Error("history default should be rendered")
	}

	if !strings.Contains(dotContent, "ltail=\"cluster_player\"") {
		t.Error("transition from a cluster should use ltail")
	}
}

func TestDOTGenerationCompactMode(t *testing.T) {
	mb := statechart.NewBuilder()
	outer := mb.State("outer").Initial()
	outer.State("inner").Initial()
	outer.History("h")

	options := visualization.DefaultDOTOptions()
	options.CompactMode = true
	options.ShowPseudostates = false
	dotContent, err := visualization.NewDOTGenerator(buildChart(t, mb), options).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if strings.Contains(dotContent, "subgraph") {
		t.Error("compact mode should not create clusters")
	}

	if !strings.Contains(dotContent, "\"inner\"") {
		t.Error("compact mode should still list nested states")
	}

	if strings.Contains(dotContent, "label=\"H\"") {
		t.Error("history states should be hidden without pseudostates")
	}
}

func TestDOTGenerationHighlightsActiveStates(t *testing.T) {
	mb := statechart.NewBuilder()
	mb.State("a").Initial().To("b").On("go").
		State("b")
	dispatcher := statechart.NewManualDispatcher()
	m := statechart.NewMachine(buildChart(t, mb), statechart.WithDispatcher(dispatcher))
	if err := m.Start(); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	dispatcher.Drain()

	dotContent, err := visualization.NewDOTGenerator(m.Chart()).WithActive(m.Configuration()).Generate()
	if err != nil {
		t.Fatalf("Failed to generate DOT: %v", err)
	}

	if !strings.Contains(dotContent, "\"a\" [shape=box style=\"filled\" fillcolor=lightgreen") {
		t.Error("active state should be highlighted")
	}

	if !strings.Contains(dotContent, "\"b\" [shape=box style=\"filled\" fillcolor=lightblue") {
		t.Error("inactive state should not be highlighted")
	}
}

func TestDOTGenerationNilChart(t *testing.T) {
	if _, err := visualization.NewDOTGenerator(nil).Generate(); err == nil {
		t.Error("expected an error for a nil chart")
	}
}
