package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/statechart"
)

// DOTGenerator generates Graphviz DOT format representations of state charts
type DOTGenerator struct {
	chart   *statechart.Chart
	options DOTOptions
	active  map[statechart.StateID]bool
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowGuardConditions bool
	ShowPseudostates    bool
	CompactMode         bool
	RankDirection       string // "TB", "LR", "BT", "RL"
	NodeShape           string
	TransitionStyle     string
	CompositeStateStyle string
	ParallelStateStyle  string
	PseudostateStyle    string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowGuardConditions: true,
		ShowPseudostates:    true,
		CompactMode:         false,
		RankDirection:       "TB",
		NodeShape:           "box",
		TransitionStyle:     "solid",
		CompositeStateStyle: "rounded",
		ParallelStateStyle:  "dashed",
		PseudostateStyle:    "circle",
	}
}

// NewDOTGenerator creates a new DOT generator for the given chart
func NewDOTGenerator(chart *statechart.Chart, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		chart:   chart,
		options: opts,
		active:  make(map[statechart.StateID]bool),
	}
}

// WithActive highlights the given states, typically a machine's configuration
func (g *DOTGenerator) WithActive(states []statechart.StateID) *DOTGenerator {
	for _, s := range states {
		g.active[s] = true
	}
	return g
}

// Generate creates a DOT representation of the chart
func (g *DOTGenerator) Generate() (string, error) {
	if g.chart == nil {
		return "", fmt.Errorf("failed to generate states: chart is nil")
	}
	var dot strings.Builder

	dot.WriteString("digraph StateChart {\n")
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	dot.WriteString("  compound=true;\n")
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	root, _ := g.chart.State(g.chart.Root())
	if root.Initial != statechart.NoState {
		dot.WriteString("  \"__start\" [shape=point];\n")
		fmt.Fprintf(&dot, "  \"__start\" -> %s;\n", g.nodeRef(root.Initial))
	}

	dot.WriteString("  // States\n")
	for _, child := range root.Children {
		g.generateState(&dot, child, "  ")
	}
	if g.options.ShowPseudostates {
		for _, h := range root.Histories {
			g.generateState(&dot, h, "  ")
		}
	}

	dot.WriteString("\n  // Transitions\n")
	for _, id := range g.chart.Transitions() {
		g.generateTransition(&dot, id)
	}

	dot.WriteString("}\n")
	return dot.String(), nil
}

func (g *DOTGenerator) isCluster(info statechart.StateInfo) bool {
	return !g.options.CompactMode && info.Kind == statechart.Compound && len(info.Children) > 0
}

// generateState writes a node, or a cluster for a state with children
func (g *DOTGenerator) generateState(dot *strings.Builder, id statechart.StateID, indent string) {
	info, ok := g.chart.State(id)
	if !ok {
		return
	}

	if !g.isCluster(info) {
		g.generateStateNode(dot, info, indent)
		if info.Kind == statechart.Compound {
			for _, child := range info.Children {
				g.generateState(dot, child, indent)
			}
			if g.options.ShowPseudostates {
				for _, h := range info.Histories {
					g.generateState(dot, h, indent)
				}
			}
		}
		return
	}

	style := g.options.CompositeStateStyle
	label := info.Name
	if info.IsParallel() {
		style = g.options.ParallelStateStyle
		label += " [parallel]"
	}
	if info.SubMachine {
		label += " [machine]"
	}
	fmt.Fprintf(dot, "%ssubgraph \"cluster_%s\" {\n", indent, info.Name)
	fmt.Fprintf(dot, "%s  label=\"%s\";\n", indent, label)
	fmt.Fprintf(dot, "%s  style=\"%s\";\n", indent, style)
	if g.active[id] {
		fmt.Fprintf(dot, "%s  color=darkgreen;\n", indent)
	}
	// anchor node for edges leaving or entering the cluster
	fmt.Fprintf(dot, "%s  \"%s\" [shape=point style=invis];\n", indent, info.Name)
	if info.Initial != statechart.NoState && !info.IsParallel() {
		fmt.Fprintf(dot, "%s  \"%s__start\" [shape=point];\n", indent, info.Name)
		fmt.Fprintf(dot, "%s  \"%s__start\" -> %s;\n", indent, info.Name, g.nodeRef(info.Initial))
	}
	for _, child := range info.Children {
		g.generateState(dot, child, indent+"  ")
	}
	if g.options.ShowPseudostates {
		for _, h := range info.Histories {
			g.generateState(dot, h, indent+"  ")
		}
	}
	fmt.Fprintf(dot, "%s}\n", indent)
}

// generateStateNode generates a DOT node for a single state
func (g *DOTGenerator) generateStateNode(dot *strings.Builder, info statechart.StateInfo, indent string) {
	shape := g.options.NodeShape
	fillColor := "lightblue"
	label := info.Name

	switch info.Kind {
	case statechart.Final:
		shape = "doublecircle"
		fillColor = "lightcoral"
	case statechart.History:
		shape = g.options.PseudostateStyle
		fillColor = "lightyellow"
		label = "H"
		if info.HistoryType == statechart.DeepHistory {
			label = "H*"
		}
	default:
		if info.IsParallel() {
			fillColor = "lavender"
		}
	}
	if g.active[info.ID] {
		fillColor = "lightgreen"
	}

	fmt.Fprintf(dot, "%s\"%s\" [shape=%s style=\"filled\" fillcolor=%s label=\"%s\"];\n",
		indent, info.Name, shape, fillColor, label)

	if info.Kind == statechart.History && info.DefaultTransition != statechart.NoTransition {
		if def, ok := g.chart.Transition(info.DefaultTransition); ok {
			for _, target := range def.Targets {
				fmt.Fprintf(dot, "%s\"%s\" -> %s [style=dotted];\n", indent, info.Name, g.nodeRef(target))
			}
		}
	}
}

// nodeRef names the node an edge attaches to
func (g *DOTGenerator) nodeRef(id statechart.StateID) string {
	return fmt.Sprintf("\"%s\"", g.chart.Name(id))
}

// generateTransition generates DOT edges for one transition. A targetless
// transition is drawn as a loop on its source.
func (g *DOTGenerator) generateTransition(dot *strings.Builder, id statechart.TransitionID) {
	t, ok := g.chart.Transition(id)
	if !ok {
		return
	}
	source, ok := g.chart.State(t.Source)
	if !ok || source.Kind == statechart.History {
		return
	}

	label := t.Event
	if label == "" {
		label = "ε"
	}
	if g.options.ShowGuardConditions && t.Guarded {
		label += " [guard]"
	}

	style := g.options.TransitionStyle
	if t.Kind == statechart.InternalTransition {
		style = "dashed"
	}

	targets := t.Targets
	if len(targets) == 0 {
		targets = []statechart.StateID{t.Source}
		style = "dotted"
	}
	for _, target := range targets {
		attrs := []string{fmt.Sprintf("label=\"%s\"", label), fmt.Sprintf("style=%s", style)}
		if g.isCluster(source) {
			attrs = append(attrs, fmt.Sprintf("ltail=\"cluster_%s\"", source.Name))
		}
		if info, ok := g.chart.State(target); ok && g.isCluster(info) && target != t.Source {
			attrs = append(attrs, fmt.Sprintf("lhead=\"cluster_%s\"", info.Name))
		}
		fmt.Fprintf(dot, "  %s -> %s [%s];\n", g.nodeRef(t.Source), g.nodeRef(target), strings.Join(attrs, " "))
	}
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(chart *statechart.Chart, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(chart, options...),
	}
}

// Generate creates an SVG representation of the chart
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the chart
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
