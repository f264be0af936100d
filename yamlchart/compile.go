package yamlchart

import (
	"fmt"
	"time"

	"github.com/anggasct/statechart"
)

// Compile builds a machine interpreting the document. Assignment targets
// are object names, so the machine's property assigner is keyed by them.
// Options given here are applied after the ones the document implies.
func (d *Document) Compile(opts ...statechart.Option) (*statechart.Machine, error) {
	var m *statechart.Machine
	mb := d.builder(func() *statechart.Machine { return m })
	chart, err := mb.Chart()
	if err != nil {
		return nil, fmt.Errorf("failed to compile chart '%s': %w", d.Name, err)
	}
	if d.RestoreProperties {
		opts = append([]statechart.Option{statechart.WithRestorePolicy(statechart.RestoreProperties)}, opts...)
	}
	m = statechart.NewMachine(chart, opts...)
	return m, nil
}

// Chart builds the chart alone. Actions in the document are compiled to
// no-ops, which is enough for validation and rendering.
func (d *Document) Chart() (*statechart.Chart, error) {
	chart, err := d.builder(func() *statechart.Machine { return nil }).Chart()
	if err != nil {
		return nil, fmt.Errorf("failed to compile chart '%s': %w", d.Name, err)
	}
	return chart, nil
}

func (d *Document) builder(machine func() *statechart.Machine) *statechart.MachineBuilder {
	mb := statechart.NewBuilder()
	if d.Initial != "" {
		mb.Initial(d.Initial)
	}
	if d.Parallel {
		mb.Parallel()
	}
	if d.ErrorState != "" {
		mb.ErrorState(d.ErrorState)
	}
	c := &compiler{machine: machine}
	for _, s := range d.States {
		c.state(mb.Root(), s)
	}
	return mb
}

type compiler struct {
	machine func() *statechart.Machine
}

func (c *compiler) state(parent *statechart.StateBuilder, s StateSpec) {
	var sb *statechart.StateBuilder
	switch s.Type {
	case TypeFinal:
		sb = parent.FinalState(s.Name)
	case TypeHistory:
		parent.History(s.Name).Default(s.Default...)
		return
	case TypeDeepHistory:
		parent.DeepHistory(s.Name).Default(s.Default...)
		return
	case TypeParallel:
		sb = parent.ParallelState(s.Name)
	default:
		sb = parent.State(s.Name)
	}

	if s.Initial != "" {
		sb.InitialChild(s.Initial)
	}
	if s.ErrorState != "" {
		sb.ErrorState(s.ErrorState)
	}
	if s.SubMachine {
		sb.SubMachine()
	}
	for _, a := range s.Assign {
		sb.Assign(a.Target, a.Property, a.Value)
	}
	if len(s.OnEntry) > 0 {
		sb.OnEntry(c.actions(s.OnEntry))
	}
	if len(s.OnExit) > 0 {
		sb.OnExit(c.actions(s.OnExit))
	}
	for _, child := range s.States {
		c.state(sb, child)
	}
	for _, t := range s.Transitions {
		c.transition(sb, t)
	}
}

func (c *compiler) transition(sb *statechart.StateBuilder, t TransitionSpec) {
	tb := sb.To(t.AllTargets()...)
	if t.Event != "" {
		tb.On(t.Event)
	}
	if t.Internal {
		tb.Internal()
	}
	if t.In != "" || t.NotIn != "" {
		in, notIn := t.In, t.NotIn
		tb.When(func(statechart.Event) bool {
			m := c.machine()
			if m == nil {
				return false
			}
			if in != "" && !m.InState(in) {
				return false
			}
			return notIn == "" || !m.InState(notIn)
		})
	}
	if len(t.Actions) > 0 {
		tb.Do(c.actions(t.Actions))
	}
}

// actions compiles a list of event posts into one callback
func (c *compiler) actions(specs []ActionSpec) statechart.ActionFunc {
	return func(e statechart.Event) {
		m := c.machine()
		if m == nil {
			return
		}
		for _, a := range specs {
			if err := post(m, a, e.GetData()); err != nil {
				m.Logger().Warn("chart action failed",
					"trigger", e.GetName(),
					"raise", a.Raise,
					"send", a.Send,
					"error", err)
			}
		}
	}
}

func post(m *statechart.Machine, a ActionSpec, data any) error {
	switch {
	case a.Raise != "":
		return m.Raise(a.Raise, data)
	case a.Delay != "":
		delay, err := time.ParseDuration(a.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay '%s': %w", a.Delay, err)
		}
		_, err = m.PostDelayedEvent(statechart.NewEvent(a.Send, data), delay)
		return err
	default:
		return m.Send(a.Send, data)
	}
}
