package statechart

import (
	"errors"
	"fmt"
)

// MachineBuilder provides the main entry point for building state machines.
// States are referenced by name; names are resolved when the chart is built,
// so transitions may point at states declared later.
type MachineBuilder struct {
	root        *StateBuilder
	states      []*StateBuilder
	byName      map[string]*StateBuilder
	transitions []*TransitionBuilder
	errs        []error
}

// StateBuilder configures one state and creates its children
type StateBuilder struct {
	mb          *MachineBuilder
	parent      *StateBuilder
	name        string
	kind        StateKind
	mode        ChildMode
	initial     string
	errorState  string
	subMachine  bool
	assignments []PropertyAssignment
	onEntry     ActionFunc
	onExit      ActionFunc

	historyType     HistoryType
	historyDefaults []string
}

// TransitionBuilder configures one transition
type TransitionBuilder struct {
	source  *StateBuilder
	targets []string
	opts    []TransitionOption
}

// HistoryBuilder configures a history state
type HistoryBuilder struct {
	state *StateBuilder
}

// NewBuilder creates a new machine builder
func NewBuilder() *MachineBuilder {
	mb := &MachineBuilder{byName: make(map[string]*StateBuilder)}
	mb.root = &StateBuilder{mb: mb, name: "root", kind: Compound}
	return mb
}

// State declares a top-level state, or returns the existing one
func (mb *MachineBuilder) State(name string) *StateBuilder {
	return mb.root.State(name)
}

// ParallelState declares a top-level parallel state
func (mb *MachineBuilder) ParallelState(name string) *StateBuilder {
	return mb.root.ParallelState(name)
}

// FinalState declares a top-level final state
func (mb *MachineBuilder) FinalState(name string) *StateBuilder {
	return mb.root.FinalState(name)
}

// Initial sets the top-level initial state
func (mb *MachineBuilder) Initial(name string) *MachineBuilder {
	mb.root.initial = name
	return mb
}

// Parallel makes every top-level state active together
func (mb *MachineBuilder) Parallel() *MachineBuilder {
	mb.root.mode = ParallelStates
	return mb
}

// ErrorState sets the machine-wide error state
func (mb *MachineBuilder) ErrorState(name string) *MachineBuilder {
	mb.root.errorState = name
	return mb
}

// Root returns the builder of the root state
func (mb *MachineBuilder) Root() *StateBuilder {
	return mb.root
}

func (mb *MachineBuilder) declare(parent *StateBuilder, name string, kind StateKind, mode ChildMode) *StateBuilder {
	if existing, ok := mb.byName[name]; ok {
		if existing.parent != parent || existing.kind != kind {
			mb.errs = append(mb.errs, NewConfigurationError("Builder",
				fmt.Sprintf("state '%s' is declared twice with different shapes", name)))
		}
		return existing
	}
	sb := &StateBuilder{mb: mb, parent: parent, name: name, kind: kind, mode: mode}
	mb.byName[name] = sb
	mb.states = append(mb.states, sb)
	return sb
}

// State declares a child state, or returns the existing one
func (sb *StateBuilder) State(name string) *StateBuilder {
	return sb.mb.declare(sb, name, Compound, ExclusiveStates)
}

// ParallelState declares a child whose own children are all active together
func (sb *StateBuilder) ParallelState(name string) *StateBuilder {
	return sb.mb.declare(sb, name, Compound, ParallelStates)
}

// FinalState declares a final child state
func (sb *StateBuilder) FinalState(name string) *StateBuilder {
	return sb.mb.declare(sb, name, Final, ExclusiveStates)
}

// History declares a shallow history child
func (sb *StateBuilder) History(name string) *HistoryBuilder {
	h := sb.mb.declare(sb, name, History, ExclusiveStates)
	h.historyType = ShallowHistory
	return &HistoryBuilder{state: h}
}

// DeepHistory declares a deep history child
func (sb *StateBuilder) DeepHistory(name string) *HistoryBuilder {
	h := sb.mb.declare(sb, name, History, ExclusiveStates)
	h.historyType = DeepHistory
	return &HistoryBuilder{state: h}
}

// Initial marks this state as the initial state of its parent
func (sb *StateBuilder) Initial() *StateBuilder {
	if sb.parent != nil {
		sb.parent.initial = sb.name
	}
	return sb
}

// InitialChild sets the initial child by name
func (sb *StateBuilder) InitialChild(name string) *StateBuilder {
	sb.initial = name
	return sb
}

// ErrorState sets the error state used for structural errors inside this state
func (sb *StateBuilder) ErrorState(name string) *StateBuilder {
	sb.errorState = name
	return sb
}

// SubMachine marks this state as the boundary of a nested machine
func (sb *StateBuilder) SubMachine() *StateBuilder {
	sb.subMachine = true
	return sb
}

// Assign adds a property assignment performed on entry
func (sb *StateBuilder) Assign(target any, property string, value any) *StateBuilder {
	sb.assignments = append(sb.assignments, PropertyAssignment{Target: target, Property: property, Value: value})
	return sb
}

// OnEntry sets entry action for the state
func (sb *StateBuilder) OnEntry(action ActionFunc) *StateBuilder {
	sb.onEntry = action
	return sb
}

// OnExit sets exit action for the state
func (sb *StateBuilder) OnExit(action ActionFunc) *StateBuilder {
	sb.onExit = action
	return sb
}

// To creates a transition to the given states. Without targets the
// transition is targetless.
func (sb *StateBuilder) To(targets ...string) *TransitionBuilder {
	tb := &TransitionBuilder{source: sb, targets: targets}
	sb.mb.transitions = append(sb.mb.transitions, tb)
	return tb
}

// ToSelf creates a self-transition
func (sb *StateBuilder) ToSelf() *TransitionBuilder {
	return sb.To(sb.name)
}

// End returns the builder of the parent state
func (sb *StateBuilder) End() *StateBuilder {
	if sb.parent == nil {
		return sb
	}
	return sb.parent
}

// Build builds the machine
func (sb *StateBuilder) Build(opts ...Option) (*Machine, error) {
	return sb.mb.Build(opts...)
}

// On sets the event for this transition
func (tb *TransitionBuilder) On(event string) *TransitionBuilder {
	tb.opts = append(tb.opts, OnEvent(event))
	return tb
}

// When adds a guard condition
func (tb *TransitionBuilder) When(guard GuardFunc) *TransitionBuilder {
	tb.opts = append(tb.opts, WithGuard(guard))
	return tb
}

// Unless adds a negated guard condition
func (tb *TransitionBuilder) Unless(guard GuardFunc) *TransitionBuilder {
	return tb.When(func(e Event) bool { return !guard(e) })
}

// Do adds an action to this transition
func (tb *TransitionBuilder) Do(action ActionFunc) *TransitionBuilder {
	tb.opts = append(tb.opts, WithAction(action))
	return tb
}

// Handler delegates event matching and the action to h
func (tb *TransitionBuilder) Handler(h TransitionHandler) *TransitionBuilder {
	tb.opts = append(tb.opts, WithHandler(h))
	return tb
}

// Internal makes the transition internal
func (tb *TransitionBuilder) Internal() *TransitionBuilder {
	tb.opts = append(tb.opts, AsInternal())
	return tb
}

// Animate attaches animations to the transition
func (tb *TransitionBuilder) Animate(animations ...Animation) *TransitionBuilder {
	tb.opts = append(tb.opts, WithAnimations(animations...))
	return tb
}

// To creates another transition from the same source state
func (tb *TransitionBuilder) To(targets ...string) *TransitionBuilder {
	return tb.source.To(targets...)
}

// State declares a sibling of the source state
func (tb *TransitionBuilder) State(name string) *StateBuilder {
	return tb.source.sibling().State(name)
}

// ParallelState declares a parallel sibling of the source state
func (tb *TransitionBuilder) ParallelState(name string) *StateBuilder {
	return tb.source.sibling().ParallelState(name)
}

// FinalState declares a final sibling of the source state
func (tb *TransitionBuilder) FinalState(name string) *StateBuilder {
	return tb.source.sibling().FinalState(name)
}

func (sb *StateBuilder) sibling() *StateBuilder {
	if sb.parent == nil {
		return sb.mb.root
	}
	return sb.parent
}

// End returns the builder of the source state
func (tb *TransitionBuilder) End() *StateBuilder {
	return tb.source
}

// Build builds the machine
func (tb *TransitionBuilder) Build(opts ...Option) (*Machine, error) {
	return tb.source.mb.Build(opts...)
}

// Default sets the states entered when the history has nothing recorded
func (hb *HistoryBuilder) Default(targets ...string) *HistoryBuilder {
	hb.state.historyDefaults = targets
	return hb
}

// End returns the builder of the history's parent
func (hb *HistoryBuilder) End() *StateBuilder {
	return hb.state.parent
}

// Chart builds a chart from the declarations
func (mb *MachineBuilder) Chart() (*Chart, error) {
	if len(mb.errs) > 0 {
		return nil, errors.Join(mb.errs...)
	}
	c := NewChart()
	ids := map[*StateBuilder]StateID{mb.root: c.Root()}
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, sb := range mb.states {
		parent := ids[sb.parent]
		var (
			id  StateID
			err error
		)
		switch sb.kind {
		case Final:
			id, err = c.AddFinalState(parent, sb.name)
		case History:
			id, err = c.AddHistoryState(parent, sb.name, sb.historyType)
		default:
			id, err = c.addChild(parent, sb.name, Compound, sb.mode)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids[sb] = id
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	lookup := func(names []string) ([]StateID, error) {
		result := make([]StateID, 0, len(names))
		for _, name := range names {
			id, ok := c.Lookup(name)
			if !ok {
				return nil, NewStateNotFoundError(name)
			}
			result = append(result, id)
		}
		return result, nil
	}

	for _, sb := range append([]*StateBuilder{mb.root}, mb.states...) {
		id := ids[sb]
		if sb.kind == History {
			if len(sb.historyDefaults) > 0 {
				if targets, err := lookup(sb.historyDefaults); err != nil {
					collect(err)
				} else {
					_, err = c.SetHistoryDefault(id, targets...)
					collect(err)
				}
			}
			continue
		}
		if sb.kind == Final {
			collect(c.SetOnEntry(id, sb.onEntry))
			collect(c.SetOnExit(id, sb.onExit))
			continue
		}
		if sb.mode == ParallelStates && sb == mb.root {
			collect(c.SetChildMode(id, ParallelStates))
		}
		if sb.initial != "" {
			target, err := lookup([]string{sb.initial})
			if err != nil {
				collect(err)
			} else {
				collect(c.SetInitialState(id, target[0]))
			}
		}
		if sb.errorState != "" {
			target, err := lookup([]string{sb.errorState})
			if err != nil {
				collect(err)
			} else {
				collect(c.SetErrorState(id, target[0]))
			}
		}
		if sb.subMachine {
			collect(c.SetSubMachine(id, true))
		}
		for _, a := range sb.assignments {
			collect(c.AssignProperty(id, a.Target, a.Property, a.Value))
		}
		if sb != mb.root {
			collect(c.SetOnEntry(id, sb.onEntry))
			collect(c.SetOnExit(id, sb.onExit))
		}
	}

	for _, tb := range mb.transitions {
		targets, err := lookup(tb.targets)
		if err != nil {
			collect(err)
			continue
		}
		_, err = c.AddTransition(ids[tb.source], targets, tb.opts...)
		collect(err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Build builds the chart and a machine interpreting it
func (mb *MachineBuilder) Build(opts ...Option) (*Machine, error) {
	c, err := mb.Chart()
	if err != nil {
		return nil, err
	}
	return NewMachine(c, opts...), nil
}
