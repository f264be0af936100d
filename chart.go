package statechart

import (
	"fmt"
	"sync/atomic"
)

// Chart is the arena holding every state and transition of a machine.
// Parent and child links are StateIDs, so reparenting is an index rewrite
// and the whole tree goes away with the chart.
//
// Structural mutation is only allowed while the owning machine is not
// running.
type Chart struct {
	states      []*stateRecord
	transitions []*transitionRecord
	names       map[string]StateID
	root        StateID
	frozen      *atomic.Bool
}

// NewChart creates a chart holding only the root state
func NewChart() *Chart {
	c := &Chart{
		names:  make(map[string]StateID),
		frozen: &atomic.Bool{},
	}
	c.root = c.newRecord("root", Compound, NoState).id
	return c
}

// Root returns the virtual root state. It is never part of a configuration.
func (c *Chart) Root() StateID {
	return c.root
}

func (c *Chart) newRecord(name string, kind StateKind, parent StateID) *stateRecord {
	r := &stateRecord{
		id:                StateID(len(c.states)),
		name:              name,
		kind:              kind,
		parent:            parent,
		initial:           NoState,
		errorState:        NoState,
		defaultTransition: NoTransition,
	}
	c.states = append(c.states, r)
	return r
}

func (c *Chart) checkMutable(op string) error {
	if c.frozen.Load() {
		return NewMachineRunningError(op)
	}
	return nil
}

func (c *Chart) node(id StateID) *stateRecord {
	if id < 0 || int(id) >= len(c.states) {
		return nil
	}
	return c.states[id]
}

func (c *Chart) edge(id TransitionID) *transitionRecord {
	if id < 0 || int(id) >= len(c.transitions) {
		return nil
	}
	t := c.transitions[id]
	if t.removed {
		return nil
	}
	return t
}

func (c *Chart) addChild(parent StateID, name string, kind StateKind, mode ChildMode) (StateID, error) {
	if err := c.checkMutable("AddState"); err != nil {
		return NoState, err
	}
	p := c.node(parent)
	if p == nil {
		return NoState, NewStateNotFoundError(fmt.Sprint(parent))
	}
	if p.kind != Compound {
		return NoState, NewConfigurationError(p.name, fmt.Sprintf("%s state cannot own children", p.kind))
	}
	if name == "" {
		return NoState, NewConfigurationError("Chart", "state name cannot be empty")
	}
	if _, exists := c.names[name]; exists || name == c.states[c.root].name {
		return NoState, NewConfigurationError("Chart", fmt.Sprintf("duplicate state name '%s'", name))
	}
	r := c.newRecord(name, kind, parent)
	r.mode = mode
	c.names[name] = r.id
	if kind == History {
		p.histories = append(p.histories, r.id)
	} else {
		p.children = append(p.children, r.id)
	}
	return r.id, nil
}

// AddState adds an exclusive compound state (atomic until it gets children)
func (c *Chart) AddState(parent StateID, name string) (StateID, error) {
	return c.addChild(parent, name, Compound, ExclusiveStates)
}

// AddParallelState adds a compound state whose children are all active together
func (c *Chart) AddParallelState(parent StateID, name string) (StateID, error) {
	return c.addChild(parent, name, Compound, ParallelStates)
}

// AddFinalState adds a final state
func (c *Chart) AddFinalState(parent StateID, name string) (StateID, error) {
	return c.addChild(parent, name, Final, ExclusiveStates)
}

// AddHistoryState adds a history pseudo-state to a compound parent
func (c *Chart) AddHistoryState(parent StateID, name string, typ HistoryType) (StateID, error) {
	id, err := c.addChild(parent, name, History, ExclusiveStates)
	if err != nil {
		return NoState, err
	}
	c.states[id].historyType = typ
	return id, nil
}

func (c *Chart) compound(op string, id StateID) (*stateRecord, error) {
	if err := c.checkMutable(op); err != nil {
		return nil, err
	}
	r := c.node(id)
	if r == nil {
		return nil, NewStateNotFoundError(fmt.Sprint(id))
	}
	if r.kind != Compound {
		return nil, NewConfigurationError(r.name, fmt.Sprintf("%s requires a compound state, got %s", op, r.kind))
	}
	return r, nil
}

// SetInitialState sets the child entered by default
func (c *Chart) SetInitialState(state, initial StateID) error {
	r, err := c.compound("SetInitialState", state)
	if err != nil {
		return err
	}
	if initial != NoState {
		child := c.node(initial)
		if child == nil {
			return NewStateNotFoundError(fmt.Sprint(initial))
		}
		if child.parent != state {
			return NewConfigurationError(r.name, fmt.Sprintf("initial state '%s' is not a child", child.name))
		}
	}
	r.initial = initial
	return nil
}

// SetChildMode switches a compound state between exclusive and parallel
func (c *Chart) SetChildMode(state StateID, mode ChildMode) error {
	r, err := c.compound("SetChildMode", state)
	if err != nil {
		return err
	}
	r.mode = mode
	return nil
}

// SetErrorState sets the state entered when a structural error occurs
// inside state. Set it on the root for a machine-wide error state.
func (c *Chart) SetErrorState(state, errorState StateID) error {
	r, err := c.compound("SetErrorState", state)
	if err != nil {
		return err
	}
	if errorState == c.root {
		return NewConfigurationError(r.name, "root cannot be an error state")
	}
	if errorState != NoState {
		e := c.node(errorState)
		if e == nil {
			return NewStateNotFoundError(fmt.Sprint(errorState))
		}
		if e.kind == History {
			return NewConfigurationError(r.name, "history state cannot be an error state")
		}
	}
	r.errorState = errorState
	return nil
}

// SetSubMachine marks a compound state as the boundary of a nested machine.
// Such states are skipped when searching for a transition's domain.
func (c *Chart) SetSubMachine(state StateID, sub bool) error {
	r, err := c.compound("SetSubMachine", state)
	if err != nil {
		return err
	}
	r.subMachine = sub
	return nil
}

// AssignProperty adds a property assignment performed when state is entered
func (c *Chart) AssignProperty(state StateID, target any, property string, value any) error {
	r, err := c.compound("AssignProperty", state)
	if err != nil {
		return err
	}
	for i, a := range r.assignments {
		if a.Target == target && a.Property == property {
			r.assignments[i].Value = value
			return nil
		}
	}
	r.assignments = append(r.assignments, PropertyAssignment{Target: target, Property: property, Value: value, explicit: true})
	return nil
}

// SetOnEntry sets the callback invoked when the state is entered
func (c *Chart) SetOnEntry(state StateID, fn ActionFunc) error {
	if err := c.checkMutable("SetOnEntry"); err != nil {
		return err
	}
	r := c.node(state)
	if r == nil {
		return NewStateNotFoundError(fmt.Sprint(state))
	}
	r.onEntry = fn
	return nil
}

// SetOnExit sets the callback invoked when the state is exited
func (c *Chart) SetOnExit(state StateID, fn ActionFunc) error {
	if err := c.checkMutable("SetOnExit"); err != nil {
		return err
	}
	r := c.node(state)
	if r == nil {
		return NewStateNotFoundError(fmt.Sprint(state))
	}
	r.onExit = fn
	return nil
}

func (c *Chart) newTransition(source StateID, targets []StateID, opts []TransitionOption) (*transitionRecord, error) {
	for _, target := range targets {
		if c.node(target) == nil {
			return nil, NewStateNotFoundError(fmt.Sprint(target))
		}
	}
	t := &transitionRecord{
		id:      TransitionID(len(c.transitions)),
		source:  source,
		targets: append([]StateID(nil), targets...),
	}
	for _, opt := range opts {
		opt(t)
	}
	c.transitions = append(c.transitions, t)
	return t, nil
}

// AddTransition adds an outgoing transition to a compound state. Transitions
// are tested in the order they were added.
func (c *Chart) AddTransition(source StateID, targets []StateID, opts ...TransitionOption) (TransitionID, error) {
	r, err := c.compound("AddTransition", source)
	if err != nil {
		return NoTransition, err
	}
	if source == c.root {
		return NoTransition, NewConfigurationError("Chart", "root cannot own transitions")
	}
	t, err := c.newTransition(source, targets, opts)
	if err != nil {
		return NoTransition, err
	}
	r.transitions = append(r.transitions, t.id)
	return t.id, nil
}

// SetHistoryDefault sets the targets entered through a history state that
// has not recorded anything yet
func (c *Chart) SetHistoryDefault(history StateID, targets ...StateID) (TransitionID, error) {
	if err := c.checkMutable("SetHistoryDefault"); err != nil {
		return NoTransition, err
	}
	h := c.node(history)
	if h == nil {
		return NoTransition, NewStateNotFoundError(fmt.Sprint(history))
	}
	if h.kind != History {
		return NoTransition, NewConfigurationError(h.name, "default transition requires a history state")
	}
	t, err := c.newTransition(history, targets, nil)
	if err != nil {
		return NoTransition, err
	}
	if old := c.edge(h.defaultTransition); old != nil {
		old.removed = true
	}
	h.defaultTransition = t.id
	return t.id, nil
}

// RemoveTransition detaches a transition from its source
func (c *Chart) RemoveTransition(id TransitionID) error {
	if err := c.checkMutable("RemoveTransition"); err != nil {
		return err
	}
	t := c.edge(id)
	if t == nil {
		return NewStateError(ErrCodeTransitionNotFound, fmt.Sprint(id), "transition not found")
	}
	c.detachTransition(t)
	return nil
}

func (c *Chart) detachTransition(t *transitionRecord) {
	t.removed = true
	if src := c.node(t.source); src != nil {
		src.transitions = removeID(src.transitions, t.id)
	}
}

// Reparent moves a state (and its subtree) under a new compound parent,
// appending it after the existing children
func (c *Chart) Reparent(id, parent StateID) error {
	if err := c.checkMutable("Reparent"); err != nil {
		return err
	}
	r := c.node(id)
	p := c.node(parent)
	if r == nil {
		return NewStateNotFoundError(fmt.Sprint(id))
	}
	if p == nil {
		return NewStateNotFoundError(fmt.Sprint(parent))
	}
	if id == c.root {
		return NewConfigurationError("Chart", "root cannot be reparented")
	}
	if p.kind != Compound {
		return NewConfigurationError(p.name, fmt.Sprintf("%s state cannot own children", p.kind))
	}
	if parent == id || c.isDescendant(parent, id) {
		return NewConfigurationError(r.name, fmt.Sprintf("reparenting under '%s' would create a cycle", p.name))
	}
	c.unlink(r)
	r.parent = parent
	if r.kind == History {
		p.histories = append(p.histories, id)
	} else {
		p.children = append(p.children, id)
	}
	return nil
}

// Detach removes a state and its subtree from the tree. The outgoing
// transitions of every detached state are removed as well. A detached state
// can be attached again with Reparent.
func (c *Chart) Detach(id StateID) error {
	if err := c.checkMutable("Detach"); err != nil {
		return err
	}
	r := c.node(id)
	if r == nil {
		return NewStateNotFoundError(fmt.Sprint(id))
	}
	if id == c.root {
		return NewConfigurationError("Chart", "root cannot be detached")
	}
	c.unlink(r)
	r.parent = NoState
	c.walk(id, func(s *stateRecord) {
		for _, tid := range append([]TransitionID(nil), s.transitions...) {
			c.detachTransition(c.transitions[tid])
		}
	})
	return nil
}

func (c *Chart) unlink(r *stateRecord) {
	if p := c.node(r.parent); p != nil {
		p.children = removeID(p.children, r.id)
		p.histories = removeID(p.histories, r.id)
	}
}

// walk visits id and its descendants (children, then histories) in document order
func (c *Chart) walk(id StateID, fn func(*stateRecord)) {
	r := c.node(id)
	if r == nil {
		return
	}
	fn(r)
	for _, child := range r.children {
		c.walk(child, fn)
	}
	for _, h := range r.histories {
		c.walk(h, fn)
	}
}

// Lookup finds a state by name
func (c *Chart) Lookup(name string) (StateID, bool) {
	if name == c.states[c.root].name {
		return c.root, true
	}
	id, ok := c.names[name]
	return id, ok
}

// Name returns the name of a state
func (c *Chart) Name(id StateID) string {
	if r := c.node(id); r != nil {
		return r.name
	}
	return fmt.Sprintf("<%d>", int(id))
}

// Names maps a list of states to their names
func (c *Chart) Names(ids []StateID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = c.Name(id)
	}
	return names
}

// State returns a view of a state record
func (c *Chart) State(id StateID) (StateInfo, bool) {
	r := c.node(id)
	if r == nil {
		return StateInfo{}, false
	}
	return r.info(), true
}

// Transition returns a view of a transition record
func (c *Chart) Transition(id TransitionID) (TransitionInfo, bool) {
	t := c.edge(id)
	if t == nil {
		return TransitionInfo{}, false
	}
	return t.info(), true
}

// States returns every state attached to the tree in document order,
// excluding the root
func (c *Chart) States() []StateID {
	var ids []StateID
	c.walk(c.root, func(r *stateRecord) {
		if r.id != c.root {
			ids = append(ids, r.id)
		}
	})
	return ids
}

// Transitions returns every live transition, including history defaults
func (c *Chart) Transitions() []TransitionID {
	var ids []TransitionID
	for _, t := range c.transitions {
		if !t.removed {
			ids = append(ids, t.id)
		}
	}
	return ids
}

func removeID[T comparable](ids []T, id T) []T {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
