package statechart

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChart_NewChart(t *testing.T) {
	c := NewChart()

	root, ok := c.State(c.Root())
	require.True(t, ok)
	assert.Equal(t, "root", root.Name)
	assert.Equal(t, NoState, root.Parent)
	assert.Empty(t, c.States())
	assert.Empty(t, c.Transitions())

	id, ok := c.Lookup("root")
	assert.True(t, ok)
	assert.Equal(t, c.Root(), id)
}

func TestChart_AddStates(t *testing.T) {
	c := NewChart()
	a, err := c.AddState(c.Root(), "a")
	require.NoError(t, err)
	p, err := c.AddParallelState(c.Root(), "p")
	require.NoError(t, err)
	f, err := c.AddFinalState(a, "f")
	require.NoError(t, err)
	h, err := c.AddHistoryState(a, "h", DeepHistory)
	require.NoError(t, err)

	assert.Equal(t, []StateID{a, f, h, p}, c.States())

	info, _ := c.State(a)
	assert.Equal(t, []StateID{f}, info.Children)
	assert.Equal(t, []StateID{h}, info.Histories)
	assert.False(t, info.IsAtomic())

	pInfo, _ := c.State(p)
	assert.True(t, pInfo.IsAtomic())
	assert.False(t, pInfo.IsParallel(), "a parallel state without children behaves as atomic")

	hInfo, _ := c.State(h)
	assert.Equal(t, History, hInfo.Kind)
	assert.Equal(t, DeepHistory, hInfo.HistoryType)

	tests := []struct {
		name   string
		parent StateID
		state  string
	}{
		{"duplicate name", c.Root(), "a"},
		{"root name", c.Root(), "root"},
		{"empty name", c.Root(), ""},
		{"child of final", f, "x"},
		{"child of history", h, "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.AddState(tt.parent, tt.state)
			assert.True(t, IsConfigurationError(err), "got %v", err)
		})
	}

	_, err = c.AddState(StateID(99), "z")
	assert.True(t, IsStateError(err))
}

func TestChart_StateSettings(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	b, _ := c.AddState(c.Root(), "b")
	a1, _ := c.AddState(a, "a1")
	f, _ := c.AddFinalState(c.Root(), "f")
	h, _ := c.AddHistoryState(a, "h", ShallowHistory)

	require.NoError(t, c.SetInitialState(a, a1))
	assert.True(t, IsConfigurationError(c.SetInitialState(a, b)))
	assert.True(t, IsStateError(c.SetInitialState(a, StateID(42))))
	assert.True(t, IsConfigurationError(c.SetInitialState(f, NoState)))

	require.NoError(t, c.SetErrorState(c.Root(), b))
	assert.True(t, IsConfigurationError(c.SetErrorState(a, c.Root())))
	assert.True(t, IsConfigurationError(c.SetErrorState(a, h)))

	require.NoError(t, c.SetSubMachine(a, true))
	require.NoError(t, c.SetChildMode(b, ParallelStates))

	target := &struct{}{}
	require.NoError(t, c.AssignProperty(a, target, "x", 1))
	require.NoError(t, c.AssignProperty(a, target, "x", 2))

	info, _ := c.State(a)
	assert.Equal(t, a1, info.Initial)
	assert.True(t, info.SubMachine)
	require.Len(t, info.Assignments, 1)
	assert.Equal(t, 2, info.Assignments[0].Value)

	rootInfo, _ := c.State(c.Root())
	assert.Equal(t, b, rootInfo.ErrorState)
	bInfo, _ := c.State(b)
	assert.Equal(t, ParallelStates, bInfo.Mode)
}

func TestChart_Transitions(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	b, _ := c.AddState(c.Root(), "b")
	f, _ := c.AddFinalState(c.Root(), "f")
	h, _ := c.AddHistoryState(a, "h", ShallowHistory)
	a1, _ := c.AddState(a, "a1")

	tid, err := c.AddTransition(a, []StateID{b}, OnEvent("go"), AsInternal())
	require.NoError(t, err)
	info, ok := c.Transition(tid)
	require.True(t, ok)
	assert.Equal(t, a, info.Source)
	assert.Equal(t, []StateID{b}, info.Targets)
	assert.Equal(t, "go", info.Event)
	assert.Equal(t, InternalTransition, info.Kind)
	assert.False(t, info.Guarded)

	guarded, err := c.AddTransition(a, nil, WithGuard(func(Event) bool { return true }))
	require.NoError(t, err)
	gInfo, _ := c.Transition(guarded)
	assert.True(t, gInfo.Guarded)
	assert.Empty(t, gInfo.Targets)

	_, err = c.AddTransition(c.Root(), []StateID{a})
	assert.True(t, IsConfigurationError(err))
	_, err = c.AddTransition(f, []StateID{a})
	assert.True(t, IsConfigurationError(err))
	_, err = c.AddTransition(a, []StateID{StateID(77)})
	assert.True(t, IsStateError(err))

	first, err := c.SetHistoryDefault(h, a1)
	require.NoError(t, err)
	second, err := c.SetHistoryDefault(h, a1)
	require.NoError(t, err)
	_, ok = c.Transition(first)
	assert.False(t, ok, "a replaced history default is removed")
	hInfo, _ := c.State(h)
	assert.Equal(t, second, hInfo.DefaultTransition)
	_, err = c.SetHistoryDefault(a, b)
	assert.True(t, IsConfigurationError(err))

	require.NoError(t, c.RemoveTransition(tid))
	_, ok = c.Transition(tid)
	assert.False(t, ok)
	assert.Equal(t, ErrCodeTransitionNotFound, GetErrorCode(c.RemoveTransition(tid)))
	assert.ElementsMatch(t, []TransitionID{guarded, second}, c.Transitions())

	aInfo, _ := c.State(a)
	assert.Equal(t, []TransitionID{guarded}, aInfo.Transitions)
}

func TestChart_ReparentAndDetach(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	b, _ := c.AddState(c.Root(), "b")
	b1, _ := c.AddState(b, "b1")
	f, _ := c.AddFinalState(c.Root(), "f")
	tid, _ := c.AddTransition(b1, []StateID{a}, OnEvent("go"))

	require.NoError(t, c.Reparent(b, a))
	info, _ := c.State(b)
	assert.Equal(t, a, info.Parent)
	aInfo, _ := c.State(a)
	assert.Equal(t, []StateID{b}, aInfo.Children)
	assert.Equal(t, []StateID{a, b, b1, f}, c.States())

	assert.True(t, IsConfigurationError(c.Reparent(a, b1)), "cycle")
	assert.True(t, IsConfigurationError(c.Reparent(a, a)), "self")
	assert.True(t, IsConfigurationError(c.Reparent(c.Root(), a)))
	assert.True(t, IsConfigurationError(c.Reparent(a, f)))

	require.NoError(t, c.Detach(b))
	assert.Equal(t, []StateID{a, f}, c.States())
	_, ok := c.Transition(tid)
	assert.False(t, ok, "transitions of detached states are removed")
	assert.True(t, IsConfigurationError(c.Detach(c.Root())))

	require.NoError(t, c.Reparent(b, c.Root()))
	assert.Equal(t, []StateID{a, f, b, b1}, c.States())
}

func TestChart_FrozenWhileRunning(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	_ = c.SetInitialState(c.Root(), a)
	d := NewManualDispatcher()
	m := NewMachine(c, WithDispatcher(d))
	require.NoError(t, m.Start())
	d.Drain()

	checks := map[string]error{
		"AddState":        func() error { _, err := c.AddState(a, "x"); return err }(),
		"SetInitialState": c.SetInitialState(c.Root(), a),
		"SetOnEntry":      c.SetOnEntry(a, nil),
		"AddTransition":   func() error { _, err := c.AddTransition(a, nil); return err }(),
		"Reparent":        c.Reparent(a, c.Root()),
		"Detach":          c.Detach(a),
	}
	for op, err := range checks {
		assert.Equal(t, ErrCodeMachineRunning, GetErrorCode(err), op)
	}
}

func TestChart_DocumentOrder(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	a1, _ := c.AddState(a, "a1")
	a2, _ := c.AddState(a, "a2")
	a21, _ := c.AddState(a2, "a21")
	b, _ := c.AddState(c.Root(), "b")
	b1, _ := c.AddState(b, "b1")

	shuffled := []StateID{b1, a21, b, a2, a, a1}
	entry := slices.Clone(shuffled)
	slices.SortFunc(entry, func(x, y StateID) int { return orderCmp(c.entryLess, x, y) })
	assert.Equal(t, []string{"a", "a1", "a2", "a21", "b", "b1"}, c.Names(entry))

	exit := slices.Clone(shuffled)
	slices.SortFunc(exit, func(x, y StateID) int { return orderCmp(c.exitLess, x, y) })
	assert.Equal(t, []string{"b1", "b", "a21", "a2", "a1", "a"}, c.Names(exit))

	// reparenting changes document order without touching IDs
	require.NoError(t, c.Reparent(a1, b))
	slices.SortFunc(entry, func(x, y StateID) int { return orderCmp(c.entryLess, x, y) })
	assert.Equal(t, []string{"a", "a2", "a21", "b", "b1", "a1"}, c.Names(entry))
}

func TestChart_LCCA(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	p, _ := c.AddParallelState(a, "p")
	r1, _ := c.AddState(p, "r1")
	r2, _ := c.AddState(p, "r2")
	x, _ := c.AddState(r1, "x")
	y, _ := c.AddState(r2, "y")
	z, _ := c.AddState(c.Root(), "z")

	// parallel states are not compound, the root always is
	assert.Equal(t, a, c.findLCCA([]StateID{x, y}))
	assert.Equal(t, c.Root(), c.findLCCA([]StateID{x, z}))
	assert.Equal(t, p, c.findLCA([]StateID{x, y}, false))

	require.NoError(t, c.SetSubMachine(a, true))
	assert.Equal(t, c.Root(), c.findLCCA([]StateID{x, y}))
}
