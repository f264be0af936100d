package statechart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestObserver records every notification as a readable line
type TestObserver struct {
	mutex    sync.RWMutex
	Log      []string
	Entered  []string
	Exited   []string
	Finished []string
	Rejected []string
	Errors   []error
	Assigned []string
	Started  int
	Stopped  int
	Done     int
}

func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) record(line string) {
	o.Log = append(o.Log, line)
}

func (o *TestObserver) OnTransition(m *Machine, t TransitionInfo, event Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.record("transition:" + m.Chart().Name(t.Source))
}

func (o *TestObserver) OnStateEnter(m *Machine, state StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	name := m.Chart().Name(state)
	o.Entered = append(o.Entered, name)
	o.record("enter:" + name)
}

func (o *TestObserver) OnStateExit(m *Machine, state StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	name := m.Chart().Name(state)
	o.Exited = append(o.Exited, name)
	o.record("exit:" + name)
}

func (o *TestObserver) OnActiveChanged(m *Machine, state StateID, active bool) {}

func (o *TestObserver) OnStateFinished(m *Machine, state StateID, final StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Finished = append(o.Finished, m.Chart().Name(state))
}

func (o *TestObserver) OnPropertiesAssigned(m *Machine, state StateID) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Assigned = append(o.Assigned, m.Chart().Name(state))
}

func (o *TestObserver) OnMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo) {}

func (o *TestObserver) OnMicrostepEnd(m *Machine, event Event) {}

func (o *TestObserver) OnEventRejected(m *Machine, event Event) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Rejected = append(o.Rejected, event.GetName())
}

func (o *TestObserver) OnError(m *Machine, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) OnMachineStarted(m *Machine) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started++
}

func (o *TestObserver) OnMachineStopped(m *Machine) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Stopped++
}

func (o *TestObserver) OnMachineFinished(m *Machine) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Done++
}

// Reset forgets everything recorded so far
func (o *TestObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Log, o.Entered, o.Exited, o.Finished = nil, nil, nil, nil
	o.Rejected, o.Errors, o.Assigned = nil, nil, nil
}

// harness runs a machine on a manual dispatcher
type harness struct {
	t          *testing.T
	m          *Machine
	dispatcher *ManualDispatcher
	obs        *TestObserver
}

func newHarness(t *testing.T, c *Chart, opts ...Option) *harness {
	t.Helper()
	h := &harness{t: t, dispatcher: NewManualDispatcher(), obs: NewTestObserver()}
	opts = append([]Option{WithDispatcher(h.dispatcher), WithObserver(h.obs)}, opts...)
	h.m = NewMachine(c, opts...)
	return h
}

func buildHarness(t *testing.T, mb *MachineBuilder, opts ...Option) *harness {
	t.Helper()
	c, err := mb.Chart()
	require.NoError(t, err)
	return newHarness(t, c, opts...)
}

func (h *harness) start() *harness {
	h.t.Helper()
	require.NoError(h.t, h.m.Start())
	h.dispatcher.Drain()
	return h
}

func (h *harness) send(names ...string) *harness {
	h.t.Helper()
	for _, name := range names {
		require.NoError(h.t, h.m.Send(name, nil))
	}
	h.dispatcher.Drain()
	return h
}

func (h *harness) active() []string {
	return h.m.ActiveStateNames()
}
