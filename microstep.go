package statechart

import (
	"fmt"
	"slices"
)

// stepAssignments holds the property assignments of the states entered by
// one microstep, including the implicit ones that restore exited values
type stepAssignments struct {
	byState map[StateID][]PropertyAssignment
	saved   map[restorableKey]any
}

func (sa *stepAssignments) assigns(key restorableKey) bool {
	for _, list := range sa.byState {
		for _, a := range list {
			if a.key() == key {
				return true
			}
		}
	}
	return false
}

// microstep takes every enabled transition at once: all exits, then the
// transition actions in the order given, then all entries
func (m *Machine) microstep(e Event, enabled []*transitionRecord) {
	infos := make([]TransitionInfo, 0, len(enabled))
	for _, t := range enabled {
		if t.id != NoTransition {
			infos = append(infos, t.info())
		}
	}
	m.observers.NotifyMicrostepBegin(m, e, infos)

	exitSet := m.computeExitSet(enabled)
	m.recordHistory(exitSet)
	entrySet, widened := m.computeEntrySet(enabled, exitSet)
	if len(widened) != len(exitSet) {
		m.recordHistory(widened)
		exitSet = widened
	}
	assignments := m.computeAssignments(entrySet, exitSet)

	m.logger.Debug("microstep",
		"event", eventName(e),
		"transitions", len(enabled),
		"exit", m.chart.Names(exitSet),
		"entry", m.chart.Names(entrySet))

	m.exitStates(e, exitSet, assignments)
	m.executeTransitionContent(e, enabled)
	m.enterStates(e, entrySet, assignments, enabled)

	m.observers.NotifyMicrostepEnd(m, e)
}

// recordHistory captures, for every exited state owning history states,
// its active children (shallow) or active atomic descendants (deep)
func (m *Machine) recordHistory(exitSet []StateID) {
	c := m.chart
	active := m.config.IDs()
	for _, s := range exitSet {
		for _, h := range c.node(s).histories {
			deep := c.node(h).historyType == DeepHistory
			var captured []StateID
			for _, a := range active {
				if deep && c.isAtomic(a) && c.isDescendant(a, s) {
					captured = append(captured, a)
				} else if !deep && c.parentOf(a) == s {
					captured = append(captured, a)
				}
			}
			m.history.Record(h, m.sortEntry(captured))
		}
	}
}

// computeAssignments collects the assignments of the entered states. Under
// RestoreProperties, values saved by exited states that nothing assigns
// again are written back by the first entered state, or by the root when
// nothing is entered.
func (m *Machine) computeAssignments(entrySet, exitSet []StateID) *stepAssignments {
	sa := &stepAssignments{
		byState: make(map[StateID][]PropertyAssignment),
		saved:   make(map[restorableKey]any),
	}
	for _, s := range entrySet {
		if list := m.chart.node(s).assignments; len(list) > 0 {
			sa.byState[s] = slices.Clone(list)
		}
	}

	pending := m.restorables.take(exitSet)
	if m.restorePolicy != RestoreProperties || len(pending) == 0 {
		return sa
	}
	for _, r := range pending {
		sa.saved[r.key] = r.value
	}
	first := m.chart.root
	if len(entrySet) > 0 {
		first = entrySet[0]
	}
	for _, r := range pending {
		if !sa.assigns(r.key) {
			sa.byState[first] = append(sa.byState[first], PropertyAssignment{
				Target:   r.key.target,
				Property: r.key.property,
				Value:    r.value,
			})
		}
	}
	return sa
}

func (m *Machine) exitStates(e Event, exitSet []StateID, sa *stepAssignments) {
	for _, s := range exitSet {
		m.safeAction("exit", s, m.chart.node(s).onExit, e)
		m.config.remove(s)
		m.observers.NotifyStateExit(m, s)
		m.observers.NotifyActiveChanged(m, s, false)
		m.unregisterTransitions(s)
		for _, ra := range m.animations.release(s) {
			a := ra.assignment
			if !sa.assigns(a.key()) {
				m.properties.Assign(a.Target, a.Property, a.Value)
			}
		}
	}
}

func (m *Machine) executeTransitionContent(e Event, enabled []*transitionRecord) {
	for _, t := range enabled {
		m.safeApply(t, e)
		if t.id != NoTransition {
			m.observers.NotifyTransition(m, t.info(), e)
		}
	}
}

func (m *Machine) enterStates(e Event, entrySet []StateID, sa *stepAssignments, enabled []*transitionRecord) {
	c := m.chart
	var candidates []Animation
	for _, t := range enabled {
		candidates = append(candidates, t.animations...)
	}
	candidates = append(candidates, m.defaultAnimations...)
	claimed := make(map[Animation]bool)
	var started []*runningAnimation

	for _, a := range sa.byState[c.root] {
		m.properties.Assign(a.Target, a.Property, a.Value)
	}

	for _, s := range entrySet {
		m.config.add(s)
		m.registerTransitions(s)

		for _, a := range sa.byState[s] {
			if a.explicit && m.restorePolicy == RestoreProperties {
				value, ok := sa.saved[a.key()]
				if !ok {
					value = m.properties.Value(a.Target, a.Property)
				}
				m.restorables.register(s, a.key(), value)
			}
			if anim := claimAnimation(candidates, a, claimed); anim != nil {
				m.animations.detach(anim)
				ra := &runningAnimation{anim: anim, state: s, assignment: a}
				m.animations.add(ra)
				started = append(started, ra)
				continue
			}
			m.properties.Assign(a.Target, a.Property, a.Value)
		}

		m.safeAction("entry", s, c.node(s).onEntry, e)
		m.observers.NotifyStateEnter(m, s)
		m.observers.NotifyActiveChanged(m, s, true)
		if len(sa.byState[s]) > 0 && m.animations.pending(s) == 0 {
			m.observers.NotifyPropertiesAssigned(m, s)
		}
		if c.isFinal(s) {
			m.propagateFinal(s)
		}
	}

	for _, ra := range started {
		ra.anim.Start(ra.assignment.Value, func() { m.animationDone(ra) })
	}
	m.finished = m.reachedTopLevelFinal()
}

// propagateFinal reports the parent of an entered final state as finished,
// and its grandparent as well when that is a parallel state whose regions
// are all finished
func (m *Machine) propagateFinal(final StateID) {
	c := m.chart
	parent := c.parentOf(final)
	if parent == NoState {
		return
	}
	if parent != c.root {
		m.stateFinished(parent, final)
	}
	grandparent := c.parentOf(parent)
	if grandparent == NoState || grandparent == c.root || !c.isParallel(grandparent) {
		return
	}
	for _, child := range c.node(grandparent).children {
		if !m.isInFinalState(child) {
			return
		}
	}
	m.stateFinished(grandparent, final)
}

func (m *Machine) stateFinished(state, final StateID) {
	m.observers.NotifyStateFinished(m, state, final)
	m.mu.Lock()
	m.internalQueue = append(m.internalQueue, newDoneEvent(state, m.chart.Name(state), final))
	m.mu.Unlock()
}

func (m *Machine) isInFinalState(s StateID) bool {
	c := m.chart
	switch {
	case c.isCompound(s):
		for _, child := range c.node(s).children {
			if c.isFinal(child) && m.config.Contains(child) {
				return true
			}
		}
		return false
	case c.isParallel(s):
		for _, child := range c.node(s).children {
			if !m.isInFinalState(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// reachedTopLevelFinal reports whether the machine as a whole is finished
func (m *Machine) reachedTopLevelFinal() bool {
	c := m.chart
	rootMode := c.node(c.root).mode
	for _, s := range m.config.IDs() {
		if !c.isFinal(s) {
			continue
		}
		parent := c.parentOf(s)
		if parent == c.root && rootMode == ExclusiveStates {
			return true
		}
		if c.parentOf(parent) == c.root && rootMode == ParallelStates && m.isInFinalState(c.root) {
			return true
		}
	}
	return false
}

func (m *Machine) animationDone(ra *runningAnimation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == NotRunning {
		return
	}
	m.finishedAnimations = append(m.finishedAnimations, ra)
	m.scheduleLocked()
}

// settleAnimations writes the end values of completed animations
func (m *Machine) settleAnimations() {
	m.mu.Lock()
	done := m.finishedAnimations
	m.finishedAnimations = nil
	m.mu.Unlock()
	for _, ra := range done {
		if !m.animations.finish(ra) {
			continue
		}
		a := ra.assignment
		m.properties.Assign(a.Target, a.Property, a.Value)
		if m.animations.pending(ra.state) == 0 {
			m.observers.NotifyPropertiesAssigned(m, ra.state)
		}
	}
}

func (m *Machine) registerTransitions(s StateID) {
	if m.registry == nil {
		return
	}
	for _, tid := range m.chart.node(s).transitions {
		if t := m.chart.edge(tid); t != nil {
			m.registry.Register(m, t.info())
		}
	}
}

func (m *Machine) unregisterTransitions(s StateID) {
	if m.registry == nil {
		return
	}
	for _, tid := range m.chart.node(s).transitions {
		if t := m.chart.edge(tid); t != nil {
			m.registry.Unregister(m, t.info())
		}
	}
}

// safeAction runs an entry or exit callback, turning a panic into an
// observer error
func (m *Machine) safeAction(kind string, s StateID, fn ActionFunc, e Event) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.reportPanic(fmt.Errorf("%s action panic in state '%s': %v", kind, m.chart.Name(s), r))
		}
	}()
	fn(e)
}

func (m *Machine) safeApply(t *transitionRecord, e Event) {
	defer func() {
		if r := recover(); r != nil {
			m.reportPanic(fmt.Errorf("transition action panic in state '%s': %v", m.chart.Name(t.source), r))
		}
	}()
	t.apply(e)
}

func (m *Machine) safeTest(t *transitionRecord, e Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.reportPanic(fmt.Errorf("guard panic in state '%s': %v", m.chart.Name(t.source), r))
		}
	}()
	return t.test(e)
}

func (m *Machine) reportPanic(err error) {
	m.logger.Error("callback panic", "error", err)
	m.observers.NotifyError(m, err)
}

func eventName(e Event) string {
	if IsNullEvent(e) {
		return ""
	}
	return e.GetName()
}
