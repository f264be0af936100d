package statechart

import "slices"

// selectTransitions returns the conflict-free set of transitions enabled by
// e. Each atomic active state contributes at most one transition: the first
// enabled one found on the way from the state up to the root.
func (m *Machine) selectTransitions(e Event) []*transitionRecord {
	c := m.chart
	var atomics []StateID
	for _, s := range m.config.IDs() {
		if c.isAtomic(s) {
			atomics = append(atomics, s)
		}
	}
	m.sortEntry(atomics)

	var enabled []*transitionRecord
	for _, s := range atomics {
		if t := m.firstEnabled(s, e); t != nil {
			enabled = append(enabled, t)
		}
	}
	return m.removeConflictingTransitions(enabled)
}

func (m *Machine) firstEnabled(s StateID, e Event) *transitionRecord {
	c := m.chart
	for _, st := range append([]StateID{s}, c.properAncestors(s, NoState)...) {
		r := c.node(st)
		for _, tid := range r.transitions {
			t := c.edge(tid)
			if t != nil && m.safeTest(t, e) {
				return t
			}
		}
	}
	return nil
}

// removeConflictingTransitions keeps, among transitions whose exit sets
// intersect, the one with the more deeply nested source. Ties between
// unrelated sources are broken by document order.
func (m *Machine) removeConflictingTransitions(enabled []*transitionRecord) []*transitionRecord {
	if len(enabled) < 2 {
		return enabled
	}
	slices.SortStableFunc(enabled, func(a, b *transitionRecord) int {
		return orderCmp(m.chart.transitionLess, a, b)
	})

	filtered := make([]*transitionRecord, 0, len(enabled))
	for _, t1 := range enabled {
		preempted := false
		exit1 := m.exitSetOf(t1)
		for i := 0; i < len(filtered); {
			t2 := filtered[i]
			if t1 == t2 {
				preempted = true
				break
			}
			if !intersects(exit1, m.exitSetOf(t2)) {
				i++
				continue
			}
			if m.chart.isDescendant(t1.source, t2.source) {
				filtered = append(filtered[:i], filtered[i+1:]...)
				continue
			}
			preempted = true
			break
		}
		if !preempted {
			filtered = append(filtered, t1)
		}
	}
	return filtered
}

func intersects(a, b []StateID) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}
