package statechart

import "slices"

// transitionCalc memoizes what a transition resolves to for the current
// configuration
type transitionCalc struct {
	targets     []StateID
	targetsDone bool
	domain      StateID
	domainDone  bool
	exitSet     []StateID
	exitDone    bool
}

type stepCache map[*transitionRecord]*transitionCalc

func (c stepCache) of(t *transitionRecord) *transitionCalc {
	calc, ok := c[t]
	if !ok {
		calc = &transitionCalc{domain: NoState}
		c[t] = calc
	}
	return calc
}

// effectiveTargets returns the declared targets with every history state
// replaced by its recorded states, or by its default targets
func (m *Machine) effectiveTargets(t *transitionRecord) []StateID {
	calc := m.calc.of(t)
	if calc.targetsDone {
		return calc.targets
	}
	var result []StateID
	add := func(ids ...StateID) {
		for _, id := range ids {
			if !slices.Contains(result, id) {
				result = append(result, id)
			}
		}
	}
	for _, s := range t.targets {
		if !m.chart.isHistory(s) {
			add(s)
			continue
		}
		if content := m.historyContent(s); len(content) > 0 {
			add(content...)
			continue
		}
		m.setError(NewNoDefaultStateInHistoryError(s, m.chart.Name(s)))
	}
	calc.targets, calc.targetsDone = result, true
	return result
}

// historyContent returns what entering history state h enters right now:
// its recorded states, or the targets of its default transition
func (m *Machine) historyContent(h StateID) []StateID {
	if recorded := m.history.Lookup(h); len(recorded) > 0 {
		return recorded
	}
	if def := m.chart.edge(m.chart.node(h).defaultTransition); def != nil {
		return def.targets
	}
	return nil
}

// entryTargets resolves the targets of t against the history recorded by
// the current microstep. The memoized effective targets were resolved
// before the exits and may still hold the previous record.
func (m *Machine) entryTargets(t *transitionRecord) []StateID {
	var result []StateID
	for _, s := range t.targets {
		ids := []StateID{s}
		if m.chart.isHistory(s) {
			ids = m.historyContent(s)
		}
		for _, id := range ids {
			if !slices.Contains(result, id) {
				result = append(result, id)
			}
		}
	}
	return result
}

// transitionDomain returns the state whose proper descendants a transition
// may exit, or NoState for a targetless transition or one whose states
// share no compound ancestor
func (m *Machine) transitionDomain(t *transitionRecord) StateID {
	calc := m.calc.of(t)
	if calc.domainDone {
		return calc.domain
	}
	calc.domain, calc.domainDone = m.computeDomain(t), true
	return calc.domain
}

func (m *Machine) computeDomain(t *transitionRecord) StateID {
	c := m.chart
	targets := m.effectiveTargets(t)
	if len(targets) == 0 {
		return NoState
	}
	if t.source == c.root {
		return c.root
	}
	if t.kind == InternalTransition && c.isCompound(t.source) {
		all := true
		for _, s := range targets {
			if !c.isDescendant(s, t.source) {
				all = false
				break
			}
		}
		if all {
			return t.source
		}
	}
	return c.findLCCA(append([]StateID{t.source}, targets...))
}

// exitSetOf returns the active states a transition exits, unordered
func (m *Machine) exitSetOf(t *transitionRecord) []StateID {
	calc := m.calc.of(t)
	if calc.exitDone {
		return calc.exitSet
	}
	calc.exitDone = true
	domain := m.transitionDomain(t)
	if domain == NoState {
		if len(m.effectiveTargets(t)) > 0 {
			m.setError(NewNoCommonAncestorError(t.source, m.chart.Name(t.source)))
		}
		return nil
	}
	for _, s := range m.config.IDs() {
		if m.chart.isDescendant(s, domain) {
			calc.exitSet = append(calc.exitSet, s)
		}
	}
	return calc.exitSet
}

// computeExitSet unites the exit sets of the transitions in exit order
func (m *Machine) computeExitSet(enabled []*transitionRecord) []StateID {
	var result []StateID
	for _, t := range enabled {
		for _, s := range m.exitSetOf(t) {
			if !slices.Contains(result, s) {
				result = append(result, s)
			}
		}
	}
	return m.sortExit(result)
}

// computeEntrySet returns the states to enter in entry order, and the exit
// set to use. When a structural error was redirected during this microstep,
// the states leading to the error state replace the regular entry set.
func (m *Machine) computeEntrySet(enabled []*transitionRecord, exitSet []StateID) ([]StateID, []StateID) {
	b := newEntryBuilder(m)
	for _, t := range enabled {
		for _, s := range t.targets {
			b.addDescendants(s)
		}
		domain := m.transitionDomain(t)
		for _, s := range m.entryTargets(t) {
			b.addAncestors(s, domain)
		}
	}
	if m.errs.pending != NoState {
		return m.errorEntrySet(exitSet)
	}
	if m.errs.fatal {
		return nil, exitSet
	}
	result := make([]StateID, 0, len(b.set))
	for s := range b.set {
		result = append(result, s)
	}
	return m.sortEntry(result), exitSet
}

func (m *Machine) sortEntry(ids []StateID) []StateID {
	slices.SortFunc(ids, func(a, b StateID) int { return orderCmp(m.chart.entryLess, a, b) })
	return ids
}

func (m *Machine) sortExit(ids []StateID) []StateID {
	slices.SortFunc(ids, func(a, b StateID) int { return orderCmp(m.chart.exitLess, a, b) })
	return ids
}

func orderCmp[T any](less func(a, b T) bool, a, b T) int {
	switch {
	case less(a, b):
		return -1
	case less(b, a):
		return 1
	default:
		return 0
	}
}

// entryBuilder collects the descendant and ancestor closures of targets
type entryBuilder struct {
	m   *Machine
	set map[StateID]bool
}

func newEntryBuilder(m *Machine) *entryBuilder {
	return &entryBuilder{m: m, set: make(map[StateID]bool)}
}

func (b *entryBuilder) addDescendants(s StateID) {
	c := b.m.chart
	if c.isHistory(s) {
		h := c.node(s)
		content := b.m.historyContent(s)
		if len(content) == 0 {
			b.m.setError(NewNoDefaultStateInHistoryError(s, h.name))
			return
		}
		for _, r := range content {
			b.addDescendants(r)
		}
		for _, r := range content {
			b.addAncestors(r, h.parent)
		}
		return
	}
	if s == c.root || c.node(s) == nil {
		return
	}
	b.set[s] = true
	switch {
	case c.isCompound(s):
		initial := c.node(s).initial
		if initial == NoState || c.parentOf(initial) != s {
			b.m.setError(NewNoInitialStateError(s, c.Name(s)))
			return
		}
		b.addDescendants(initial)
		b.addAncestors(initial, s)
	case c.isParallel(s):
		for _, child := range c.node(s).children {
			if !b.containsDescendantOf(child) {
				b.addDescendants(child)
			}
		}
	}
}

// addAncestors adds the proper ancestors of s below upper, skipping the
// root; every parallel ancestor brings its other regions along
func (b *entryBuilder) addAncestors(s, upper StateID) {
	c := b.m.chart
	for _, anc := range c.properAncestors(s, upper) {
		if anc == c.root {
			continue
		}
		b.set[anc] = true
		if c.isParallel(anc) {
			for _, child := range c.node(anc).children {
				if !b.containsDescendantOf(child) {
					b.addDescendants(child)
				}
			}
		}
	}
}

func (b *entryBuilder) containsDescendantOf(s StateID) bool {
	for id := range b.set {
		if b.m.chart.isDescendant(id, s) {
			return true
		}
	}
	return false
}
