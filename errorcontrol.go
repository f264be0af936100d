package statechart

import (
	"slices"
	"sync"
)

// errorController records the last structural error and the error state
// that resolves it within the current microstep
type errorController struct {
	mu  sync.RWMutex
	err *StructuralError

	// owned by the processing context, reset for every microstep
	pending StateID
	fatal   bool
	raised  map[StructuralError]bool
}

func newErrorController() *errorController {
	return &errorController{pending: NoState, raised: make(map[StructuralError]bool)}
}

func (ec *errorController) resetStep() {
	ec.pending = NoState
	ec.fatal = false
	clear(ec.raised)
}

func (ec *errorController) record(err *StructuralError) {
	ec.mu.Lock()
	ec.err = err
	ec.mu.Unlock()
}

func (ec *errorController) last() *StructuralError {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	return ec.err
}

func (ec *errorController) clear() {
	ec.mu.Lock()
	ec.err = nil
	ec.mu.Unlock()
}

// findErrorState walks from context upwards and returns the first error
// state declared on the way. The root carries the machine-wide one.
func (c *Chart) findErrorState(context StateID) StateID {
	for s := context; s != NoState; s = c.parentOf(s) {
		if r := c.node(s); r != nil && r.errorState != NoState {
			return r.errorState
		}
	}
	return NoState
}

// setError records a structural error and decides how the current
// microstep recovers from it: by entering the nearest error state, or by
// stopping the machine.
func (m *Machine) setError(err *StructuralError) {
	if m.errs.raised[*err] {
		return
	}
	m.errs.raised[*err] = true
	m.errs.record(err)

	errorState := m.chart.findErrorState(err.State)
	if errorState == err.State {
		errorState = NoState
	}
	if errorState != NoState {
		m.errs.pending = errorState
		m.logger.Debug("structural error redirected to error state",
			"error", err.Code.String(),
			"context", err.StateName,
			"error_state", m.chart.Name(errorState))
	} else {
		m.errs.pending = NoState
		m.errs.fatal = true
		m.logger.Warn("unrecoverable error detected in running state machine",
			"error", err.Code.String(),
			"context", err.StateName,
			"message", err.Message)
		m.requestStop()
	}
	m.observers.NotifyError(m, err)
}

// errorEntrySet computes the states to enter in place of the regular entry
// set: the pending error state with its default descendants and its
// ancestors, minus the states that stay active. The exit set is widened to
// the active states that cannot coexist with the error state.
func (m *Machine) errorEntrySet(exitSet []StateID) ([]StateID, []StateID) {
	for attempts := 0; attempts <= len(m.chart.states); attempts++ {
		errorState := m.errs.pending
		if errorState == NoState {
			return nil, exitSet
		}
		b := newEntryBuilder(m)
		b.addDescendants(errorState)
		b.addAncestors(errorState, NoState)
		if m.errs.pending != errorState {
			// entering the error state failed as well
			continue
		}
		exitSet = m.widenExitSet(exitSet, errorState)
		remaining := make(map[StateID]bool)
		for _, s := range m.config.IDs() {
			remaining[s] = true
		}
		for _, s := range exitSet {
			delete(remaining, s)
		}
		var result []StateID
		for s := range b.set {
			if !remaining[s] {
				result = append(result, s)
			}
		}
		return m.sortEntry(result), exitSet
	}

	m.errs.pending = NoState
	m.errs.fatal = true
	m.requestStop()
	return nil, exitSet
}

// widenExitSet adds the active states below the error state's nearest
// compound ancestor, keeping the error state and its ancestors
func (m *Machine) widenExitSet(exitSet []StateID, errorState StateID) []StateID {
	c := m.chart
	domain := c.findLCCA([]StateID{errorState})
	result := slices.Clone(exitSet)
	for _, s := range m.config.IDs() {
		if slices.Contains(result, s) || s == errorState || c.isDescendant(errorState, s) {
			continue
		}
		if domain == NoState || c.isDescendant(s, domain) {
			result = append(result, s)
		}
	}
	return m.sortExit(result)
}
