package statechart

import (
	"fmt"
	"sync"
)

// InvariantObserver checks the configuration after every microstep and
// collects the violations it finds
type InvariantObserver struct {
	BaseObserver
	violations []string
	steps      int
	mutex      sync.RWMutex
}

// NewInvariantObserver creates a new invariant observer
func NewInvariantObserver() *InvariantObserver {
	return &InvariantObserver{violations: make([]string, 0)}
}

// OnMicrostepEnd validates the configuration
func (o *InvariantObserver) OnMicrostepEnd(m *Machine, event Event) {
	err := m.CheckConfiguration()
	if err == nil {
		err = checkExclusiveRegions(m)
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.steps++
	if err != nil {
		o.violations = append(o.violations, fmt.Sprintf("after microstep %d (event '%s'): %v", o.steps, eventName(event), err))
	}
}

// checkExclusiveRegions verifies that an active exclusive state has exactly
// one active child
func checkExclusiveRegions(m *Machine) error {
	c := m.Chart()
	for _, s := range m.Configuration() {
		if !c.isCompound(s) {
			continue
		}
		active := 0
		for _, child := range c.node(s).children {
			if m.IsActive(child) {
				active++
			}
		}
		if active != 1 {
			return NewConfigurationError("Configuration",
				fmt.Sprintf("exclusive state '%s' has %d active children", c.Name(s), active))
		}
	}
	return nil
}

// GetViolations returns the recorded violations
func (o *InvariantObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	result := make([]string, len(o.violations))
	copy(result, o.violations)
	return result
}

// HasViolations reports whether any violation was recorded
func (o *InvariantObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Steps returns the number of microsteps checked
func (o *InvariantObserver) Steps() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.steps
}

// Reset clears the violations
func (o *InvariantObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = make([]string, 0)
	o.steps = 0
}
