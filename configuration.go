package statechart

import (
	"fmt"
	"slices"
	"sync"
)

// Configuration is the set of currently active states. Membership changes
// only inside a microstep; readers on other goroutines see every single
// add/remove atomically.
type Configuration struct {
	mu     sync.RWMutex
	active map[StateID]struct{}
}

func newConfiguration() *Configuration {
	return &Configuration{active: make(map[StateID]struct{})}
}

func (c *Configuration) add(id StateID) {
	c.mu.Lock()
	c.active[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Configuration) remove(id StateID) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

func (c *Configuration) clear() {
	c.mu.Lock()
	clear(c.active)
	c.mu.Unlock()
}

// Contains reports whether a state is active
func (c *Configuration) Contains(id StateID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.active[id]
	return ok
}

// Len returns the number of active states
func (c *Configuration) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}

// IDs returns the active states sorted by ID
func (c *Configuration) IDs() []StateID {
	c.mu.RLock()
	ids := make([]StateID, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// CheckInvariant verifies that the parent of every active state is active,
// unless the parent is the root, and that the root is never a member.
func (c *Configuration) CheckInvariant(chart *Chart) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.active[chart.root]; ok {
		return NewConfigurationError("Configuration", "root must not be active")
	}
	for id := range c.active {
		parent := chart.parentOf(id)
		if parent == NoState {
			return NewConfigurationError("Configuration", fmt.Sprintf("detached state '%s' is active", chart.Name(id)))
		}
		if parent == chart.root {
			continue
		}
		if _, ok := c.active[parent]; !ok {
			return NewConfigurationError("Configuration",
				fmt.Sprintf("state '%s' is active but its parent '%s' is not", chart.Name(id), chart.Name(parent)))
		}
	}
	return nil
}
