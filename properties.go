package statechart

import "sync"

// PropertyAssigner reads and writes named properties of external objects.
// Targets are used as map keys, so they must be comparable (pointers are
// the usual choice).
type PropertyAssigner interface {
	Assign(target any, property string, value any)
	Value(target any, property string) any
}

// RestorePolicy decides whether properties assigned by a state are put
// back when the state is exited
type RestorePolicy int

const (
	// DontRestoreProperties leaves assigned properties as they are
	DontRestoreProperties RestorePolicy = iota
	// RestoreProperties writes back the value a property had before the
	// state assigned it, unless the next configuration assigns it again
	RestoreProperties
)

func (p RestorePolicy) String() string {
	if p == RestoreProperties {
		return "RestoreProperties"
	}
	return "DontRestoreProperties"
}

type restorableKey struct {
	target   any
	property string
}

// MapProperties is a thread-safe PropertyAssigner backed by a map
type MapProperties struct {
	values map[restorableKey]any
	mutex  sync.RWMutex
}

// NewMapProperties creates an empty property store
func NewMapProperties() *MapProperties {
	return &MapProperties{values: make(map[restorableKey]any)}
}

// Assign stores a property value
func (p *MapProperties) Assign(target any, property string, value any) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.values[restorableKey{target: target, property: property}] = value
}

// Value returns a property value, or nil
func (p *MapProperties) Value(target any, property string) any {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.values[restorableKey{target: target, property: property}]
}

// Get retrieves a property value and whether it was ever assigned
func (p *MapProperties) Get(target any, property string) (any, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	value, exists := p.values[restorableKey{target: target, property: property}]
	return value, exists
}

// GetAll returns every property of target
func (p *MapProperties) GetAll(target any) map[string]any {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	result := make(map[string]any)
	for k, v := range p.values {
		if k.target == target {
			result[k.property] = v
		}
	}
	return result
}

type restorable struct {
	key   restorableKey
	value any
}

// restorableRegistry remembers, per active state, the values its explicit
// assignments overwrote
type restorableRegistry struct {
	byState map[StateID][]restorable
}

func newRestorableRegistry() *restorableRegistry {
	return &restorableRegistry{byState: make(map[StateID][]restorable)}
}

func (r *restorableRegistry) register(state StateID, key restorableKey, value any) {
	for _, existing := range r.byState[state] {
		if existing.key == key {
			return
		}
	}
	r.byState[state] = append(r.byState[state], restorable{key: key, value: value})
}

// take collects the saved values of the exited states and forgets them.
// exitSet is in exit order, so walking it backwards visits the outermost
// states first and their values win.
func (r *restorableRegistry) take(exitSet []StateID) []restorable {
	var result []restorable
	seen := make(map[restorableKey]bool)
	for i := len(exitSet) - 1; i >= 0; i-- {
		for _, rs := range r.byState[exitSet[i]] {
			if !seen[rs.key] {
				seen[rs.key] = true
				result = append(result, rs)
			}
		}
		delete(r.byState, exitSet[i])
	}
	return result
}

func (r *restorableRegistry) clear() {
	clear(r.byState)
}
