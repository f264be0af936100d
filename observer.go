package statechart

import (
	"fmt"
	"sync"
)

// Observer represents an entity that observes state machine lifecycle
type Observer interface {
	// Required methods

	// OnTransition is called when a transition fires, after the exits of the
	// microstep and before its entries
	OnTransition(m *Machine, t TransitionInfo, event Event)

	// OnStateEnter is called when entering a state
	OnStateEnter(m *Machine, state StateID)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnStateExit is called when exiting a state
	OnStateExit(m *Machine, state StateID)

	// OnActiveChanged is called after every entry (true) and exit (false)
	OnActiveChanged(m *Machine, state StateID, active bool)

	// OnStateFinished is called when a compound state reaches a final child,
	// or a parallel state has all its regions finished
	OnStateFinished(m *Machine, state StateID, final StateID)

	// OnPropertiesAssigned is called once the assignments of an entered state
	// have been written, animations included
	OnPropertiesAssigned(m *Machine, state StateID)

	// OnMicrostepBegin is called before the exits of a microstep
	OnMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo)

	// OnMicrostepEnd is called after the entries of a microstep
	OnMicrostepEnd(m *Machine, event Event)

	// OnEventRejected is called when a dequeued event enables no transition
	OnEventRejected(m *Machine, event Event)

	// OnError is called when a structural error occurs, and when an observer panics
	OnError(m *Machine, err error)

	// OnMachineStarted is called once the initial microstep has run
	OnMachineStarted(m *Machine)

	// OnMachineStopped is called when the machine stops on request or on an
	// unresolved error
	OnMachineStopped(m *Machine)

	// OnMachineFinished is called when the machine reaches a top-level final state
	OnMachineFinished(m *Machine)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnTransition implements the required Observer method
func (o *BaseObserver) OnTransition(m *Machine, t TransitionInfo, event Event) {}

// OnStateEnter implements the required Observer method
func (o *BaseObserver) OnStateEnter(m *Machine, state StateID) {}

// OnStateExit implements the optional ExtendedObserver method
func (o *BaseObserver) OnStateExit(m *Machine, state StateID) {}

// OnActiveChanged implements the optional ExtendedObserver method
func (o *BaseObserver) OnActiveChanged(m *Machine, state StateID, active bool) {}

// OnStateFinished implements the optional ExtendedObserver method
func (o *BaseObserver) OnStateFinished(m *Machine, state StateID, final StateID) {}

// OnPropertiesAssigned implements the optional ExtendedObserver method
func (o *BaseObserver) OnPropertiesAssigned(m *Machine, state StateID) {}

// OnMicrostepBegin implements the optional ExtendedObserver method
func (o *BaseObserver) OnMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo) {}

// OnMicrostepEnd implements the optional ExtendedObserver method
func (o *BaseObserver) OnMicrostepEnd(m *Machine, event Event) {}

// OnEventRejected implements the optional ExtendedObserver method
func (o *BaseObserver) OnEventRejected(m *Machine, event Event) {}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(m *Machine, err error) {}

// OnMachineStarted implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineStarted(m *Machine) {}

// OnMachineStopped implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineStopped(m *Machine) {}

// OnMachineFinished implements the optional ExtendedObserver method
func (o *BaseObserver) OnMachineFinished(m *Machine) {}

// ObserverManager manages a collection of observers
type ObserverManager struct {
	observers []Observer
	mutex     sync.RWMutex
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i:i], om.observers[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (om *ObserverManager) Len() int {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	return len(om.observers)
}

func (om *ObserverManager) snapshot() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// each calls fn for every observer. A panicking observer is reported to
// itself through OnError and does not stop the others.
func (om *ObserverManager) each(m *Machine, method string, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok && method != "OnError" {
						func() {
							defer func() { recover() }()
							extObs.OnError(m, fmt.Errorf("observer panic in %s: %v", method, r))
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

func (om *ObserverManager) eachExtended(m *Machine, method string, fn func(ExtendedObserver)) {
	om.each(m, method, func(o Observer) {
		if extObs, ok := o.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyTransition notifies all observers of a fired transition
func (om *ObserverManager) NotifyTransition(m *Machine, t TransitionInfo, event Event) {
	om.each(m, "OnTransition", func(o Observer) { o.OnTransition(m, t, event) })
}

// NotifyStateEnter notifies all observers of state entry
func (om *ObserverManager) NotifyStateEnter(m *Machine, state StateID) {
	om.each(m, "OnStateEnter", func(o Observer) { o.OnStateEnter(m, state) })
}

// NotifyStateExit notifies all observers of state exit
func (om *ObserverManager) NotifyStateExit(m *Machine, state StateID) {
	om.eachExtended(m, "OnStateExit", func(o ExtendedObserver) { o.OnStateExit(m, state) })
}

// NotifyActiveChanged notifies all observers of a state's activity change
func (om *ObserverManager) NotifyActiveChanged(m *Machine, state StateID, active bool) {
	om.eachExtended(m, "OnActiveChanged", func(o ExtendedObserver) { o.OnActiveChanged(m, state, active) })
}

// NotifyStateFinished notifies all observers of a finished region
func (om *ObserverManager) NotifyStateFinished(m *Machine, state StateID, final StateID) {
	om.eachExtended(m, "OnStateFinished", func(o ExtendedObserver) { o.OnStateFinished(m, state, final) })
}

// NotifyPropertiesAssigned notifies all observers that a state's assignments settled
func (om *ObserverManager) NotifyPropertiesAssigned(m *Machine, state StateID) {
	om.eachExtended(m, "OnPropertiesAssigned", func(o ExtendedObserver) { o.OnPropertiesAssigned(m, state) })
}

// NotifyMicrostepBegin notifies all observers that a microstep starts
func (om *ObserverManager) NotifyMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo) {
	om.eachExtended(m, "OnMicrostepBegin", func(o ExtendedObserver) { o.OnMicrostepBegin(m, event, transitions) })
}

// NotifyMicrostepEnd notifies all observers that a microstep completed
func (om *ObserverManager) NotifyMicrostepEnd(m *Machine, event Event) {
	om.eachExtended(m, "OnMicrostepEnd", func(o ExtendedObserver) { o.OnMicrostepEnd(m, event) })
}

// NotifyEventRejected notifies all observers of an event no transition accepted
func (om *ObserverManager) NotifyEventRejected(m *Machine, event Event) {
	om.eachExtended(m, "OnEventRejected", func(o ExtendedObserver) { o.OnEventRejected(m, event) })
}

// NotifyError notifies all observers of errors
func (om *ObserverManager) NotifyError(m *Machine, err error) {
	om.eachExtended(m, "OnError", func(o ExtendedObserver) { o.OnError(m, err) })
}

// NotifyMachineStarted notifies all observers that the machine has started
func (om *ObserverManager) NotifyMachineStarted(m *Machine) {
	om.eachExtended(m, "OnMachineStarted", func(o ExtendedObserver) { o.OnMachineStarted(m) })
}

// NotifyMachineStopped notifies all observers that the machine has stopped
func (om *ObserverManager) NotifyMachineStopped(m *Machine) {
	om.eachExtended(m, "OnMachineStopped", func(o ExtendedObserver) { o.OnMachineStopped(m) })
}

// NotifyMachineFinished notifies all observers that the machine has finished
func (om *ObserverManager) NotifyMachineFinished(m *Machine) {
	om.eachExtended(m, "OnMachineFinished", func(o ExtendedObserver) { o.OnMachineFinished(m) })
}
