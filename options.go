package statechart

import "log/slog"

// Option configures a Machine
type Option func(m *Machine)

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDispatcher sets the execution context the machine processes events on.
// By default each machine owns a LoopDispatcher, released by Close.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Machine) {
		if d != nil {
			m.dispatcher = d
			m.ownsDispatcher = false
		}
	}
}

// WithPropertyAssigner sets the collaborator that writes property
// assignments. By default a MapProperties store is used.
func WithPropertyAssigner(p PropertyAssigner) Option {
	return func(m *Machine) {
		if p != nil {
			m.properties = p
		}
	}
}

// WithRestorePolicy sets the global property restore policy
func WithRestorePolicy(policy RestorePolicy) Option {
	return func(m *Machine) {
		m.restorePolicy = policy
	}
}

// WithObserver adds an observer
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observers.AddObserver(observer)
	}
}

// WithTransitionRegistry sets the service notified when the transitions of
// a state become live or dead
func WithTransitionRegistry(r TransitionRegistry) Option {
	return func(m *Machine) {
		m.registry = r
	}
}

// WithDefaultAnimations adds animations used for any property assignment
// that no transition animation claims
func WithDefaultAnimations(animations ...Animation) Option {
	return func(m *Machine) {
		m.defaultAnimations = append(m.defaultAnimations, animations...)
	}
}

// TransitionRegistry binds transitions to external event sources while
// their source state is active. Register is called when the source state is
// entered and Unregister when it is exited or the machine stops.
type TransitionRegistry interface {
	Register(m *Machine, t TransitionInfo)
	Unregister(m *Machine, t TransitionInfo)
}
