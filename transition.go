package statechart

// TransitionID addresses a transition record inside a Chart
type TransitionID int

// NoTransition is the zero transition reference
const NoTransition TransitionID = -1

// TransitionKind selects whether a transition exits its source
type TransitionKind int

const (
	// ExternalTransition exits and re-enters its source
	ExternalTransition TransitionKind = iota
	// InternalTransition keeps a compound source active when every target is
	// one of its descendants
	InternalTransition
)

func (k TransitionKind) String() string {
	if k == InternalTransition {
		return "Internal"
	}
	return "External"
}

// GuardFunc represents a guard condition function
type GuardFunc func(e Event) bool

// TransitionHandler is the predicate/action pair of a transition. Test is
// called with every candidate event, including the null event.
type TransitionHandler interface {
	Test(e Event) bool
	Apply(e Event)
}

type transitionRecord struct {
	id         TransitionID
	source     StateID
	targets    []StateID
	kind       TransitionKind
	event      string
	guard      GuardFunc
	action     ActionFunc
	handler    TransitionHandler
	animations []Animation
	removed    bool
}

// test evaluates the predicate. Without a handler, a transition with a
// trigger matches events of that name and a transition without one only
// matches the null event.
func (t *transitionRecord) test(e Event) bool {
	if t.handler != nil {
		return t.handler.Test(e)
	}
	if t.event == "" {
		if !IsNullEvent(e) {
			return false
		}
	} else if IsNullEvent(e) || (t.event != "*" && e.GetName() != t.event) {
		return false
	}
	if t.guard != nil {
		return t.guard(e)
	}
	return true
}

func (t *transitionRecord) apply(e Event) {
	if t.handler != nil {
		t.handler.Apply(e)
	}
	if t.action != nil {
		t.action(e)
	}
}

// TransitionInfo is a read-only view of a transition record
type TransitionInfo struct {
	ID      TransitionID
	Source  StateID
	Targets []StateID
	Kind    TransitionKind
	Event   string
	Guarded bool
}

func (t *transitionRecord) info() TransitionInfo {
	return TransitionInfo{
		ID:      t.id,
		Source:  t.source,
		Targets: append([]StateID(nil), t.targets...),
		Kind:    t.kind,
		Event:   t.event,
		Guarded: t.guard != nil || t.handler != nil,
	}
}

// TransitionOption configures a transition when it is added to a chart
type TransitionOption func(t *transitionRecord)

// OnEvent triggers the transition on events with the given name. "*"
// matches any named event.
func OnEvent(name string) TransitionOption {
	return func(t *transitionRecord) {
		t.event = name
	}
}

// WithGuard adds a guard condition to the transition
func WithGuard(guard GuardFunc) TransitionOption {
	return func(t *transitionRecord) {
		t.guard = guard
	}
}

// WithAction adds an action executed when the transition fires
func WithAction(action ActionFunc) TransitionOption {
	return func(t *transitionRecord) {
		t.action = action
	}
}

// WithHandler replaces event matching with an external predicate/action pair
func WithHandler(h TransitionHandler) TransitionOption {
	return func(t *transitionRecord) {
		t.handler = h
	}
}

// AsInternal marks the transition internal
func AsInternal() TransitionOption {
	return func(t *transitionRecord) {
		t.kind = InternalTransition
	}
}

// WithAnimations attaches animations that may claim property assignments of
// the states entered by this transition
func WithAnimations(animations ...Animation) TransitionOption {
	return func(t *transitionRecord) {
		t.animations = append(t.animations, animations...)
	}
}
