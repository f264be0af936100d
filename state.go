package statechart

import "fmt"

// StateID addresses a state record inside a Chart. IDs are stable for the
// lifetime of the chart.
type StateID int

// NoState is the zero reference, used for "no parent", "no initial state"...
const NoState StateID = -1

// StateKind is the closed set of state variants
type StateKind int

const (
	// Compound states own children, transitions and property assignments.
	// A compound state without children is atomic.
	Compound StateKind = iota
	// Final states have no children and mark completion of their parent
	Final
	// History pseudo-states remember the former configuration of their parent
	History
)

func (k StateKind) String() string {
	switch k {
	case Compound:
		return "Compound"
	case Final:
		return "Final"
	case History:
		return "History"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// ChildMode selects how the children of a compound state are activated
type ChildMode int

const (
	// ExclusiveStates activates exactly one child at a time
	ExclusiveStates ChildMode = iota
	// ParallelStates activates every child together
	ParallelStates
)

func (m ChildMode) String() string {
	if m == ParallelStates {
		return "Parallel"
	}
	return "Exclusive"
}

// HistoryType specifies what a history state records
type HistoryType int

const (
	// ShallowHistory remembers the active direct children of the parent
	ShallowHistory HistoryType = iota
	// DeepHistory remembers the active atomic descendants of the parent
	DeepHistory
)

func (h HistoryType) String() string {
	if h == DeepHistory {
		return "Deep"
	}
	return "Shallow"
}

// ActionFunc is invoked on state entry/exit and when a transition fires
type ActionFunc func(e Event)

// PropertyAssignment is a directive to write value into the named property
// of target when the owning state is entered.
type PropertyAssignment struct {
	Target   any
	Property string
	Value    any

	explicit bool
}

func (a PropertyAssignment) key() restorableKey {
	return restorableKey{target: a.Target, property: a.Property}
}

// stateRecord is one arena slot. Only the fields that belong to the record's
// kind are meaningful.
type stateRecord struct {
	id     StateID
	name   string
	kind   StateKind
	parent StateID

	// Compound
	mode        ChildMode
	children    []StateID
	histories   []StateID
	initial     StateID
	errorState  StateID
	transitions []TransitionID
	assignments []PropertyAssignment
	subMachine  bool

	// History
	historyType       HistoryType
	defaultTransition TransitionID

	onEntry ActionFunc
	onExit  ActionFunc
}

// StateInfo is a read-only view of a state record
type StateInfo struct {
	ID                StateID
	Name              string
	Kind              StateKind
	Parent            StateID
	Mode              ChildMode
	Children          []StateID
	Histories         []StateID
	Initial           StateID
	ErrorState        StateID
	Transitions       []TransitionID
	Assignments       []PropertyAssignment
	SubMachine        bool
	HistoryType       HistoryType
	DefaultTransition TransitionID
}

// IsAtomic reports whether the state has no children
func (s StateInfo) IsAtomic() bool {
	return s.Kind == Final || (s.Kind == Compound && len(s.Children) == 0)
}

// IsParallel reports whether the state activates all its children together
func (s StateInfo) IsParallel() bool {
	return s.Kind == Compound && s.Mode == ParallelStates && len(s.Children) > 0
}

func (r *stateRecord) info() StateInfo {
	return StateInfo{
		ID:                r.id,
		Name:              r.name,
		Kind:              r.kind,
		Parent:            r.parent,
		Mode:              r.mode,
		Children:          append([]StateID(nil), r.children...),
		Histories:         append([]StateID(nil), r.histories...),
		Initial:           r.initial,
		ErrorState:        r.errorState,
		Transitions:       append([]TransitionID(nil), r.transitions...),
		Assignments:       append([]PropertyAssignment(nil), r.assignments...),
		SubMachine:        r.subMachine,
		HistoryType:       r.historyType,
		DefaultTransition: r.defaultTransition,
	}
}
