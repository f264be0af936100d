package statechart

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Machine
type Status int

const (
	// NotRunning machines accept structural changes and Start
	NotRunning Status = iota
	// Starting is the transient status between Start and the initial microstep
	Starting
	// Running machines process events
	Running
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	default:
		return "NotRunning"
	}
}

// Machine interprets a Chart. Every callback (actions, guards, observers,
// property assignments) runs on the machine's dispatcher, one microstep at
// a time. Posting events, stopping and the query methods are safe to call
// from any goroutine.
type Machine struct {
	chart          *Chart
	config         *Configuration
	history        *HistoryStore
	observers      *ObserverManager
	logger         *slog.Logger
	dispatcher     Dispatcher
	ownsDispatcher bool
	properties     PropertyAssigner
	restorePolicy  RestorePolicy
	registry       TransitionRegistry

	defaultAnimations []Animation

	// owned by the processing context
	errs        *errorController
	restorables *restorableRegistry
	animations  *animationTracker
	calc        stepCache
	processing  bool
	finished    bool

	mu                  sync.Mutex
	status              Status
	internalQueue       []Event
	externalQueue       []Event
	delayed             map[string]func() bool
	finishedAnimations  []*runningAnimation
	stopRequested       bool
	processingScheduled bool
}

// NewMachine creates a machine interpreting chart. A nil chart gets a new
// empty one.
func NewMachine(chart *Chart, opts ...Option) *Machine {
	if chart == nil {
		chart = NewChart()
	}
	m := &Machine{
		chart:       chart,
		config:      newConfiguration(),
		history:     newHistoryStore(),
		observers:   NewObserverManager(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		properties:  NewMapProperties(),
		errs:        newErrorController(),
		restorables: newRestorableRegistry(),
		animations:  newAnimationTracker(),
		calc:        make(stepCache),
		delayed:     make(map[string]func() bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dispatcher == nil {
		m.dispatcher = NewLoopDispatcher()
		m.ownsDispatcher = true
	}
	return m
}

// Chart returns the chart the machine interprets
func (m *Machine) Chart() *Chart {
	return m.chart
}

// Logger returns the machine's logger
func (m *Machine) Logger() *slog.Logger {
	return m.logger
}

// Start schedules the initial microstep. The configuration and history of a
// previous run are discarded; the last error is kept until ClearError.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != NotRunning {
		return NewMachineRunningError("Start")
	}
	m.status = Starting
	m.stopRequested = false
	m.chart.frozen.Store(true)
	m.scheduleLocked()
	return nil
}

// Stop asks the machine to stop once the current microstep completes
func (m *Machine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == NotRunning {
		return NewMachineNotRunningError("Stop")
	}
	m.stopRequested = true
	m.scheduleLocked()
	return nil
}

// Close releases the dispatcher the machine created for itself
func (m *Machine) Close() {
	if d, ok := m.dispatcher.(*LoopDispatcher); ok && m.ownsDispatcher {
		d.Close()
	}
}

// Status returns the lifecycle status
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsRunning reports whether the machine is starting or running
func (m *Machine) IsRunning() bool {
	return m.Status() != NotRunning
}

// PostEvent queues an event. NormalPriority events go to the external
// queue, HighPriority events to the internal queue, which is drained first.
func (m *Machine) PostEvent(e Event, priority EventPriority) error {
	if e == nil || IsNullEvent(e) {
		return NewMachineError(ErrCodeInvalidConfiguration, "PostEvent", "event cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == NotRunning {
		return NewMachineNotRunningError("PostEvent")
	}
	if priority == HighPriority {
		m.internalQueue = append(m.internalQueue, e)
	} else {
		m.externalQueue = append(m.externalQueue, e)
	}
	m.scheduleLocked()
	return nil
}

// Send posts a named event to the external queue
func (m *Machine) Send(name string, data any) error {
	return m.PostEvent(NewEvent(name, data), NormalPriority)
}

// Raise posts a named event to the internal queue
func (m *Machine) Raise(name string, data any) error {
	return m.PostEvent(NewEvent(name, data), HighPriority)
}

// PostDelayedEvent posts e to the external queue once delay has elapsed on
// the dispatcher's clock. The returned token cancels it.
func (m *Machine) PostDelayedEvent(e Event, delay time.Duration) (string, error) {
	if e == nil || IsNullEvent(e) {
		return "", NewMachineError(ErrCodeInvalidConfiguration, "PostDelayedEvent", "event cannot be nil")
	}
	if delay < 0 {
		return "", NewMachineError(ErrCodeInvalidConfiguration, "PostDelayedEvent", "delay cannot be negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == NotRunning {
		return "", NewMachineNotRunningError("PostDelayedEvent")
	}
	token := uuid.NewString()
	m.delayed[token] = m.dispatcher.AfterFunc(delay, func() { m.fireDelayed(token, e) })
	return token, nil
}

// CancelDelayedEvent cancels a delayed event. It reports false when the
// event was already delivered or cancelled.
func (m *Machine) CancelDelayedEvent(token string) bool {
	m.mu.Lock()
	stop, ok := m.delayed[token]
	delete(m.delayed, token)
	m.mu.Unlock()
	if !ok {
		return false
	}
	stop()
	return true
}

func (m *Machine) fireDelayed(token string, e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.delayed[token]; !ok {
		return
	}
	delete(m.delayed, token)
	m.externalQueue = append(m.externalQueue, e)
	m.scheduleLocked()
}

// Configuration returns the active states in document order
func (m *Machine) Configuration() []StateID {
	return m.sortEntry(m.config.IDs())
}

// ActiveStateNames returns the names of the active states in document order
func (m *Machine) ActiveStateNames() []string {
	return m.chart.Names(m.Configuration())
}

// IsActive reports whether a state is active
func (m *Machine) IsActive(state StateID) bool {
	return m.config.Contains(state)
}

// InState reports whether the named state is active
func (m *Machine) InState(name string) bool {
	id, ok := m.chart.Lookup(name)
	return ok && m.config.Contains(id)
}

// CheckConfiguration verifies the configuration invariant
func (m *Machine) CheckConfiguration() error {
	return m.config.CheckInvariant(m.chart)
}

// History returns the history store
func (m *Machine) History() *HistoryStore {
	return m.history
}

// Properties returns the property assigner
func (m *Machine) Properties() PropertyAssigner {
	return m.properties
}

// ErrorCode returns the code of the last structural error
func (m *Machine) ErrorCode() ErrorCode {
	if err := m.errs.last(); err != nil {
		return err.Code
	}
	return ErrCodeNone
}

// ErrorString returns the message of the last structural error
func (m *Machine) ErrorString() string {
	if err := m.errs.last(); err != nil {
		return err.Message
	}
	return ""
}

// LastError returns the last structural error, or nil
func (m *Machine) LastError() error {
	if err := m.errs.last(); err != nil {
		return err
	}
	return nil
}

// ClearError forgets the last structural error
func (m *Machine) ClearError() {
	m.errs.clear()
}

// AddObserver adds an observer to the machine
func (m *Machine) AddObserver(observer Observer) {
	m.observers.AddObserver(observer)
}

// RemoveObserver removes an observer from the machine
func (m *Machine) RemoveObserver(observer Observer) {
	m.observers.RemoveObserver(observer)
}

// scheduleLocked asks the dispatcher for a processing run. Requests made
// before the run starts collapse into one. m.mu must be held.
func (m *Machine) scheduleLocked() {
	if m.processingScheduled {
		return
	}
	m.processingScheduled = true
	m.dispatcher.Schedule(m.process)
}

func (m *Machine) requestStop() {
	m.mu.Lock()
	m.stopRequested = true
	m.mu.Unlock()
}

func (m *Machine) stopPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopRequested
}

func (m *Machine) process() {
	m.mu.Lock()
	m.processingScheduled = false
	status := m.status
	m.mu.Unlock()
	if m.processing {
		return
	}
	switch status {
	case Starting:
		m.start()
	case Running:
		m.run()
	}
}

// start resets the run state and takes the initial transition
func (m *Machine) start() {
	m.processing = true
	m.config.clear()
	m.history.ClearAll()
	m.restorables.clear()
	m.animations.releaseAll()
	m.finished = false

	m.mu.Lock()
	m.status = Running
	m.mu.Unlock()

	m.calc = make(stepCache)
	m.errs.resetStep()
	m.microstep(NullEvent, []*transitionRecord{m.initialTransition()})

	m.logger.Info("state machine started", "configuration", m.ActiveStateNames())
	m.observers.NotifyMachineStarted(m)
	m.processing = false
	m.run()
}

// initialTransition targets the initial state of the root, or every child
// of a parallel root
func (m *Machine) initialTransition() *transitionRecord {
	c := m.chart
	root := c.node(c.root)
	t := &transitionRecord{id: NoTransition, source: c.root}
	switch {
	case c.isParallel(c.root):
		t.targets = append(t.targets, root.children...)
	case root.initial != NoState && c.parentOf(root.initial) == c.root:
		t.targets = []StateID{root.initial}
	default:
		m.setError(NewNoInitialStateError(c.root, root.name))
	}
	return t
}

// run is the macrostep loop: eventless transitions first, then the internal
// queue, then the external queue, until nothing is enabled
func (m *Machine) run() {
	m.processing = true
	for !m.finished {
		m.settleAnimations()
		if m.stopPending() {
			break
		}
		m.calc = make(stepCache)
		m.errs.resetStep()
		e, enabled := m.nextMicrostep()
		if len(enabled) == 0 {
			if m.internalPending() {
				continue
			}
			break
		}
		m.microstep(e, enabled)
	}
	m.processing = false

	switch {
	case m.stopPending():
		m.terminate(false)
	case m.finished:
		m.terminate(true)
	}
}

func (m *Machine) nextMicrostep() (Event, []*transitionRecord) {
	if enabled := m.selectTransitions(NullEvent); len(enabled) > 0 {
		return NullEvent, enabled
	}
	for _, internal := range []bool{true, false} {
		for {
			e := m.dequeue(internal)
			if e == nil {
				break
			}
			if enabled := m.selectTransitions(e); len(enabled) > 0 {
				return e, enabled
			}
			m.logger.Debug("event rejected", "event", e.GetName())
			m.observers.NotifyEventRejected(m, e)
		}
	}
	return nil, nil
}

func (m *Machine) dequeue(internal bool) Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := &m.externalQueue
	if internal {
		queue = &m.internalQueue
	}
	if len(*queue) == 0 {
		return nil
	}
	e := (*queue)[0]
	*queue = (*queue)[1:]
	return e
}

func (m *Machine) internalPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.internalQueue) > 0
}

// terminate moves the machine to NotRunning. The configuration is kept for
// inspection until the next start.
func (m *Machine) terminate(finished bool) {
	m.mu.Lock()
	m.chart.frozen.Store(false)
	m.status = NotRunning
	m.stopRequested = false
	m.internalQueue = nil
	m.externalQueue = nil
	m.finishedAnimations = nil
	delayed := m.delayed
	m.delayed = make(map[string]func() bool)
	m.mu.Unlock()

	for _, stop := range delayed {
		stop()
	}
	m.animations.releaseAll()
	for _, s := range m.Configuration() {
		m.unregisterTransitions(s)
	}

	if finished {
		m.logger.Info("state machine finished", "configuration", m.ActiveStateNames())
		m.observers.NotifyMachineFinished(m)
		return
	}
	if err := m.errs.last(); err != nil && m.errs.fatal {
		m.logger.Warn("state machine stopped on error", "error", err.Error())
	} else {
		m.logger.Info("state machine stopped")
	}
	m.observers.NotifyMachineStopped(m)
}
