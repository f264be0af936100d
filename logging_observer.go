package statechart

import (
	"context"
	"log/slog"
	"strings"
)

// LogLevel represents the logging level of a LoggingObserver
type LogLevel int

const (
	// LogError logs only errors
	LogError LogLevel = iota
	// LogWarning logs errors and warnings
	LogWarning
	// LogInfo logs errors, warnings, and lifecycle changes
	LogInfo
	// LogDebug logs everything, including every entry and exit
	LogDebug
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogError:
		return slog.LevelError
	case LogWarning:
		return slog.LevelWarn
	case LogInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// LoggingObserver writes machine notifications to a structured logger
type LoggingObserver struct {
	BaseObserver
	logger *slog.Logger
	level  LogLevel
}

// NewLoggingObserver creates a logging observer. Notifications above level
// are dropped before they reach the logger.
func NewLoggingObserver(logger *slog.Logger, level LogLevel) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger, level: level}
}

func (o *LoggingObserver) log(level LogLevel, msg string, args ...any) {
	if level > o.level {
		return
	}
	o.logger.Log(context.Background(), level.slogLevel(), msg, args...)
}

// OnTransition logs a fired transition
func (o *LoggingObserver) OnTransition(m *Machine, t TransitionInfo, event Event) {
	o.log(LogDebug, "transition",
		"source", m.Chart().Name(t.Source),
		"targets", strings.Join(m.Chart().Names(t.Targets), ","),
		"kind", t.Kind.String(),
		"event", eventName(event))
}

// OnStateEnter logs a state entry
func (o *LoggingObserver) OnStateEnter(m *Machine, state StateID) {
	o.log(LogDebug, "state entered", "state", m.Chart().Name(state))
}

// OnStateExit logs a state exit
func (o *LoggingObserver) OnStateExit(m *Machine, state StateID) {
	o.log(LogDebug, "state exited", "state", m.Chart().Name(state))
}

// OnStateFinished logs a finished region
func (o *LoggingObserver) OnStateFinished(m *Machine, state StateID, final StateID) {
	o.log(LogInfo, "state finished", "state", m.Chart().Name(state), "final", m.Chart().Name(final))
}

// OnEventRejected logs an event that enabled nothing
func (o *LoggingObserver) OnEventRejected(m *Machine, event Event) {
	o.log(LogWarning, "event rejected", "event", event.GetName())
}

// OnError logs structural errors and callback failures
func (o *LoggingObserver) OnError(m *Machine, err error) {
	o.log(LogError, "state machine error", "error", err, "code", GetErrorCode(err).String())
}

// OnMachineStarted logs the initial configuration
func (o *LoggingObserver) OnMachineStarted(m *Machine) {
	o.log(LogInfo, "state machine started", "configuration", m.ActiveStateNames())
}

// OnMachineStopped logs a stop
func (o *LoggingObserver) OnMachineStopped(m *Machine) {
	o.log(LogInfo, "state machine stopped", "error", m.ErrorString())
}

// OnMachineFinished logs the final configuration
func (o *LoggingObserver) OnMachineFinished(m *Machine) {
	o.log(LogInfo, "state machine finished", "configuration", m.ActiveStateNames())
}
