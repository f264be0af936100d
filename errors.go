package statechart

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Compound state entered without a usable initial state
	ErrCodeNoInitialState
	// History state dereferenced with no saved configuration and no default
	ErrCodeNoDefaultStateInHistory
	// Source and targets of a transition share no common compound ancestor
	ErrCodeNoCommonAncestorForTransition
	// State was not found in the chart
	ErrCodeStateNotFound
	// Transition was not found in the chart
	ErrCodeTransitionNotFound
	// Chart structure is invalid for the requested change
	ErrCodeInvalidConfiguration
	// Operation requires a machine that is not running
	ErrCodeMachineRunning
	// Operation requires a running machine
	ErrCodeMachineNotRunning
)

// String returns the name of the error code
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "NoError"
	case ErrCodeNoInitialState:
		return "NoInitialState"
	case ErrCodeNoDefaultStateInHistory:
		return "NoDefaultStateInHistory"
	case ErrCodeNoCommonAncestorForTransition:
		return "NoCommonAncestorForTransition"
	case ErrCodeStateNotFound:
		return "StateNotFound"
	case ErrCodeTransitionNotFound:
		return "TransitionNotFound"
	case ErrCodeInvalidConfiguration:
		return "InvalidConfiguration"
	case ErrCodeMachineRunning:
		return "MachineRunning"
	case ErrCodeMachineNotRunning:
		return "MachineNotRunning"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// IsStructural reports whether the code belongs to the structural taxonomy
// handled by error states.
func (c ErrorCode) IsStructural() bool {
	switch c {
	case ErrCodeNoInitialState, ErrCodeNoDefaultStateInHistory, ErrCodeNoCommonAncestorForTransition:
		return true
	}
	return false
}

// StructuralError is raised while a microstep runs into an ill-formed part
// of the state graph.
type StructuralError struct {
	Code      ErrorCode
	State     StateID
	StateName string
	Message   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error [%s] in '%s': %s", e.Code, e.StateName, e.Message)
}

// NewNoInitialStateError creates an error for a compound state without initial state
func NewNoInitialStateError(state StateID, name string) *StructuralError {
	return &StructuralError{
		Code:      ErrCodeNoInitialState,
		State:     state,
		StateName: name,
		Message:   fmt.Sprintf("missing initial state in compound state '%s'", name),
	}
}

// NewNoDefaultStateInHistoryError creates an error for a history state with nothing to restore
func NewNoDefaultStateInHistoryError(state StateID, name string) *StructuralError {
	return &StructuralError{
		Code:      ErrCodeNoDefaultStateInHistory,
		State:     state,
		StateName: name,
		Message:   fmt.Sprintf("missing default state in history state '%s'", name),
	}
}

// NewNoCommonAncestorError creates an error for a transition whose domain cannot be computed
func NewNoCommonAncestorError(source StateID, name string) *StructuralError {
	return &StructuralError{
		Code:      ErrCodeNoCommonAncestorForTransition,
		State:     source,
		StateName: name,
		Message:   fmt.Sprintf("no common ancestor for targets and source of transition from state '%s'", name),
	}
}

// StateError represents state-related errors
type StateError struct {
	Code    ErrorCode
	StateID string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateID, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateID string) *StateError {
	return &StateError{
		Code:    ErrCodeStateNotFound,
		StateID: stateID,
		Message: fmt.Sprintf("state '%s' not found", stateID),
	}
}

// NewStateError creates a new state error with custom values
func NewStateError(code ErrorCode, stateID string, message string) *StateError {
	return &StateError{
		Code:    code,
		StateID: stateID,
		Message: message,
	}
}

// ConfigurationError represents chart configuration issues
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Issue:     issue,
	}
}

// MachineError represents state machine operation errors
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

// NewMachineNotRunningError creates a new machine not running error
func NewMachineNotRunningError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineNotRunning,
		Operation: operation,
		Message:   "state machine is not running",
	}
}

// NewMachineRunningError creates an error for operations that need a stopped machine
func NewMachineRunningError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineRunning,
		Operation: operation,
		Message:   "state machine is running",
	}
}

// NewMachineError creates a new machine error
func NewMachineError(code ErrorCode, operation string, message string) *MachineError {
	return &MachineError{
		Code:      code,
		Operation: operation,
		Message:   message,
	}
}

// IsStructuralError checks if an error is a StructuralError
func IsStructuralError(err error) bool {
	var e *StructuralError
	return errors.As(err, &e)
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	var e *MachineError
	return errors.As(err, &e)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	var (
		structural *StructuralError
		state      *StateError
		machine    *MachineError
		config     *ConfigurationError
	)
	switch {
	case errors.As(err, &structural):
		return structural.Code
	case errors.As(err, &state):
		return state.Code
	case errors.As(err, &machine):
		return machine.Code
	case errors.As(err, &config):
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
