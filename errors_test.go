package statechart

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrors_ErrorCode(t *testing.T) {
	testCases := map[ErrorCode]string{
		ErrCodeNone:                          "NoError",
		ErrCodeNoInitialState:                "NoInitialState",
		ErrCodeNoDefaultStateInHistory:       "NoDefaultStateInHistory",
		ErrCodeNoCommonAncestorForTransition: "NoCommonAncestorForTransition",
		ErrCodeStateNotFound:                 "StateNotFound",
		ErrCodeTransitionNotFound:            "TransitionNotFound",
		ErrCodeInvalidConfiguration:          "InvalidConfiguration",
		ErrCodeMachineRunning:                "MachineRunning",
		ErrCodeMachineNotRunning:             "MachineNotRunning",
	}

	for code, name := range testCases {
		if code.String() != name {
			t.Errorf("Expected %s, got %s", name, code.String())
		}
	}

	if ErrorCode(99).String() != "ErrorCode(99)" {
		t.Errorf("Unexpected name for unknown code: %s", ErrorCode(99).String())
	}
}

func TestErrors_IsStructural(t *testing.T) {
	structural := []ErrorCode{ErrCodeNoInitialState, ErrCodeNoDefaultStateInHistory, ErrCodeNoCommonAncestorForTransition}
	for _, code := range structural {
		if !code.IsStructural() {
			t.Errorf("Expected %s to be structural", code)
		}
	}

	for _, code := range []ErrorCode{ErrCodeNone, ErrCodeStateNotFound, ErrCodeMachineRunning} {
		if code.IsStructural() {
			t.Errorf("Expected %s not to be structural", code)
		}
	}
}

func TestStructuralError_Creation(t *testing.T) {
	testCases := []struct {
		err  *StructuralError
		code ErrorCode
		text string
	}{
		{NewNoInitialStateError(3, "player"), ErrCodeNoInitialState, "missing initial state in compound state 'player'"},
		{NewNoDefaultStateInHistoryError(4, "h"), ErrCodeNoDefaultStateInHistory, "missing default state in history state 'h'"},
		{NewNoCommonAncestorError(5, "src"), ErrCodeNoCommonAncestorForTransition, "no common ancestor for targets and source of transition from state 'src'"},
	}

	for _, tc := range testCases {
		if tc.err.Code != tc.code {
			t.Errorf("Expected code %s, got %s", tc.code, tc.err.Code)
		}
		if tc.err.Message != tc.text {
			t.Errorf("Expected message %q, got %q", tc.text, tc.err.Message)
		}
		if !strings.Contains(tc.err.Error(), tc.code.String()) {
			t.Errorf("Expected error string to name the code, got %q", tc.err.Error())
		}
		if GetErrorCode(tc.err) != tc.code {
			t.Errorf("GetErrorCode returned %s", GetErrorCode(tc.err))
		}
	}
}

func TestStateError_Creation(t *testing.T) {
	err := NewStateNotFoundError("missing")

	if err.Code != ErrCodeStateNotFound {
		t.Errorf("Expected error code %v, got %v", ErrCodeStateNotFound, err.Code)
	}

	if err.StateID != "missing" {
		t.Errorf("Expected state ID 'missing', got '%s'", err.StateID)
	}

	expected := "state error [missing]: state 'missing' not found"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}

	custom := NewStateError(ErrCodeTransitionNotFound, "7", "transition not found")
	if custom.Code != ErrCodeTransitionNotFound || custom.Message != "transition not found" {
		t.Errorf("Unexpected custom error: %+v", custom)
	}
}

func TestMachineError_Creation(t *testing.T) {
	err := NewMachineNotRunningError("PostEvent")
	if err.Code != ErrCodeMachineNotRunning {
		t.Errorf("Expected error code %v, got %v", ErrCodeMachineNotRunning, err.Code)
	}
	if err.Error() != "machine error during PostEvent: state machine is not running" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}

	running := NewMachineRunningError("AddState")
	if running.Code != ErrCodeMachineRunning {
		t.Errorf("Expected error code %v, got %v", ErrCodeMachineRunning, running.Code)
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("Chart", "duplicate state name 'a'")

	if err.Component != "Chart" {
		t.Errorf("Expected component 'Chart', got '%s'", err.Component)
	}

	expected := "configuration error in Chart: duplicate state name 'a'"
	if err.Error() != expected {
		t.Errorf("Expected error string '%s', got '%s'", expected, err.Error())
	}

	if GetErrorCode(err) != ErrCodeInvalidConfiguration {
		t.Errorf("Expected configuration errors to map to %s", ErrCodeInvalidConfiguration)
	}
}

func TestErrors_ErrorTypeAssertions(t *testing.T) {
	var err error = NewStateNotFoundError("test")
	if !IsStateError(err) {
		t.Error("Expected error to be StateError")
	}
	if IsMachineError(err) || IsStructuralError(err) || IsConfigurationError(err) {
		t.Error("StateError matched another error type")
	}

	wrapped := fmt.Errorf("while building: %w", NewNoInitialStateError(1, "a"))
	if !IsStructuralError(wrapped) {
		t.Error("Expected wrapped error to be StructuralError")
	}
	if GetErrorCode(wrapped) != ErrCodeNoInitialState {
		t.Errorf("Expected code to survive wrapping, got %s", GetErrorCode(wrapped))
	}

	joined := errors.Join(NewConfigurationError("Builder", "x"), NewMachineRunningError("Start"))
	if !IsConfigurationError(joined) || !IsMachineError(joined) {
		t.Error("Expected joined errors to match both types")
	}

	if GetErrorCode(errors.New("plain")) != ErrCodeNone {
		t.Error("Expected unknown errors to map to ErrCodeNone")
	}
}

func TestErrors_MachineOperations(t *testing.T) {
	c := NewChart()
	a, _ := c.AddState(c.Root(), "a")
	_ = c.SetInitialState(c.Root(), a)
	d := NewManualDispatcher()
	m := NewMachine(c, WithDispatcher(d))

	if err := m.Stop(); GetErrorCode(err) != ErrCodeMachineNotRunning {
		t.Errorf("Expected MachineNotRunning from Stop, got %v", err)
	}
	if err := m.Send("x", nil); GetErrorCode(err) != ErrCodeMachineNotRunning {
		t.Errorf("Expected MachineNotRunning from Send, got %v", err)
	}
	if err := m.PostEvent(nil, NormalPriority); GetErrorCode(err) != ErrCodeInvalidConfiguration {
		t.Errorf("Expected InvalidConfiguration for a nil event, got %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	if err := m.Start(); GetErrorCode(err) != ErrCodeMachineRunning {
		t.Errorf("Expected MachineRunning from a second Start, got %v", err)
	}
	if _, err := c.AddState(c.Root(), "b"); GetErrorCode(err) != ErrCodeMachineRunning {
		t.Errorf("Expected MachineRunning from AddState, got %v", err)
	}
	if _, err := m.PostDelayedEvent(NewEvent("x", nil), -time.Second); GetErrorCode(err) != ErrCodeInvalidConfiguration {
		t.Errorf("Expected InvalidConfiguration for a negative delay, got %v", err)
	}
	d.Drain()

	if _, err := c.AddState(c.Root(), "b"); GetErrorCode(err) != ErrCodeMachineRunning {
		t.Errorf("Expected MachineRunning while running, got %v", err)
	}
	_ = m.Stop()
	d.Drain()
	if _, err := c.AddState(c.Root(), "b"); err != nil {
		t.Errorf("Expected mutation to succeed after stop, got %v", err)
	}
}
