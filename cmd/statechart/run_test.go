package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const turnstile = `
name: turnstile
initial: locked
states:
  - name: locked
    transitions:
      - event: coin
        target: unlocked
  - name: unlocked
    onEntry:
      - send: timeout
        delay: 5s
    transitions:
      - event: push
        target: locked
      - event: timeout
        target: locked
      - event: remove
        target: gone
  - name: gone
    type: final
`

func writeChart(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chart.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeChart(t, turnstile)

	out, err := execute(t, "run", path, "coin", "+5s", "coin", "remove", "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "start        locked\n")
	assert.Contains(t, out, "coin         unlocked\n")
	assert.Contains(t, out, "+5s          locked\n")
	assert.Contains(t, out, "remove       gone\n")
	assert.Contains(t, out, "status: finished")
	assert.Contains(t, out, `statechart_transitions_total{event="coin",source="locked"} 2`)
	assert.NotContains(t, out, "violation")
}

func TestRunCommand_InvalidAdvance(t *testing.T) {
	path := writeChart(t, turnstile)

	_, err := execute(t, "run", path, "+soon")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeChart(t, turnstile))
	require.NoError(t, err)
	assert.Contains(t, out, "Chart is valid: 3 states, 4 transitions")

	_, err = execute(t, "validate", writeChart(t, "states:\n  - name: a\n    transitions:\n      - target: b\n"))
	assert.Error(t, err)
}

func TestDotCommand(t *testing.T) {
	out, err := execute(t, "dot", writeChart(t, turnstile), "--rankdir", "LR")
	require.NoError(t, err)
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, "\"locked\" -> \"unlocked\"")
}
