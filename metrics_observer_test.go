package statechart

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserver(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetricsObserver(registry)

	mb := NewBuilder().Initial("a")
	mb.State("a").To("b").On("go")
	mb.State("b").To("a").On("back")
	h := buildHarness(t, mb, WithObserver(metrics)).start()
	h.send("go", "back", "go", "unknown")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("a", "go")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("b", "back")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.stateEntries.WithLabelValues("a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.stateEntries.WithLabelValues("b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rejectedEvents.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.activeStates))

	// one series per exited state
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.stateDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.microsteps))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "statechart_transitions_total")
	assert.Contains(t, names, "statechart_microstep_duration_seconds")
}

func TestMetricsObserver_Errors(t *testing.T) {
	metrics := NewMetricsObserver(prometheus.NewRegistry())

	mb := NewBuilder().Initial("idle")
	mb.State("idle").To("A").On("go")
	mb.State("A").State("A1")
	h := buildHarness(t, mb, WithObserver(metrics)).start()
	h.send("go")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errors.WithLabelValues("NoInitialState")))
}

func TestMetricsObserver_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetricsObserver(registry)
	assert.Panics(t, func() { NewMetricsObserver(registry) })
}
