package statechart

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver exports machine activity as Prometheus metrics
type MetricsObserver struct {
	BaseObserver

	transitions    *prometheus.CounterVec
	stateEntries   *prometheus.CounterVec
	stateDuration  *prometheus.HistogramVec
	rejectedEvents *prometheus.CounterVec
	errors         *prometheus.CounterVec
	microsteps     prometheus.Histogram
	activeStates   prometheus.Gauge

	mutex          sync.Mutex
	lastStateEntry map[StateID]time.Time
	microstepStart time.Time
}

// NewMetricsObserver creates the metrics and registers them with registerer.
// Pass prometheus.DefaultRegisterer to expose them on the default registry.
func NewMetricsObserver(registerer prometheus.Registerer) *MetricsObserver {
	factory := promauto.With(registerer)
	return &MetricsObserver{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statechart_transitions_total",
				Help: "Transitions taken, by source state.",
			},
			[]string{"source", "event"},
		),
		stateEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statechart_state_entries_total",
				Help: "State entries, by state.",
			},
			[]string{"state"},
		),
		stateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statechart_state_duration_seconds",
				Help:    "Time spent in a state between entry and exit.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
		rejectedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statechart_events_rejected_total",
				Help: "Dequeued events that enabled no transition.",
			},
			[]string{"event"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statechart_errors_total",
				Help: "Structural errors and callback failures, by error code.",
			},
			[]string{"code"},
		),
		microsteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "statechart_microstep_duration_seconds",
				Help:    "Time spent executing a microstep.",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
		),
		activeStates: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "statechart_active_states",
				Help: "Number of states in the configuration.",
			},
		),
		lastStateEntry: make(map[StateID]time.Time),
	}
}

// OnTransition counts a fired transition
func (o *MetricsObserver) OnTransition(m *Machine, t TransitionInfo, event Event) {
	o.transitions.WithLabelValues(m.Chart().Name(t.Source), eventName(event)).Inc()
}

// OnStateEnter counts an entry and starts the state timer
func (o *MetricsObserver) OnStateEnter(m *Machine, state StateID) {
	o.mutex.Lock()
	o.lastStateEntry[state] = time.Now()
	o.mutex.Unlock()
	o.stateEntries.WithLabelValues(m.Chart().Name(state)).Inc()
}

// OnStateExit records the time spent in the state
func (o *MetricsObserver) OnStateExit(m *Machine, state StateID) {
	o.mutex.Lock()
	entered, ok := o.lastStateEntry[state]
	delete(o.lastStateEntry, state)
	o.mutex.Unlock()
	if ok {
		o.stateDuration.WithLabelValues(m.Chart().Name(state)).Observe(time.Since(entered).Seconds())
	}
}

// OnMicrostepBegin starts the microstep timer
func (o *MetricsObserver) OnMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo) {
	o.mutex.Lock()
	o.microstepStart = time.Now()
	o.mutex.Unlock()
}

// OnMicrostepEnd records the microstep duration and the configuration size
func (o *MetricsObserver) OnMicrostepEnd(m *Machine, event Event) {
	o.mutex.Lock()
	start := o.microstepStart
	o.mutex.Unlock()
	o.microsteps.Observe(time.Since(start).Seconds())
	o.activeStates.Set(float64(len(m.Configuration())))
}

// OnEventRejected counts an event that enabled nothing
func (o *MetricsObserver) OnEventRejected(m *Machine, event Event) {
	o.rejectedEvents.WithLabelValues(event.GetName()).Inc()
}

// OnError counts an error by code
func (o *MetricsObserver) OnError(m *Machine, err error) {
	o.errors.WithLabelValues(GetErrorCode(err).String()).Inc()
}
