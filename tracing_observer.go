package statechart

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingObserver records one span per microstep. Entries, exits and fired
// transitions become span events; errors mark the span failed.
type TracingObserver struct {
	BaseObserver
	tracer trace.Tracer
	ctx    context.Context

	mutex sync.Mutex
	span  trace.Span
}

// NewTracingObserver creates a tracing observer whose spans are children of
// the span in ctx, if any
func NewTracingObserver(ctx context.Context, tracer trace.Tracer) *TracingObserver {
	if ctx == nil {
		ctx = context.Background()
	}
	return &TracingObserver{tracer: tracer, ctx: ctx}
}

func (o *TracingObserver) current() trace.Span {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.span
}

// OnMicrostepBegin starts the microstep span
func (o *TracingObserver) OnMicrostepBegin(m *Machine, event Event, transitions []TransitionInfo) {
	name := eventName(event)
	spanName := "statechart.microstep"
	if name != "" {
		spanName += " " + name
	}
	_, span := o.tracer.Start(o.ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("statechart.event", name),
			attribute.Int("statechart.transitions", len(transitions)),
		),
	)
	o.mutex.Lock()
	o.span = span
	o.mutex.Unlock()
}

// OnMicrostepEnd ends the microstep span with the resulting configuration
func (o *TracingObserver) OnMicrostepEnd(m *Machine, event Event) {
	o.mutex.Lock()
	span := o.span
	o.span = nil
	o.mutex.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(attribute.StringSlice("statechart.configuration", m.ActiveStateNames()))
	span.End()
}

// OnTransition adds a transition event to the microstep span
func (o *TracingObserver) OnTransition(m *Machine, t TransitionInfo, event Event) {
	if span := o.current(); span != nil {
		span.AddEvent("transition", trace.WithAttributes(
			attribute.String("statechart.source", m.Chart().Name(t.Source)),
			attribute.StringSlice("statechart.targets", m.Chart().Names(t.Targets)),
			attribute.String("statechart.kind", t.Kind.String()),
		))
	}
}

// OnStateEnter adds an entry event to the microstep span
func (o *TracingObserver) OnStateEnter(m *Machine, state StateID) {
	if span := o.current(); span != nil {
		span.AddEvent("enter", trace.WithAttributes(attribute.String("statechart.state", m.Chart().Name(state))))
	}
}

// OnStateExit adds an exit event to the microstep span
func (o *TracingObserver) OnStateExit(m *Machine, state StateID) {
	if span := o.current(); span != nil {
		span.AddEvent("exit", trace.WithAttributes(attribute.String("statechart.state", m.Chart().Name(state))))
	}
}

// OnError marks the microstep span failed
func (o *TracingObserver) OnError(m *Machine, err error) {
	span := o.current()
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("statechart.error_code", GetErrorCode(err).String()))
}
