// Package statechart interprets hierarchical state charts: compound and
// parallel states, final states with completion events, shallow and deep
// history, error states, internal transitions, property assignments with
// optional restore and animations.
//
// A Chart is built with NewChart and its Add* methods, or with the fluent
// MachineBuilder, and run by a Machine:
//
//	m, err := statechart.NewBuilder().
//		State("idle").Initial().To("busy").On("start").
//		State("busy").To("idle").On("done").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//	_ = m.Start()
//	_ = m.Send("start", nil)
//
// Every callback runs on the machine's Dispatcher, one microstep at a time.
// The default LoopDispatcher owns a goroutine; ManualDispatcher runs work
// only when drained, which makes tests deterministic.
package statechart
