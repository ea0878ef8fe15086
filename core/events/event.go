package events

import "lendfi/core/types"

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while
// discarding all events. It is useful when a component wants to optionally
// expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Wrapped adapts a raw types.Event into the Emitter event contract.
type Wrapped struct {
	Evt *types.Event
}

func (w Wrapped) EventType() string {
	if w.Evt == nil {
		return ""
	}
	return w.Evt.Type
}

// Event returns the underlying typed event.
func (w Wrapped) Event() *types.Event { return w.Evt }

// Recorder collects emitted events in order. Tests use it to assert on
// operation side effects without standing up a full subscriber.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.Events = append(r.Events, evt)
}
